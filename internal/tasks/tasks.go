package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/ledger"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/services"
	"github.com/desertthunder/spotivy/internal/shared"
)

// TrackState is a position in the per-track state machine.
//
//	pending -> resolving -> fetching -> recorded
//	               |            |
//	               v            v
//	      skipped-no-match  skipped-fetch-failed
type TrackState int

const (
	StatePending TrackState = iota
	StateResolving
	StateFetching
	StateRecorded
	StateSkippedNoMatch
	StateSkippedFetchFailed
)

func (s TrackState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolving:
		return "resolving"
	case StateFetching:
		return "fetching"
	case StateRecorded:
		return "recorded"
	case StateSkippedNoMatch:
		return "skipped-no-match"
	case StateSkippedFetchFailed:
		return "skipped-fetch-failed"
	default:
		return ""
	}
}

// Terminal reports whether no further transition is possible.
func (s TrackState) Terminal() bool {
	return s == StateRecorded || s == StateSkippedNoMatch || s == StateSkippedFetchFailed
}

// TrackOutcome is the final state of one track attempt.
type TrackOutcome struct {
	Track models.Track
	State TrackState
	Match *models.MediaMatch // nil unless resolution succeeded
	Path  string             // target media path, empty unless fetching was attempted
	Err   error              // wraps ErrNoMatch or ErrFetch for skipped tracks
}

// PlaylistResult summarizes one playlist sync.
type PlaylistResult struct {
	Playlist    models.Playlist
	Dir         string
	Total       int // tracks listed by the catalog
	AlreadyDone int // tracks filtered out by the ledger
	Recorded    int
	NoMatch     int
	FetchFailed int
	Outcomes    []TrackOutcome
}

// Skipped returns the number of attempted tracks that were not recorded.
func (r *PlaylistResult) Skipped() int {
	return r.NoMatch + r.FetchFailed
}

func (r *PlaylistResult) add(o TrackOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.State {
	case StateRecorded:
		r.Recorded++
	case StateSkippedNoMatch:
		r.NoMatch++
	case StateSkippedFetchFailed:
		r.FetchFailed++
	}
}

// RunOptions is the explicit configuration of a single run.
type RunOptions struct {
	Username string
	Intent   models.Intent
	Output   string
}

// RunResult contains all data from a full run.
type RunResult struct {
	ID          string
	Options     RunOptions
	Playlists   []*PlaylistResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// Recorded returns the number of tracks recorded across all playlists.
func (r *RunResult) Recorded() int {
	n := 0
	for _, p := range r.Playlists {
		n += p.Recorded
	}
	return n
}

// Skipped returns the number of tracks skipped across all playlists.
func (r *RunResult) Skipped() int {
	n := 0
	for _, p := range r.Playlists {
		n += p.Skipped()
	}
	return n
}

// Recorder observes a run. It is optional and its errors never affect the sync.
//
// repositories.HistoryRecorder persists these events to SQLite.
type Recorder interface {
	RunStarted(ctx context.Context, runID string, opts RunOptions, startedAt time.Time) error
	TrackFinished(ctx context.Context, runID string, playlist models.Playlist, outcome TrackOutcome) error
	RunFinished(ctx context.Context, result *RunResult, runErr error) error
}

// reporter sends progress updates through the channel without blocking.
type reporter struct {
	progress chan<- ProgressUpdate
}

// send uses select with default to ensure progress reporting never blocks execution.
func (r reporter) send(update ProgressUpdate) {
	if r.progress == nil {
		return
	}
	select {
	case r.progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

func discardLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}

// TrackStep resolves, fetches and records a single track.
type TrackStep struct {
	resolver services.Resolver
	fetcher  services.Fetcher
	tagger   services.Tagger
	logger   *log.Logger
	reporter
}

// NewTrackStep creates a TrackStep. progress and logger may be nil.
func NewTrackStep(resolver services.Resolver, fetcher services.Fetcher, logger *log.Logger, progress chan<- ProgressUpdate) *TrackStep {
	return &TrackStep{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   discardLogger(logger),
		reporter: reporter{progress: progress},
	}
}

// SetTagger enables metadata tagging of fetched audio. Tagging failures are logged and ignored.
func (s *TrackStep) SetTagger(t services.Tagger) {
	s.tagger = t
}

// Sync runs the track state machine and writes the media file to outputDir.
//
// Resolution and fetch failures end in a skipped state and leave the ledger untouched.
// The only returned error is a failure to persist the ledger, which wraps [shared.ErrLedgerWrite].
func (s *TrackStep) Sync(ctx context.Context, track models.Track, intent models.Intent, outputDir string, book *ledger.Handle) (TrackOutcome, error) {
	return s.sync(ctx, 0, 0, track, intent, outputDir, book)
}

func (s *TrackStep) sync(ctx context.Context, step, total int, track models.Track, intent models.Intent, outputDir string, book *ledger.Handle) (TrackOutcome, error) {
	outcome := TrackOutcome{Track: track, State: StatePending}
	label := track.Label()

	outcome.State = StateResolving
	s.send(resolveTrackUpdate(step, total, track))

	match, err := services.FindMatch(ctx, s.resolver, intent, label)
	switch {
	case err != nil:
		outcome.State = StateSkippedNoMatch
		outcome.Err = fmt.Errorf("%w: %s: %w", shared.ErrNoMatch, label, err)
	case match == nil:
		outcome.State = StateSkippedNoMatch
		outcome.Err = fmt.Errorf("%w: %s", shared.ErrNoMatch, label)
	}
	if outcome.State.Terminal() {
		s.logger.Debug("no match", "track", label, "err", outcome.Err)
		s.send(finishTrackUpdate(step, total, outcome))
		return outcome, nil
	}

	outcome.State = StateFetching
	outcome.Match = match
	outcome.Path = filepath.Join(outputDir, shared.SanitizeFilename(label)+"."+intent.Ext())
	s.logger.Debug("download url", "track", label, "url", match.URL(), "path", outcome.Path)
	s.send(fetchTrackUpdate(step, total, track, match))

	if err := s.fetcher.Fetch(ctx, match, intent, outcome.Path); err != nil {
		outcome.State = StateSkippedFetchFailed
		if errors.Is(err, shared.ErrFetch) {
			outcome.Err = fmt.Errorf("%s: %w", label, err)
		} else {
			outcome.Err = fmt.Errorf("%w: %s: %w", shared.ErrFetch, label, err)
		}
		s.logger.Debug("download failed", "track", label, "err", err)
		s.send(finishTrackUpdate(step, total, outcome))
		return outcome, nil
	}

	if s.tagger != nil && intent == models.IntentAudio {
		if err := s.tagger.Tag(ctx, outcome.Path, track, match); err != nil {
			s.logger.Warn("tagging failed", "track", label, "err", err)
		}
	}

	if err := book.Commit(track.ID, label); err != nil {
		outcome.Err = err
		return outcome, err
	}

	outcome.State = StateRecorded
	s.send(finishTrackUpdate(step, total, outcome))
	return outcome, nil
}

// PlaylistStep syncs every outstanding track of one playlist.
type PlaylistStep struct {
	catalog services.Catalog
	tracks  *TrackStep
	logger  *log.Logger
	reporter
}

// NewPlaylistStep creates a PlaylistStep. progress and logger may be nil.
func NewPlaylistStep(catalog services.Catalog, tracks *TrackStep, logger *log.Logger, progress chan<- ProgressUpdate) *PlaylistStep {
	return &PlaylistStep{
		catalog:  catalog,
		tracks:   tracks,
		logger:   discardLogger(logger),
		reporter: reporter{progress: progress},
	}
}

// Sync mirrors playlist into outputRoot/<sanitized name>.
//
// Tracks already in the ledger are never attempted. Outstanding tracks run strictly in catalog order.
// Catalog failures, ledger corruption, ledger write failures and cancellation are returned;
// per-track failures are counted in the result.
func (s *PlaylistStep) Sync(ctx context.Context, playlist models.Playlist, intent models.Intent, outputRoot string) (*PlaylistResult, error) {
	name := shared.SanitizeFilename(playlist.Name)
	result := &PlaylistResult{Playlist: playlist, Dir: filepath.Join(outputRoot, name)}

	book, err := ledger.NewStore(outputRoot).Open(name)
	if err != nil {
		return result, err
	}

	tracks, err := s.catalog.ListTracks(ctx, playlist.OwnerID, playlist.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrCatalog) {
			err = fmt.Errorf("%w: tracks of %s: %w", shared.ErrCatalog, playlist.Name, err)
		}
		return result, err
	}
	result.Total = len(tracks)

	pending := make([]models.Track, 0, len(tracks))
	for _, tr := range tracks {
		if book.Contains(tr.ID) {
			continue
		}
		pending = append(pending, tr)
	}
	result.AlreadyDone = result.Total - len(pending)

	s.logger.Debug(fmt.Sprintf("%d tracks to download", len(pending)), "playlist", playlist.Name, "done", result.AlreadyDone)
	s.send(fetchTracksUpdate(playlist, len(pending), result.Total))

	for i, tr := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := s.tracks.sync(ctx, i+1, len(pending), tr, intent, result.Dir, book)
		if err != nil {
			return result, err
		}
		result.add(outcome)
	}

	return result, nil
}

// Driver runs a full mirror of every playlist of a user.
type Driver struct {
	catalog  services.Catalog
	resolver services.Resolver
	fetcher  services.Fetcher
	tagger   services.Tagger
	recorder Recorder
	logger   *log.Logger
}

// NewDriver creates a Driver. logger may be nil.
func NewDriver(catalog services.Catalog, resolver services.Resolver, fetcher services.Fetcher, logger *log.Logger) *Driver {
	return &Driver{
		catalog:  catalog,
		resolver: resolver,
		fetcher:  fetcher,
		logger:   discardLogger(logger),
	}
}

// SetRecorder enables run observation. Recorder errors are logged and ignored.
func (d *Driver) SetRecorder(r Recorder) {
	d.recorder = r
}

// SetTagger enables metadata tagging of audio downloads.
func (d *Driver) SetTagger(t services.Tagger) {
	d.tagger = t
}

// Run syncs every playlist of opts.Username sequentially, in catalog order.
//
// The first playlist-level error aborts the run. Playlists that already finished keep their ledgers,
// and the partial result is returned alongside the error.
func (d *Driver) Run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate) (*RunResult, error) {
	if d.catalog == nil || d.resolver == nil || d.fetcher == nil {
		return nil, fmt.Errorf("%w: driver is missing a collaborator", shared.ErrServiceUnavailable)
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: username is required", shared.ErrInvalidArgument)
	}

	result := &RunResult{ID: shared.GenerateID(), Options: opts, StartedAt: time.Now()}
	d.observe("run started", func() error {
		return d.recorder.RunStarted(ctx, result.ID, opts, result.StartedAt)
	})

	err := d.run(ctx, opts, progress, result)
	result.CompletedAt = time.Now()

	d.observe("run finished", func() error {
		return d.recorder.RunFinished(context.WithoutCancel(ctx), result, err)
	})

	return result, err
}

func (d *Driver) run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate, result *RunResult) error {
	r := reporter{progress: progress}
	r.send(fetchPlaylistsUpdate(opts.Username))

	playlists, err := d.catalog.ListPlaylists(ctx, opts.Username)
	if err != nil {
		if !errors.Is(err, shared.ErrCatalog) {
			err = fmt.Errorf("%w: playlists of %s: %w", shared.ErrCatalog, opts.Username, err)
		}
		return err
	}
	d.logger.Debug("found playlists", "user", opts.Username, "count", len(playlists))

	tracks := NewTrackStep(d.resolver, d.fetcher, d.logger, progress)
	tracks.SetTagger(d.tagger)
	step := NewPlaylistStep(d.catalog, tracks, d.logger, progress)

	for i, pl := range playlists {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.send(syncPlaylistUpdate(i+1, len(playlists), pl))

		pr, err := step.Sync(ctx, pl, opts.Intent, opts.Output)
		result.Playlists = append(result.Playlists, pr)
		for _, o := range pr.Outcomes {
			d.observe("track finished", func() error {
				return d.recorder.TrackFinished(context.WithoutCancel(ctx), result.ID, pl, o)
			})
		}

		if err != nil {
			return fmt.Errorf("playlist %q: %w", pl.Name, err)
		}

		r.send(completePlaylistUpdate(i+1, len(playlists), pr))
	}

	return nil
}

func (d *Driver) observe(event string, fn func() error) {
	if d.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		d.logger.Warn("history write failed", "event", event, "err", err)
	}
}
