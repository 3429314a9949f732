package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotivy/internal/ledger"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
	tu "github.com/desertthunder/spotivy/internal/testing"
)

var (
	roadTrip = models.Playlist{ID: "p1", OwnerID: "ana", Name: "Road Trip"}
	trackA   = models.Track{ID: "1", Artist: "Alpha", Title: "First"}
	trackB   = models.Track{ID: "2", Artist: "Beta", Title: "Second"}
	trackC   = models.Track{ID: "3", Artist: "Gamma", Title: "Third"}
)

func newCatalog(playlists []models.Playlist, tracks map[string][]models.Track) *tu.MockCatalog {
	return &tu.MockCatalog{Playlists: playlists, Tracks: tracks}
}

func openBook(t *testing.T, root, name string) *ledger.Handle {
	t.Helper()
	h, err := ledger.NewStore(root).Open(name)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return h
}

func loadLedger(t *testing.T, root, name string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.NewStore(root).Load(name)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return l
}

// assertKeySet checks that the ledger's ids and the keys of its names map are the same set.
func assertKeySet(t *testing.T, l *ledger.Ledger) {
	t.Helper()

	ids := slices.Clone(l.IDs)
	sort.Strings(ids)

	keys := make([]string, 0, len(l.Names))
	for k := range l.Names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !slices.Equal(ids, keys) {
		t.Errorf("ledger ids %v do not match names keys %v", ids, keys)
	}
}

func TestTrackState(t *testing.T) {
	tests := []struct {
		state    TrackState
		name     string
		terminal bool
	}{
		{StatePending, "pending", false},
		{StateResolving, "resolving", false},
		{StateFetching, "fetching", false},
		{StateRecorded, "recorded", true},
		{StateSkippedNoMatch, "skipped-no-match", true},
		{StateSkippedFetchFailed, "skipped-fetch-failed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.state.String() != tt.name {
				t.Errorf("expected %s, got %s", tt.name, tt.state.String())
			}
			if tt.state.Terminal() != tt.terminal {
				t.Errorf("expected terminal=%v", tt.terminal)
			}
		})
	}
}

func TestTrackStep(t *testing.T) {
	t.Run("Records And Persists", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, "Road Trip")
		book := openBook(t, root, "Road Trip")
		fetcher := &tu.MockFetcher{}

		step := NewTrackStep(&tu.MockResolver{}, fetcher, nil, nil)
		outcome, err := step.Sync(context.Background(), trackA, models.IntentVideo, dir, book)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if outcome.State != StateRecorded {
			t.Fatalf("expected recorded, got %s (%v)", outcome.State, outcome.Err)
		}
		if want := filepath.Join(dir, "Alpha - First.mp4"); outcome.Path != want {
			t.Errorf("expected path %s, got %s", want, outcome.Path)
		}
		tu.AssertFileExists(t, outcome.Path)

		l := loadLedger(t, root, "Road Trip")
		if !l.Contains("1") || l.Names["1"] != "Alpha - First" {
			t.Errorf("expected track persisted, got %+v", l)
		}
	})

	t.Run("Audio Intent", func(t *testing.T) {
		root := t.TempDir()
		resolver := &tu.MockResolver{}
		fetcher := &tu.MockFetcher{}

		step := NewTrackStep(resolver, fetcher, nil, nil)
		outcome, err := step.Sync(context.Background(), trackA, models.IntentAudio, root, openBook(t, root, "Mix"))
		if err != nil {
			t.Fatal(err)
		}

		if len(resolver.AudioQueries) != 1 || len(resolver.VideoQueries) != 0 {
			t.Errorf("expected one audio search, got audio=%v video=%v", resolver.AudioQueries, resolver.VideoQueries)
		}
		if !strings.HasSuffix(outcome.Path, "Alpha - First.mp3") {
			t.Errorf("expected mp3 path, got %s", outcome.Path)
		}
	})

	t.Run("Tags Audio Only", func(t *testing.T) {
		root := t.TempDir()
		tagger := &tu.MockTagger{}

		step := NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil)
		step.SetTagger(tagger)

		book := openBook(t, root, "Mix")
		if _, err := step.Sync(context.Background(), trackA, models.IntentVideo, root, book); err != nil {
			t.Fatal(err)
		}
		outcome, err := step.Sync(context.Background(), trackB, models.IntentAudio, root, book)
		if err != nil {
			t.Fatal(err)
		}

		if len(tagger.Paths) != 1 || tagger.Paths[0] != outcome.Path {
			t.Errorf("expected only the audio file tagged, got %v", tagger.Paths)
		}
	})

	t.Run("Tagging Failure Still Records", func(t *testing.T) {
		root := t.TempDir()

		step := NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil)
		step.SetTagger(&tu.MockTagger{Err: errors.New("bad frame")})

		outcome, err := step.Sync(context.Background(), trackA, models.IntentAudio, root, openBook(t, root, "Mix"))
		if err != nil {
			t.Fatal(err)
		}
		if outcome.State != StateRecorded {
			t.Errorf("expected recorded, got %s", outcome.State)
		}
		if !loadLedger(t, root, "Mix").Contains("1") {
			t.Error("expected track in ledger")
		}
	})

	t.Run("Sanitizes Filename", func(t *testing.T) {
		root := t.TempDir()
		track := models.Track{ID: "9", Artist: "AC/DC", Title: "Back In Black?"}

		step := NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil)
		outcome, err := step.Sync(context.Background(), track, models.IntentVideo, root, openBook(t, root, "Rock"))
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(outcome.Path) != "AC-DC - Back In Black.mp4" {
			t.Errorf("unexpected filename %s", filepath.Base(outcome.Path))
		}
		if l := loadLedger(t, root, "Rock"); l.Names["9"] != "AC/DC - Back In Black?" {
			t.Errorf("expected unsanitized label in ledger, got %q", l.Names["9"])
		}
	})

	t.Run("No Match", func(t *testing.T) {
		root := t.TempDir()
		fetcher := &tu.MockFetcher{}
		resolver := &tu.MockResolver{Missing: map[string]bool{"Alpha - First": true}}

		step := NewTrackStep(resolver, fetcher, nil, nil)
		outcome, err := step.Sync(context.Background(), trackA, models.IntentVideo, root, openBook(t, root, "Mix"))
		if err != nil {
			t.Fatalf("expected no fatal error, got %v", err)
		}

		if outcome.State != StateSkippedNoMatch {
			t.Errorf("expected skipped-no-match, got %s", outcome.State)
		}
		if !errors.Is(outcome.Err, shared.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", outcome.Err)
		}
		if fetcher.Calls() != 0 {
			t.Error("expected no fetch without a match")
		}
		if loadLedger(t, root, "Mix").Len() != 0 {
			t.Error("expected ledger untouched")
		}
	})

	t.Run("Search Error", func(t *testing.T) {
		root := t.TempDir()
		resolver := &tu.MockResolver{Errors: map[string]error{"Alpha - First": shared.ErrSearch}}

		step := NewTrackStep(resolver, &tu.MockFetcher{}, nil, nil)
		outcome, err := step.Sync(context.Background(), trackA, models.IntentVideo, root, openBook(t, root, "Mix"))
		if err != nil {
			t.Fatalf("expected no fatal error, got %v", err)
		}
		if !errors.Is(outcome.Err, shared.ErrNoMatch) || !errors.Is(outcome.Err, shared.ErrSearch) {
			t.Errorf("expected ErrNoMatch wrapping ErrSearch, got %v", outcome.Err)
		}
	})

	t.Run("Fetch Failure", func(t *testing.T) {
		root := t.TempDir()
		fetcher := &tu.MockFetcher{Errors: map[string]error{"Alpha - First": errors.New("connection reset")}}

		step := NewTrackStep(&tu.MockResolver{}, fetcher, nil, nil)
		outcome, err := step.Sync(context.Background(), trackA, models.IntentVideo, root, openBook(t, root, "Mix"))
		if err != nil {
			t.Fatalf("expected no fatal error, got %v", err)
		}

		if outcome.State != StateSkippedFetchFailed {
			t.Errorf("expected skipped-fetch-failed, got %s", outcome.State)
		}
		if !errors.Is(outcome.Err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", outcome.Err)
		}
		if !strings.Contains(outcome.Err.Error(), "Alpha - First") {
			t.Errorf("expected label in error, got %v", outcome.Err)
		}
		if outcome.Match == nil {
			t.Error("expected match to be kept on the outcome")
		}
		if loadLedger(t, root, "Mix").Len() != 0 {
			t.Error("expected ledger untouched")
		}
	})

	t.Run("Ledger Write Failure", func(t *testing.T) {
		root := t.TempDir()
		book := openBook(t, root, "Mix")

		dir := filepath.Join(root, "Mix")
		if err := os.RemoveAll(dir); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dir, nil, 0644); err != nil {
			t.Fatal(err)
		}

		step := NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil)
		_, err := step.Sync(context.Background(), trackA, models.IntentVideo, t.TempDir(), book)
		if !errors.Is(err, shared.ErrLedgerWrite) {
			t.Errorf("expected ErrLedgerWrite, got %v", err)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		root := t.TempDir()
		progress := make(chan ProgressUpdate, 10)

		step := NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, progress)
		if _, err := step.Sync(context.Background(), trackA, models.IntentVideo, root, openBook(t, root, "Mix")); err != nil {
			t.Fatal(err)
		}
		close(progress)

		var phases []string
		for u := range progress {
			phases = append(phases, u.Phase.String())
		}
		want := []string{"resolve_track", "fetch_track", "record_track"}
		if !slices.Equal(phases, want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})
}

func TestPlaylistStep(t *testing.T) {
	t.Run("Filters Recorded Tracks", func(t *testing.T) {
		root := t.TempDir()
		book := openBook(t, root, "Road Trip")
		if err := book.Commit("2", "Beta - Second"); err != nil {
			t.Fatal(err)
		}

		catalog := newCatalog(nil, map[string][]models.Track{"p1": {trackA, trackB, trackC}})
		resolver := &tu.MockResolver{}
		fetcher := &tu.MockFetcher{}

		step := NewPlaylistStep(catalog, NewTrackStep(resolver, fetcher, nil, nil), nil, nil)
		result, err := step.Sync(context.Background(), roadTrip, models.IntentVideo, root)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Total != 3 || result.AlreadyDone != 1 || result.Recorded != 2 {
			t.Errorf("unexpected counts: %+v", result)
		}

		want := []string{"Alpha - First", "Gamma - Third"}
		if !slices.Equal(resolver.VideoQueries, want) {
			t.Errorf("expected each outstanding track attempted once in order %v, got %v", want, resolver.VideoQueries)
		}

		l := loadLedger(t, root, "Road Trip")
		if !slices.Equal(l.IDs, []string{"2", "1", "3"}) {
			t.Errorf("expected ledger in completion order, got %v", l.IDs)
		}
		assertKeySet(t, l)
	})

	t.Run("Failure Isolation", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog(nil, map[string][]models.Track{"p1": {trackA, trackB, trackC}})
		fetcher := &tu.MockFetcher{Errors: map[string]error{"Beta - Second": shared.ErrFetch}}

		step := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, fetcher, nil, nil), nil, nil)
		result, err := step.Sync(context.Background(), roadTrip, models.IntentVideo, root)
		if err != nil {
			t.Fatalf("expected track failure to stay local, got %v", err)
		}

		if fetcher.Calls() != 3 {
			t.Errorf("expected all three tracks attempted, got %d", fetcher.Calls())
		}
		if result.Recorded != 2 || result.FetchFailed != 1 || result.Skipped() != 1 {
			t.Errorf("unexpected counts: %+v", result)
		}

		l := loadLedger(t, root, "Road Trip")
		if l.Contains("2") {
			t.Error("expected failed track to stay out of the ledger")
		}
		if !l.Contains("1") || !l.Contains("3") {
			t.Errorf("expected tracks 1 and 3 recorded, got %v", l.IDs)
		}
		assertKeySet(t, l)
	})

	t.Run("Failed Track Retried On Next Run", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog(nil, map[string][]models.Track{"p1": {trackA, trackB}})

		failing := &tu.MockFetcher{Errors: map[string]error{"Beta - Second": shared.ErrFetch}}
		first := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, failing, nil, nil), nil, nil)
		if _, err := first.Sync(context.Background(), roadTrip, models.IntentVideo, root); err != nil {
			t.Fatal(err)
		}

		fetcher := &tu.MockFetcher{}
		second := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, fetcher, nil, nil), nil, nil)
		result, err := second.Sync(context.Background(), roadTrip, models.IntentVideo, root)
		if err != nil {
			t.Fatal(err)
		}
		if fetcher.Calls() != 1 || result.Recorded != 1 {
			t.Errorf("expected only the failed track retried, got %d fetches", fetcher.Calls())
		}
	})

	t.Run("Catalog Failure", func(t *testing.T) {
		root := t.TempDir()
		catalog := &tu.MockCatalog{TrackErr: map[string]error{"p1": errors.New("status 500")}}

		step := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil), nil, nil)
		_, err := step.Sync(context.Background(), roadTrip, models.IntentVideo, root)
		if !errors.Is(err, shared.ErrCatalog) {
			t.Errorf("expected ErrCatalog, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(root, "Road Trip", ledger.FileName))
	})

	t.Run("Corrupt Ledger", func(t *testing.T) {
		root := t.TempDir()
		path := ledger.NewStore(root).Path("Road Trip")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
			t.Fatal(err)
		}

		catalog := newCatalog(nil, map[string][]models.Track{"p1": {trackA}})
		step := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil), nil, nil)

		_, err := step.Sync(context.Background(), roadTrip, models.IntentVideo, root)
		if !errors.Is(err, shared.ErrLedgerCorrupt) {
			t.Errorf("expected ErrLedgerCorrupt, got %v", err)
		}
		if len(catalog.TrackCalls) != 0 {
			t.Error("expected no catalog call after ledger failure")
		}
	})

	t.Run("Sanitized Directory", func(t *testing.T) {
		root := t.TempDir()
		pl := models.Playlist{ID: "p9", Name: "Mix: 2024/25"}
		catalog := newCatalog(nil, map[string][]models.Track{"p9": {trackA}})

		step := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, &tu.MockFetcher{}, nil, nil), nil, nil)
		result, err := step.Sync(context.Background(), pl, models.IntentVideo, root)
		if err != nil {
			t.Fatal(err)
		}

		if want := filepath.Join(root, "Mix 2024-25"); result.Dir != want {
			t.Errorf("expected dir %s, got %s", want, result.Dir)
		}
		tu.AssertFileExists(t, filepath.Join(result.Dir, "Alpha - First.mp4"))
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		root := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		catalog := newCatalog(nil, map[string][]models.Track{"p1": {trackA, trackB}})
		fetcher := &tu.MockFetcher{}
		step := NewPlaylistStep(catalog, NewTrackStep(&tu.MockResolver{}, fetcher, nil, nil), nil, nil)

		_, err := step.Sync(ctx, roadTrip, models.IntentVideo, root)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if fetcher.Calls() != 0 {
			t.Error("expected no fetch after cancellation")
		}
	})
}

type recordingObserver struct {
	started  []string
	tracks   []TrackOutcome
	finished []*RunResult
	runErrs  []error
	fail     bool
}

func (r *recordingObserver) RunStarted(ctx context.Context, runID string, opts RunOptions, startedAt time.Time) error {
	r.started = append(r.started, runID)
	if r.fail {
		return errors.New("database is locked")
	}
	return nil
}

func (r *recordingObserver) TrackFinished(ctx context.Context, runID string, playlist models.Playlist, outcome TrackOutcome) error {
	r.tracks = append(r.tracks, outcome)
	if r.fail {
		return errors.New("database is locked")
	}
	return nil
}

func (r *recordingObserver) RunFinished(ctx context.Context, result *RunResult, runErr error) error {
	r.finished = append(r.finished, result)
	r.runErrs = append(r.runErrs, runErr)
	if r.fail {
		return errors.New("database is locked")
	}
	return nil
}

func TestDriver(t *testing.T) {
	t.Run("Road Trip End To End", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA, trackB}})

		d := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil)
		result, err := d.Run(context.Background(), RunOptions{Username: "ana", Output: root}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Recorded() != 2 || result.Skipped() != 0 {
			t.Errorf("expected 2 recorded and 0 skipped, got %d/%d", result.Recorded(), result.Skipped())
		}

		l := loadLedger(t, root, "Road Trip")
		if !slices.Equal(l.IDs, []string{"1", "2"}) {
			t.Errorf("expected ids [1 2], got %v", l.IDs)
		}
		if l.Names["1"] != "Alpha - First" || l.Names["2"] != "Beta - Second" {
			t.Errorf("unexpected names %v", l.Names)
		}
		assertKeySet(t, l)

		tu.AssertFileExists(t, filepath.Join(root, "Road Trip", "Alpha - First.mp4"))
		tu.AssertFileExists(t, filepath.Join(root, "Road Trip", "Beta - Second.mp4"))
		if catalog.ListedUsers[0] != "ana" {
			t.Errorf("expected playlists listed for ana, got %v", catalog.ListedUsers)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA, trackB, trackC}})
		opts := RunOptions{Username: "ana", Output: root}

		if _, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), opts, nil); err != nil {
			t.Fatal(err)
		}
		before := tu.MustReadFile(t, ledger.NewStore(root).Path("Road Trip"))

		resolver := &tu.MockResolver{}
		fetcher := &tu.MockFetcher{}
		result, err := NewDriver(catalog, resolver, fetcher, nil).Run(context.Background(), opts, nil)
		if err != nil {
			t.Fatal(err)
		}

		if fetcher.Calls() != 0 || len(resolver.VideoQueries) != 0 {
			t.Errorf("expected zero work on second run, got %d fetches", fetcher.Calls())
		}
		if result.Playlists[0].AlreadyDone != 3 {
			t.Errorf("expected 3 already done, got %d", result.Playlists[0].AlreadyDone)
		}
		if after := tu.MustReadFile(t, ledger.NewStore(root).Path("Road Trip")); after != before {
			t.Errorf("expected ledger unchanged, got %s", after)
		}
	})

	t.Run("Missing Media Is Not Refetched", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA}})
		opts := RunOptions{Username: "ana", Output: root}

		if _, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), opts, nil); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(root, "Road Trip", "Alpha - First.mp4")); err != nil {
			t.Fatal(err)
		}

		fetcher := &tu.MockFetcher{}
		if _, err := NewDriver(catalog, &tu.MockResolver{}, fetcher, nil).Run(context.Background(), opts, nil); err != nil {
			t.Fatal(err)
		}
		if fetcher.Calls() != 0 {
			t.Error("expected the ledger to be trusted over the filesystem")
		}
	})

	t.Run("Playlists In Catalog Order", func(t *testing.T) {
		root := t.TempDir()
		focus := models.Playlist{ID: "p2", OwnerID: "ana", Name: "Focus"}
		catalog := newCatalog([]models.Playlist{roadTrip, focus}, map[string][]models.Track{
			"p1": {trackA},
			"p2": {trackB},
		})

		result, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana", Output: root}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(catalog.TrackCalls, []string{"p1", "p2"}) {
			t.Errorf("expected catalog order, got %v", catalog.TrackCalls)
		}
		if len(result.Playlists) != 2 || result.Recorded() != 2 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Catalog Failure", func(t *testing.T) {
		catalog := &tu.MockCatalog{PlaylistErr: errors.New("status 503")}

		_, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana", Output: t.TempDir()}, nil)
		if !errors.Is(err, shared.ErrCatalog) {
			t.Errorf("expected ErrCatalog, got %v", err)
		}
	})

	t.Run("Aborts On First Playlist Error", func(t *testing.T) {
		root := t.TempDir()
		broken := models.Playlist{ID: "p2", Name: "Broken"}
		later := models.Playlist{ID: "p3", Name: "Later"}

		path := ledger.NewStore(root).Path("Broken")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}

		catalog := newCatalog([]models.Playlist{roadTrip, broken, later}, map[string][]models.Track{
			"p1": {trackA},
			"p3": {trackC},
		})

		result, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana", Output: root}, nil)
		if !errors.Is(err, shared.ErrLedgerCorrupt) {
			t.Fatalf("expected ErrLedgerCorrupt, got %v", err)
		}
		if !strings.Contains(err.Error(), "Broken") {
			t.Errorf("expected playlist name in error, got %v", err)
		}
		if slices.Contains(catalog.TrackCalls, "p3") {
			t.Error("expected playlists after the failure to be skipped")
		}
		if !loadLedger(t, root, "Road Trip").Contains("1") {
			t.Error("expected finished playlist to keep its ledger")
		}
		if result == nil || result.Recorded() != 1 {
			t.Errorf("expected partial result with 1 recorded, got %+v", result)
		}
	})

	t.Run("Missing Username", func(t *testing.T) {
		_, err := NewDriver(&tu.MockCatalog{}, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Output: t.TempDir()}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Missing Collaborator", func(t *testing.T) {
		_, err := NewDriver(nil, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana"}, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Recorder", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA, trackB}})
		fetcher := &tu.MockFetcher{Errors: map[string]error{"Beta - Second": shared.ErrFetch}}
		obs := &recordingObserver{}

		d := NewDriver(catalog, &tu.MockResolver{}, fetcher, nil)
		d.SetRecorder(obs)

		result, err := d.Run(context.Background(), RunOptions{Username: "ana", Output: root}, nil)
		if err != nil {
			t.Fatal(err)
		}

		if len(obs.started) != 1 || obs.started[0] != result.ID {
			t.Errorf("expected run started with %s, got %v", result.ID, obs.started)
		}
		if len(obs.tracks) != 2 || obs.tracks[1].State != StateSkippedFetchFailed {
			t.Errorf("unexpected track events %+v", obs.tracks)
		}
		if len(obs.finished) != 1 || obs.runErrs[0] != nil {
			t.Errorf("expected one successful finish, got %v", obs.runErrs)
		}
		if result.CompletedAt.Before(result.StartedAt) {
			t.Error("expected completion after start")
		}
	})

	t.Run("Recorder Errors Are Ignored", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA}})

		d := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil)
		d.SetRecorder(&recordingObserver{fail: true})

		result, err := d.Run(context.Background(), RunOptions{Username: "ana", Output: root}, nil)
		if err != nil {
			t.Fatalf("expected history failures to be ignored, got %v", err)
		}
		if result.Recorded() != 1 {
			t.Errorf("expected 1 recorded, got %d", result.Recorded())
		}
	})

	t.Run("Progress Never Blocks", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA, trackB, trackC}})
		progress := make(chan ProgressUpdate)

		done := make(chan error, 1)
		go func() {
			_, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana", Output: root}, progress)
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("run blocked on an unread progress channel")
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		root := t.TempDir()
		catalog := newCatalog([]models.Playlist{roadTrip}, map[string][]models.Track{"p1": {trackA}})
		progress := make(chan ProgressUpdate, 32)

		if _, err := NewDriver(catalog, &tu.MockResolver{}, &tu.MockFetcher{}, nil).Run(context.Background(), RunOptions{Username: "ana", Output: root}, progress); err != nil {
			t.Fatal(err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchPlaylists, SyncPlaylist, FetchTracks, ResolveTrack, FetchTrack, RecordTrack, CompletePlaylist}
		if !slices.Equal(phases, want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})
}
