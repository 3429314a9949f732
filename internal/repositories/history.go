package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/tasks"
)

// HistoryRecorder implements tasks.Recorder using RunRepository.
type HistoryRecorder struct {
	repo *RunRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *RunRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// RunStarted inserts the run in the running state.
func (h *HistoryRecorder) RunStarted(ctx context.Context, runID string, opts tasks.RunOptions, startedAt time.Time) error {
	return h.repo.Create(ctx, &models.Run{
		ID:        runID,
		Username:  opts.Username,
		Intent:    opts.Intent.String(),
		Output:    opts.Output,
		Status:    models.RunRunning,
		StartedAt: startedAt,
	})
}

// TrackFinished stores one track outcome.
func (h *HistoryRecorder) TrackFinished(ctx context.Context, runID string, playlist models.Playlist, outcome tasks.TrackOutcome) error {
	ev := &models.TrackEvent{
		RunID:    runID,
		Playlist: playlist.Name,
		TrackID:  outcome.Track.ID,
		Label:    outcome.Track.Label(),
		State:    outcome.State.String(),
	}
	if outcome.Err != nil {
		ev.ErrorMessage = outcome.Err.Error()
	}
	return h.repo.AddTrackEvent(ctx, ev)
}

// RunFinished stores the final counters. A non-nil runErr marks the run failed.
func (h *HistoryRecorder) RunFinished(ctx context.Context, result *tasks.RunResult, runErr error) error {
	completedAt := result.CompletedAt
	run := &models.Run{
		ID:          result.ID,
		Status:      models.RunCompleted,
		Playlists:   len(result.Playlists),
		Recorded:    result.Recorded(),
		Skipped:     result.Skipped(),
		CompletedAt: &completedAt,
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = runErr.Error()
	}
	return h.repo.Complete(ctx, run)
}
