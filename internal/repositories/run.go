package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunRepository persists [models.Run] and [models.TrackEvent] rows.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated sequence. An empty ID is replaced with a new UUID.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.Username == "" {
		return fmt.Errorf("%w: run username is required", shared.ErrInvalidArgument)
	}

	sequence, err := NextSequence(ctx, r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.Sequence = sequence

	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.Status == "" {
		run.Status = models.RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO runs (
			id, sequence, username, intent, output, status,
			playlists, recorded, skipped, error_message, started_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		sequence,
		run.Username,
		run.Intent,
		run.Output,
		string(run.Status),
		run.Playlists,
		run.Recorded,
		run.Skipped,
		nullString(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Complete stores the final counters and status of a run.
func (r *RunRepository) Complete(ctx context.Context, run *models.Run) error {
	if run.CompletedAt == nil {
		now := time.Now()
		run.CompletedAt = &now
	}

	query := `
		UPDATE runs
		SET status = ?, playlists = ?, recorded = ?, skipped = ?,
			error_message = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.Playlists,
		run.Recorded,
		run.Skipped,
		nullString(run.ErrorMessage),
		run.CompletedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}

	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, username, intent, output, status, playlists, recorded, skipped,
			error_message, started_at, completed_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// List returns the most recent runs first. A non-positive limit returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, username, intent, output, status, playlists, recorded, skipped,
			error_message, started_at, completed_at
		FROM runs
		ORDER BY sequence DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// AddTrackEvent inserts the outcome of one track attempt.
func (r *RunRepository) AddTrackEvent(ctx context.Context, ev *models.TrackEvent) error {
	if ev.ID == "" {
		ev.ID = shared.GenerateID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO track_events (
			id, run_id, playlist, track_id, label, state, error_message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.RunID,
		ev.Playlist,
		ev.TrackID,
		ev.Label,
		ev.State,
		nullString(ev.ErrorMessage),
		ev.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert track event: %w", err)
	}

	return nil
}

// ListTrackEvents returns the events of a run in insertion order.
func (r *RunRepository) ListTrackEvents(ctx context.Context, runID string) ([]*models.TrackEvent, error) {
	query := `
		SELECT id, run_id, playlist, track_id, label, state, error_message, created_at
		FROM track_events
		WHERE run_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track events: %w", err)
	}
	defer rows.Close()

	events := []*models.TrackEvent{}
	for rows.Next() {
		var (
			ev     models.TrackEvent
			errMsg sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Playlist, &ev.TrackID, &ev.Label, &ev.State, &errMsg, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan track event: %w", err)
		}
		ev.ErrorMessage = errMsg.String
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track events: %w", err)
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var (
		run         models.Run
		status      string
		errMsg      sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.Username,
		&run.Intent,
		&run.Output,
		&status,
		&run.Playlists,
		&run.Recorded,
		&run.Skipped,
		&errMsg,
		&run.StartedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	return &run, nil
}
