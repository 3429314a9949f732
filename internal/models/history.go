package models

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded sync run.
type Run struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	Username     string     `json:"username"`
	Intent       string     `json:"intent"`
	Output       string     `json:"output"`
	Status       RunStatus  `json:"status"`
	Playlists    int        `json:"playlists"`
	Recorded     int        `json:"recorded"`
	Skipped      int        `json:"skipped"`
	ErrorMessage string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Duration returns the elapsed run time, or zero while the run is in progress.
func (r Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// TrackEvent is the recorded outcome of one track attempt within a run.
type TrackEvent struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Playlist     string    `json:"playlist"`
	TrackID      string    `json:"track_id"`
	Label        string    `json:"label"`
	State        string    `json:"state"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
