package tasks

import (
	"fmt"

	"github.com/desertthunder/spotivy/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data ([models.Playlist], [models.Track] or [TrackOutcome])
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	SyncPlaylist
	FetchTracks
	ResolveTrack
	FetchTrack
	RecordTrack
	SkipTrack
	CompletePlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case SyncPlaylist:
		return "sync_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case ResolveTrack:
		return "resolve_track"
	case FetchTrack:
		return "fetch_track"
	case RecordTrack:
		return "record_track"
	case SkipTrack:
		return "skip_track"
	case CompletePlaylist:
		return "complete_playlist"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate(username string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlists of %s...", username),
	}
}

func syncPlaylistUpdate(step, total int, pl models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Step:    step,
		Total:   total,
		Message: pl.Name,
		Data:    pl,
	}
}

func fetchTracksUpdate(pl models.Playlist, outstanding, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    outstanding,
		Total:   total,
		Message: fmt.Sprintf("%d tracks to download", outstanding),
		Data:    pl,
	}
}

func resolveTrackUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTrack,
		Step:    step,
		Total:   total,
		Message: tr.Label(),
		Data:    tr,
	}
}

func fetchTrackUpdate(step, total int, tr models.Track, match *models.MediaMatch) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s (%s)", tr.Label(), match.URL()),
		Data:    tr,
	}
}

func finishTrackUpdate(step, total int, outcome TrackOutcome) ProgressUpdate {
	if outcome.State == StateRecorded {
		return ProgressUpdate{
			Phase:   RecordTrack,
			Step:    step,
			Total:   total,
			Message: outcome.Track.Label(),
			Data:    outcome,
		}
	}

	msg := outcome.Track.Label()
	if outcome.Err != nil {
		msg = outcome.Err.Error()
	}
	return ProgressUpdate{
		Phase:   SkipTrack,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    outcome,
	}
}

func completePlaylistUpdate(step, total int, result *PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CompletePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s: %d recorded, %d skipped", result.Playlist.Name, result.Recorded, result.Skipped()),
		Data:    result,
	}
}
