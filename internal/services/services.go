package services

import (
	"context"

	"github.com/desertthunder/spotivy/internal/models"
)

// Catalog enumerates a user's playlists and their tracks.
type Catalog interface {
	// ListPlaylists returns every playlist owned or followed by username, in catalog order.
	ListPlaylists(ctx context.Context, username string) ([]models.Playlist, error)

	// ListTracks returns every track of a playlist, in playlist order.
	ListTracks(ctx context.Context, ownerID, playlistID string) ([]models.Track, error)
}

// Resolver finds the single best media match for a search query.
//
// A nil match with a nil error means the search succeeded but found nothing.
type Resolver interface {
	FindVideoMatch(ctx context.Context, query string) (*models.MediaMatch, error)
	FindAudioMatch(ctx context.Context, query string) (*models.MediaMatch, error)
}

// Fetcher streams a matched media item to path in the format implied by intent.
type Fetcher interface {
	Fetch(ctx context.Context, match *models.MediaMatch, intent models.Intent, path string) error
}

// Tagger writes track metadata into a fetched media file.
type Tagger interface {
	Tag(ctx context.Context, path string, track models.Track, match *models.MediaMatch) error
}

// FindMatch dispatches to the resolver method for intent.
func FindMatch(ctx context.Context, r Resolver, intent models.Intent, query string) (*models.MediaMatch, error) {
	if intent == models.IntentAudio {
		return r.FindAudioMatch(ctx, query)
	}
	return r.FindVideoMatch(ctx, query)
}
