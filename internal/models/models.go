// package models defines the data model for the playlist mirror
package models

import (
	"fmt"
	"strings"
)

// Playlist represents a playlist owned or followed by a catalog user
type Playlist struct {
	ID         string
	OwnerID    string
	Name       string
	TrackCount int
}

// Track represents a track within a playlist
type Track struct {
	ID     string
	Artist string // Primary artist display name
	Title  string
}

// Label returns the human-readable "artist - title" string used for search queries, filenames and the ledger.
func (t Track) Label() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Intent selects what kind of media a run downloads.
type Intent int

const (
	IntentVideo Intent = iota
	IntentAudio
)

// ParseIntent maps a configured format name to an [Intent].
func ParseIntent(format string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "video":
		return IntentVideo, nil
	case "audio":
		return IntentAudio, nil
	default:
		return IntentVideo, fmt.Errorf("unknown format %q: expected video or audio", format)
	}
}

func (i Intent) String() string {
	switch i {
	case IntentAudio:
		return "audio"
	default:
		return "video"
	}
}

// Ext returns the file extension written for this intent.
func (i Intent) Ext() string {
	if i == IntentAudio {
		return "mp3"
	}
	return "mp4"
}

// MediaMatch is the best search result for a track query.
type MediaMatch struct {
	ID      string // YouTube video ID
	Title   string
	Channel string
}

// URL returns the canonical watch URL for the match.
func (m MediaMatch) URL() string {
	return "https://www.youtube.com/watch?v=" + m.ID
}
