package services

import (
	"context"
	"fmt"
	"io"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/models"
)

const spotifyTrackURL = "https://open.spotify.com/track/"

// ID3Tagger writes title, artist and source URL frames into mp3 files.
//
// Only real MP3 output should be tagged; the stream backend saves an mp4 audio stream under a .mp3 name.
type ID3Tagger struct {
	logger *log.Logger
}

// NewID3Tagger creates an ID3Tagger. logger may be nil.
func NewID3Tagger(logger *log.Logger) *ID3Tagger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ID3Tagger{logger: logger}
}

// Tag replaces the title, artist and user-defined frames of the file at path.
func (t *ID3Tagger) Tag(ctx context.Context, path string, track models.Track, match *models.MediaMatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		tag, err = id3v2.Open(path, id3v2.Options{Parse: false})
		if err != nil {
			return fmt.Errorf("failed to open %s for tagging: %w", path, err)
		}
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	if track.Artist != "" {
		tag.SetArtist(track.Artist)
	}
	tag.DeleteFrames("TXXX")
	if track.ID != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "SPOTIFY_URL",
			Value:       spotifyTrackURL + track.ID,
		})
	}
	if match != nil && match.ID != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "SOURCE_URL",
			Value:       match.URL(),
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags for %s: %w", path, err)
	}

	t.logger.Debug("tagged", "path", path, "title", track.Title, "artist", track.Artist)
	return nil
}
