// Direct streaming implementation of [Fetcher]
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
	"github.com/kkdai/youtube/v2"
)

// progressiveMP4Itag is the 360p mp4 format that carries both audio and video.
const progressiveMP4Itag = 18

// StreamFetcher implements [Fetcher] by streaming directly from YouTube with kkdai/youtube.
type StreamFetcher struct {
	client *youtube.Client
	logger *log.Logger
}

// NewStreamFetcher creates a fetcher whose HTTP requests time out after timeout. A nil logger discards output.
func NewStreamFetcher(timeout time.Duration, logger *log.Logger) *StreamFetcher {
	return NewStreamFetcherWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewStreamFetcherWithClient creates a fetcher that uses hc for all requests.
func NewStreamFetcherWithClient(hc *http.Client, logger *log.Logger) *StreamFetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StreamFetcher{
		client: &youtube.Client{HTTPClient: hc},
		logger: logger,
	}
}

// Fetch resolves the stream for match and copies it to path. A partial file is removed on error.
func (f *StreamFetcher) Fetch(ctx context.Context, match *models.MediaMatch, intent models.Intent, path string) error {
	f.logger.Debug("downloading", "url", match.URL(), "intent", intent)

	video, err := f.client.GetVideoContext(ctx, match.URL())
	if err != nil {
		return fmt.Errorf("%w: %s: %s", shared.ErrFetch, match.URL(), describeVideoError(err))
	}

	format, err := selectFormat(video.Formats, intent)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrFetch, match.URL(), err)
	}
	f.logger.Debug("chosen stream format", "itag", format.ItagNo, "mime", format.MimeType, "quality", format.QualityLabel, "bitrate", bitrateForFormat(format))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFetch, err)
	}

	stream, _, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("%w: starting stream: %v", shared.ErrFetch, err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: opening output file: %v", shared.ErrFetch, err)
	}

	if _, err := io.Copy(file, stream); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("%w: download failed: %v", shared.ErrFetch, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %v", shared.ErrFetch, err)
	}

	return nil
}

// selectFormat picks the stream for intent.
//
// Video prefers itag 18 and falls back to the tallest mp4 that still carries audio.
// Audio picks the highest bitrate audio/mp4 stream, then any audio-only stream.
func selectFormat(formats youtube.FormatList, intent models.Intent) (*youtube.Format, error) {
	if intent == models.IntentAudio {
		if best := highestBitrate(formats.Type("audio/mp4")); best != nil {
			return best, nil
		}
		if best := highestBitrate(formats.Type("audio/")); best != nil {
			return best, nil
		}
		return nil, errors.New("no audio formats available")
	}

	if progressive := formats.Itag(progressiveMP4Itag); len(progressive) > 0 {
		return &progressive[0], nil
	}

	var best *youtube.Format
	for _, f := range formats.Type("video/mp4").WithAudioChannels() {
		if best == nil || betterVideoFormat(&f, best) {
			candidate := f
			best = &candidate
		}
	}
	if best == nil {
		return nil, errors.New("no progressive mp4 formats available")
	}
	return best, nil
}

func highestBitrate(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		if best == nil || bitrateForFormat(&formats[i]) > bitrateForFormat(best) {
			best = &formats[i]
		}
	}
	return best
}

func betterVideoFormat(candidate, current *youtube.Format) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return bitrateForFormat(candidate) > bitrateForFormat(current)
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

func describeVideoError(err error) string {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return "restricted content (login/age/private): " + err.Error()
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return "unplayable: " + err.Error()
	}

	return strings.TrimSpace(err.Error())
}
