// yt-dlp implementation of [Fetcher]
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
)

const (
	ytdlpVideoFormat = "18/best[ext=mp4]"
	ytdlpAudioFormat = "bestaudio[ext=m4a]/bestaudio"
)

// YTDLPFetcher implements [Fetcher] by calling the yt-dlp binary.
type YTDLPFetcher struct {
	// BinaryPath is the path to the yt-dlp executable. Defaults to "yt-dlp".
	BinaryPath string
	// Timeout bounds a single download. Zero means no limit beyond the context.
	Timeout time.Duration

	logger *log.Logger
}

// NewYTDLPFetcher creates a fetcher for the binary at path. A nil logger discards output.
func NewYTDLPFetcher(path string, timeout time.Duration, logger *log.Logger) *YTDLPFetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &YTDLPFetcher{BinaryPath: path, Timeout: timeout, logger: logger}
}

// Args returns the yt-dlp arguments used to write match to path.
//
// Audio is extracted to mp3, so the output template lets yt-dlp choose the intermediate extension.
func (f *YTDLPFetcher) Args(match *models.MediaMatch, intent models.Intent, path string) []string {
	args := []string{"--no-playlist", "--no-progress", "--no-warnings", "--force-overwrites"}

	if intent == models.IntentAudio {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		args = append(args, "-f", ytdlpAudioFormat, "--extract-audio", "--audio-format", "mp3", "-o", base+".%(ext)s")
	} else {
		args = append(args, "-f", ytdlpVideoFormat, "-o", path)
	}

	return append(args, match.URL())
}

// Fetch runs yt-dlp and confirms the expected file exists afterwards.
func (f *YTDLPFetcher) Fetch(ctx context.Context, match *models.MediaMatch, intent models.Intent, path string) error {
	bin := f.BinaryPath
	if bin == "" {
		bin = "yt-dlp"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFetch, err)
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	args := f.Args(match, intent, path)
	if f.logger != nil {
		f.logger.Debug("downloading", "url", match.URL(), "bin", bin, "args", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: yt-dlp failed: %v: %s", shared.ErrFetch, err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: yt-dlp produced no file at %s", shared.ErrFetch, path)
	}

	return nil
}
