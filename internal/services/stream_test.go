package services

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
	tu "github.com/desertthunder/spotivy/internal/testing"
	"github.com/kkdai/youtube/v2"
)

func TestSelectFormat(t *testing.T) {
	progressive := youtube.Format{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, AudioChannels: 2}
	hdVideoOnly := youtube.Format{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080}
	progressive720 := youtube.Format{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720, AudioChannels: 2}
	webm := youtube.Format{ItagNo: 43, MimeType: `video/webm; codecs="vp8.0, vorbis"`, Height: 360, AudioChannels: 2}
	m4aLow := youtube.Format{ItagNo: 139, MimeType: `audio/mp4; codecs="mp4a.40.5"`, Bitrate: 48000, AudioChannels: 2}
	m4aHigh := youtube.Format{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2}
	opus := youtube.Format{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, AverageBitrate: 160000, AudioChannels: 2}

	tests := []struct {
		name     string
		formats  youtube.FormatList
		intent   models.Intent
		wantItag int
		wantErr  bool
	}{
		{name: "video prefers itag 18", formats: youtube.FormatList{hdVideoOnly, progressive720, progressive}, intent: models.IntentVideo, wantItag: 18},
		{name: "video falls back to tallest progressive mp4", formats: youtube.FormatList{hdVideoOnly, webm, progressive720}, intent: models.IntentVideo, wantItag: 22},
		{name: "video without progressive mp4", formats: youtube.FormatList{hdVideoOnly, webm, m4aHigh}, intent: models.IntentVideo, wantErr: true},
		{name: "audio picks highest bitrate m4a", formats: youtube.FormatList{m4aLow, opus, m4aHigh, progressive}, intent: models.IntentAudio, wantItag: 140},
		{name: "audio falls back to any audio", formats: youtube.FormatList{progressive, opus}, intent: models.IntentAudio, wantItag: 251},
		{name: "audio without audio streams", formats: youtube.FormatList{progressive, hdVideoOnly}, intent: models.IntentAudio, wantErr: true},
		{name: "empty list", formats: nil, intent: models.IntentVideo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectFormat(tt.formats, tt.intent)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got format %d", got.ItagNo)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.ItagNo != tt.wantItag {
				t.Errorf("expected itag %d, got %d", tt.wantItag, got.ItagNo)
			}
		})
	}
}

func TestStreamFetcher(t *testing.T) {
	t.Run("Video Lookup Fails", func(t *testing.T) {
		hc := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("network unreachable"))}
		f := NewStreamFetcherWithClient(hc, nil)
		out := filepath.Join(t.TempDir(), "A - One.mp4")

		err := f.Fetch(context.Background(), &models.MediaMatch{ID: "dQw4w9WgXcQ"}, models.IntentVideo, out)
		if !errors.Is(err, shared.ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Error("expected no output file after failure")
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := NewStreamFetcher(0, nil)
		err := f.Fetch(ctx, &models.MediaMatch{ID: "dQw4w9WgXcQ"}, models.IntentAudio, filepath.Join(t.TempDir(), "x.mp3"))
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})
}
