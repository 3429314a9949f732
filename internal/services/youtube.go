// YouTube Data API implementation of [Resolver]
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// musicCategoryID is the YouTube video category for music.
const musicCategoryID = "10"

// YouTubeOption configures a [YouTubeResolver].
type YouTubeOption func(*YouTubeResolver)

// WithYouTubeRateLimit caps searches per second. Zero disables pacing.
func WithYouTubeRateLimit(perSecond float64) YouTubeOption {
	return func(r *YouTubeResolver) {
		if perSecond <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithYouTubeTimeout bounds each search request.
func WithYouTubeTimeout(d time.Duration) YouTubeOption {
	return func(r *YouTubeResolver) { r.timeout = d }
}

// WithYouTubeLogger sets the logger used for debug output.
func WithYouTubeLogger(l *log.Logger) YouTubeOption {
	return func(r *YouTubeResolver) { r.logger = l }
}

// WithYouTubeClientOptions passes options through to the generated API client.
func WithYouTubeClientOptions(opts ...option.ClientOption) YouTubeOption {
	return func(r *YouTubeResolver) { r.clientOpts = append(r.clientOpts, opts...) }
}

// YouTubeResolver implements [Resolver] with the YouTube Data API v3 search endpoint.
//
// Each search costs 100 quota units; the default daily quota allows roughly 100 tracks.
type YouTubeResolver struct {
	service    *youtube.Service
	clientOpts []option.ClientOption
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger
}

// NewYouTubeResolver creates a resolver authenticated with apiKey.
func NewYouTubeResolver(ctx context.Context, apiKey string, opts ...YouTubeOption) (*YouTubeResolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api key required", shared.ErrMissingCredentials)
	}

	r := &YouTubeResolver{
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, r.clientOpts...)
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	r.service = service

	return r, nil
}

// FindVideoMatch searches music videos for the plain track label.
func (r *YouTubeResolver) FindVideoMatch(ctx context.Context, query string) (*models.MediaMatch, error) {
	return r.search(ctx, query)
}

// FindAudioMatch searches for an audio upload of the track label.
func (r *YouTubeResolver) FindAudioMatch(ctx context.Context, query string) (*models.MediaMatch, error) {
	return r.search(ctx, query+" audio")
}

func (r *YouTubeResolver) search(ctx context.Context, query string) (*models.MediaMatch, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", shared.ErrSearch, query, err)
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %w: %q: %v", shared.ErrSearch, shared.ErrServiceUnavailable, query, err)
		}
		return nil, fmt.Errorf("%w: %q: %v", shared.ErrSearch, query, err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}

		match := &models.MediaMatch{ID: item.Id.VideoId}
		if item.Snippet != nil {
			match.Title = item.Snippet.Title
			match.Channel = item.Snippet.ChannelTitle
		}

		r.logger.Debug("search matched", "query", query, "video", match.ID, "title", match.Title)
		return match, nil
	}

	r.logger.Debug("search returned no results", "query", query)
	return nil, nil
}

func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if item.Reason == "quotaExceeded" || item.Reason == "rateLimitExceeded" {
				return true
			}
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "quotaExceeded") || strings.Contains(msg, "rateLimitExceeded")
}
