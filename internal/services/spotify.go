// Spotify Web API implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 50
	trackPageSize    = 100
)

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	IsLocal bool            `json:"is_local"`
}

// Owner is the user a playlist belongs to.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is null for episodes that were removed and for some local files.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist items.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL overrides the Web API root.
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithSpotifyTokenURL overrides the accounts token endpoint.
func WithSpotifyTokenURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.config.TokenURL = u }
}

// WithSpotifyHTTPClient sets the client used for token requests and as the base transport.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithSpotifyRateLimit caps requests per second. Zero disables pacing.
func WithSpotifyRateLimit(perSecond float64) SpotifyOption {
	return func(s *SpotifyService) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithSpotifyLogger sets the logger used for debug output.
func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// SpotifyService implements [Catalog] against the Spotify Web API.
// Uses the [clientcredentials] grant, so no user authorization is required.
type SpotifyService struct {
	config     *clientcredentials.Config
	baseURL    string
	baseClient *http.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a Spotify catalog from "client_id" and "client_secret" credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	s := &SpotifyService{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyTokenURL,
		},
		baseURL:    spotifyBaseURL,
		baseClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		logger:     log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate fetches an app access token. The returned client refreshes it as needed.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)

	ts := s.config.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	s.httpClient = oauth2.NewClient(ctx, ts)
	return nil
}

// doRequest performs an authenticated GET against the Web API.
//
// endpoint is either a path below the base URL or an absolute "next" link from a previous page.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// ListPlaylists retrieves every playlist of username, following pagination until exhausted.
func (s *SpotifyService) ListPlaylists(ctx context.Context, username string) ([]models.Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d", url.PathEscape(username), playlistPageSize)

	playlists := []models.Playlist{}
	for endpoint != "" {
		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("%w: playlists of %s: %v", shared.ErrCatalog, username, err)
		}

		for _, sp := range page.Items {
			playlists = append(playlists, models.Playlist{
				ID:         sp.ID,
				OwnerID:    sp.Owner.ID,
				Name:       sp.Name,
				TrackCount: sp.Tracks.Total,
			})
		}

		endpoint = next(page.Next)
	}

	s.logger.Debug("listed playlists", "user", username, "count", len(playlists))
	return playlists, nil
}

// ListTracks retrieves every track of a playlist. ownerID is accepted for symmetry with the
// playlist model; the Web API addresses playlists by ID alone.
//
// Items without a track object or track ID are skipped.
func (s *SpotifyService) ListTracks(ctx context.Context, ownerID, playlistID string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), trackPageSize)

	tracks := []models.Track{}
	for endpoint != "" {
		var page SpotifyPaginatedTracks
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("%w: tracks of %s: %v", shared.ErrCatalog, playlistID, err)
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				s.logger.Debug("skipping playlist item without track id", "playlist", playlistID, "owner", ownerID)
				continue
			}
			tracks = append(tracks, toTrack(item.Track))
		}

		endpoint = next(page.Next)
	}

	return tracks, nil
}

func toTrack(st *SpotifyTrack) models.Track {
	track := models.Track{ID: st.ID, Title: st.Name}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}

func next(link *string) string {
	if link == nil {
		return ""
	}
	return *link
}
