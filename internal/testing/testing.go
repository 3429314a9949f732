// package testing contains shared test doubles and assertions
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/spotivy/internal/models"
)

// MockCatalog is a test double for [services.Catalog] backed by fixed data.
type MockCatalog struct {
	Playlists   []models.Playlist
	Tracks      map[string][]models.Track // keyed by playlist ID
	PlaylistErr error
	TrackErr    map[string]error // keyed by playlist ID

	mu          sync.Mutex
	TrackCalls  []string
	ListedUsers []string
}

func (m *MockCatalog) ListPlaylists(ctx context.Context, username string) ([]models.Playlist, error) {
	m.mu.Lock()
	m.ListedUsers = append(m.ListedUsers, username)
	m.mu.Unlock()

	if m.PlaylistErr != nil {
		return nil, m.PlaylistErr
	}
	return m.Playlists, nil
}

func (m *MockCatalog) ListTracks(ctx context.Context, ownerID, playlistID string) ([]models.Track, error) {
	m.mu.Lock()
	m.TrackCalls = append(m.TrackCalls, playlistID)
	m.mu.Unlock()

	if err := m.TrackErr[playlistID]; err != nil {
		return nil, err
	}
	return m.Tracks[playlistID], nil
}

// MockResolver is a test double for [services.Resolver].
//
// Queries found in Matches resolve to that match, queries in Errors fail,
// and anything else resolves to a match whose ID is the query.
type MockResolver struct {
	Matches map[string]*models.MediaMatch
	Errors  map[string]error
	Missing map[string]bool

	mu           sync.Mutex
	VideoQueries []string
	AudioQueries []string
}

func (m *MockResolver) FindVideoMatch(ctx context.Context, query string) (*models.MediaMatch, error) {
	m.mu.Lock()
	m.VideoQueries = append(m.VideoQueries, query)
	m.mu.Unlock()
	return m.find(query)
}

func (m *MockResolver) FindAudioMatch(ctx context.Context, query string) (*models.MediaMatch, error) {
	m.mu.Lock()
	m.AudioQueries = append(m.AudioQueries, query)
	m.mu.Unlock()
	return m.find(query)
}

func (m *MockResolver) find(query string) (*models.MediaMatch, error) {
	if err := m.Errors[query]; err != nil {
		return nil, err
	}
	if m.Missing[query] {
		return nil, nil
	}
	if match, ok := m.Matches[query]; ok {
		return match, nil
	}
	return &models.MediaMatch{ID: query, Title: query}, nil
}

// MockFetcher is a test double for [services.Fetcher] that writes a small file to the target path.
type MockFetcher struct {
	// Errors fail the fetch for the given match ID.
	Errors map[string]error

	mu    sync.Mutex
	Paths []string
}

func (m *MockFetcher) Fetch(ctx context.Context, match *models.MediaMatch, intent models.Intent, path string) error {
	m.mu.Lock()
	m.Paths = append(m.Paths, path)
	m.mu.Unlock()

	if err := m.Errors[match.ID]; err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(match.ID), 0644)
}

// Calls returns how many fetches were attempted.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Paths)
}

// MockTagger is a test double for [services.Tagger] that records tagged paths.
type MockTagger struct {
	Err error

	mu    sync.Mutex
	Paths []string
}

func (m *MockTagger) Tag(ctx context.Context, path string, track models.Track, match *models.MediaMatch) error {
	m.mu.Lock()
	m.Paths = append(m.Paths, path)
	m.mu.Unlock()
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
