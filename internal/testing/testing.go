// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"github.com/stretchr/testify/mock"
)

// FakeHost is the link host used by [FakeProvider].
const FakeHost = "fake.test"

// FakeProvider is an in-memory catalog implementing the artist, album and URL capabilities.
//
// Catalogs are paged by offset and limit. Failures queues errors per artist id: each ArtistAlbums call for
// that id pops one error until the queue is empty.
type FakeProvider struct {
	NS       string
	Artists  map[string]models.Artist
	Catalogs map[string][]models.Album
	Details  map[string]models.Album
	Failures map[string][]error

	mu    sync.Mutex
	calls map[string]int
}

// NewFakeProvider creates an empty fake registered under ns.
func NewFakeProvider(ns string) *FakeProvider {
	return &FakeProvider{
		NS:       ns,
		Artists:  make(map[string]models.Artist),
		Catalogs: make(map[string][]models.Album),
		Details:  make(map[string]models.Album),
		Failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

func (f *FakeProvider) Namespace() string { return f.NS }
func (f *FakeProvider) Name() string      { return strings.ToUpper(f.NS) }

func (f *FakeProvider) Capabilities() services.CapabilitySet {
	return services.NewCapabilitySet(
		services.CapArtistByID,
		services.CapArtistAlbums,
		services.CapAlbumByID,
		services.CapIdentifiers,
		services.CapURLs,
	)
}

// Calls returns how many times method was invoked, keyed as "Method:id".
func (f *FakeProvider) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *FakeProvider) record(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
}

func (f *FakeProvider) Artist(_ context.Context, id string) (*models.Artist, error) {
	f.record("Artist:" + id)
	a, ok := f.Artists[id]
	if !ok {
		return nil, &shared.ProviderError{Provider: f.NS, Endpoint: "/artist/" + id, StatusCode: http.StatusNotFound}
	}
	return &a, nil
}

func (f *FakeProvider) ArtistAlbums(_ context.Context, id string, offset, limit int) (*models.AlbumPage, error) {
	f.record("ArtistAlbums:" + id)

	f.mu.Lock()
	if queue := f.Failures[id]; len(queue) > 0 {
		err := queue[0]
		f.Failures[id] = queue[1:]
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	all := f.Catalogs[id]
	if limit <= 0 {
		limit = 50
	}
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return &models.AlbumPage{Albums: all[start:end], Total: len(all), Next: end < len(all)}, nil
}

func (f *FakeProvider) Album(_ context.Context, id string) (*models.Album, error) {
	f.record("Album:" + id)
	a, ok := f.Details[id]
	if !ok {
		return nil, &shared.ProviderError{Provider: f.NS, Endpoint: "/album/" + id, StatusCode: http.StatusNotFound}
	}
	return &a, nil
}

func (f *FakeProvider) AlbumUPCs(album models.Album) []string {
	if album.Barcode == "" {
		return nil
	}
	return []string{album.Barcode}
}

func (f *FakeProvider) TrackISRCs(track models.Track) []string { return track.ISRCs }

func (f *FakeProvider) CreateURL(entity models.EntityType, id string) string {
	return fmt.Sprintf("https://%s/%s/%s", FakeHost, entity, id)
}

func (f *FakeProvider) ParseURL(raw string) (models.EntityType, string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "https://"+FakeHost+"/")
	if !ok {
		return "", "", false
	}
	kind, id, ok := strings.Cut(rest, "/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", "", false
	}
	switch entity := models.EntityType(kind); entity {
	case models.EntityArtist, models.EntityAlbum, models.EntityTrack:
		return entity, id, true
	}
	return "", "", false
}

// FakeAlbum builds a catalog album whose URL the fake provider can parse.
func FakeAlbum(id, name string) models.Album {
	return models.Album{
		ID:       id,
		Provider: "fake",
		Name:     name,
		URL:      fmt.Sprintf("https://%s/album/%s", FakeHost, id),
	}
}

// MockRegistry is a testify mock for [services.ReleaseRegistry].
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) ArtistIDForURL(ctx context.Context, rawURL string) (string, error) {
	args := m.Called(ctx, rawURL)
	return args.String(0), args.Error(1)
}

func (m *MockRegistry) ArtistReleases(ctx context.Context, mbid string, scope services.ReleaseScope, offset, limit int, withTracks bool) (*models.AlbumPage, error) {
	args := m.Called(ctx, mbid, scope, offset, limit, withTracks)
	page, _ := args.Get(0).(*models.AlbumPage)
	return page, args.Error(1)
}

func (m *MockRegistry) ReleasesByBarcode(ctx context.Context, barcode string) ([]models.Album, error) {
	args := m.Called(ctx, barcode)
	albums, _ := args.Get(0).([]models.Album)
	return albums, args.Error(1)
}

// Transient returns a retryable upstream failure for provider.
func Transient(provider string) error {
	return &shared.ProviderError{Provider: provider, Endpoint: "/test", StatusCode: http.StatusServiceUnavailable}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
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

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
