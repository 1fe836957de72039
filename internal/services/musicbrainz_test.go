package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/mbx/internal/shared"
)

func newTestMusicBrainz(t *testing.T, handler http.HandlerFunc) *MusicBrainzService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "mbx/") {
			t.Errorf("expected mbx user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("fmt") != "json" {
			t.Errorf("expected fmt=json, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewMusicBrainzService(ClientOptions{BaseURL: srv.URL, HTTPClient: srv.Client(), RateLimit: 1000})
}

const mbReleaseJSON = `{
	"id":"rel-1","title":"Discovery","date":"2001-03-12","barcode":"724384960650",
	"cover-art-archive":{"front":true,"count":3},
	"release-group":{"primary-type":"Album"},
	"artist-credit":[{"name":"Daft Punk","artist":{"id":"056e4f3e","name":"Daft Punk"}}],
	"relations":[{"type":"free streaming","url":{"resource":"https://www.deezer.com/album/302127"}},
		{"type":"streaming","url":{"resource":"https://open.spotify.com/album/2noRn2Aes5aoNVsU6iWThc"}}],
	"media":[{"position":1,"track-count":2,"tracks":[
		{"id":"t1","position":1,"title":"One More Time","length":320357,
		 "recording":{"id":"rec-1","isrcs":["GBDUW0000053"],
		  "relations":[{"url":{"resource":"https://open.spotify.com/track/0DiWol3AO6WpXZgp0goxAV"}}]}},
		{"id":"t2","position":2,"title":"Aerodynamic","recording":{"id":"rec-2","length":212000}}]}]
}`

func TestMusicBrainzService(t *testing.T) {
	ctx := context.Background()

	t.Run("ArtistIDForURL", func(t *testing.T) {
		m := newTestMusicBrainz(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/url" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			switch r.URL.Query().Get("resource") {
			case "https://open.spotify.com/artist/known":
				fmt.Fprint(w, `{"relations":[{"type":"free streaming","artist":{"id":"056e4f3e","name":"Daft Punk"}}]}`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})

		mbid, err := m.ArtistIDForURL(ctx, "https://open.spotify.com/artist/known")
		if err != nil || mbid != "056e4f3e" {
			t.Errorf("expected mbid, got %q (%v)", mbid, err)
		}

		mbid, err = m.ArtistIDForURL(ctx, "https://open.spotify.com/artist/unknown")
		if err != nil || mbid != "" {
			t.Errorf("expected empty mbid for unlinked url, got %q (%v)", mbid, err)
		}

		if _, err := m.ArtistIDForURL(ctx, " "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("ArtistReleases scope and includes", func(t *testing.T) {
		var (
			mu      sync.Mutex
			queries []string
		)
		m := newTestMusicBrainz(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			queries = append(queries, r.URL.RawQuery)
			mu.Unlock()
			fmt.Fprintf(w, `{"release-count":3,"release-offset":0,"releases":[%s]}`, mbReleaseJSON)
		})

		page, err := m.ArtistReleases(ctx, "056e4f3e", ScopeOwn, 0, 100, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !page.Next || page.Total != 3 {
			t.Errorf("unexpected page %+v", page)
		}
		if len(page.Albums[0].Tracks) != 0 || page.Albums[0].TrackCount != 2 {
			t.Errorf("expected track count without tracks, got %+v", page.Albums[0])
		}

		if _, err := m.ArtistReleases(ctx, "056e4f3e", ScopeFeatured, 0, 100, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(queries) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(queries))
		}
		if !strings.Contains(queries[0], "artist=056e4f3e") || strings.Contains(queries[0], "track_artist") {
			t.Errorf("own scope should browse by artist: %s", queries[0])
		}
		if !strings.Contains(queries[0], "media") {
			t.Errorf("expected media include: %s", queries[0])
		}
		if !strings.Contains(queries[1], "track_artist=056e4f3e") || !strings.Contains(queries[1], "isrcs") {
			t.Errorf("featured scope should browse by track artist with isrcs: %s", queries[1])
		}
	})

	t.Run("Release mapping with tracks", func(t *testing.T) {
		m := newTestMusicBrainz(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"release-count":1,"releases":[%s]}`, mbReleaseJSON)
		})

		page, err := m.ArtistReleases(ctx, "056e4f3e", ScopeOwn, 0, 0, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Next {
			t.Error("expected single page")
		}

		album := page.Albums[0]
		if album.Barcode != "724384960650" || album.AlbumType != "album" {
			t.Errorf("unexpected album %+v", album)
		}
		if len(album.ExternalURLs) != 2 {
			t.Errorf("expected url relations, got %v", album.ExternalURLs)
		}
		if len(album.ImageURLs) != 1 || album.ImageURLs[0] != "https://coverartarchive.org/release/rel-1/front" {
			t.Errorf("expected cover art archive front, got %v", album.ImageURLs)
		}
		if len(album.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(album.Tracks))
		}
		first, second := album.Tracks[0], album.Tracks[1]
		if first.ID != "rec-1" || first.ISRCs[0] != "GBDUW0000053" || len(first.ExternalURLs) != 1 {
			t.Errorf("unexpected first track %+v", first)
		}
		if second.DurationMS != 212000 || len(second.ISRCs) != 0 {
			t.Errorf("expected recording length fallback, got %+v", second)
		}
	})

	t.Run("ReleasesByBarcode", func(t *testing.T) {
		m := newTestMusicBrainz(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("query") != "barcode:724384960650" {
				t.Errorf("unexpected query %q", r.URL.Query().Get("query"))
			}
			fmt.Fprintf(w, `{"releases":[%s]}`, mbReleaseJSON)
		})

		albums, err := m.ReleasesByBarcode(ctx, "724384960650")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(albums) != 1 || len(albums[0].Artists) != 1 || albums[0].Artists[0].ID != "056e4f3e" {
			t.Errorf("expected credited artist, got %+v", albums)
		}

		if _, err := m.ReleasesByBarcode(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Server errors are retryable", func(t *testing.T) {
		m := newTestMusicBrainz(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := m.ArtistReleases(ctx, "056e4f3e", ScopeOwn, 0, 100, false)
		if !shared.IsRetryable(err) || shared.ProviderOf(err) != "musicbrainz" {
			t.Errorf("expected retryable musicbrainz error, got %v", err)
		}
	})
}
