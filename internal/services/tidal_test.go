package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

func newTestTidal(t *testing.T, routes map[string]http.HandlerFunc) *TidalService {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tidal-token","token_type":"bearer","expires_in":86400}`)
	})
	for pattern, h := range routes {
		handler := h
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Accept"); got != tidalMediaType {
				t.Errorf("expected %s accept header, got %q", tidalMediaType, got)
			}
			if got := r.URL.Query().Get("countryCode"); got != "NO" {
				t.Errorf("expected countryCode NO, got %q", got)
			}
			handler(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := NewTidalService(ClientOptions{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/token",
		ClientID:     "id",
		ClientSecret: "secret",
		CountryCode:  "NO",
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create tidal service: %v", err)
	}
	return s
}

func TestTidalService(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Credentials", func(t *testing.T) {
		if _, err := NewTidalService(ClientOptions{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Capabilities", func(t *testing.T) {
		s, _ := NewTidalService(ClientOptions{ClientID: "id", ClientSecret: "secret"})
		caps := s.Capabilities()
		if caps.Has(CapSearchArtist) || caps.Has(CapTrackByISRC) {
			t.Errorf("unexpected capabilities %s", caps)
		}
		if !caps.HasAll(CapArtistAlbums, CapAlbumByUPC, CapURLs) {
			t.Errorf("missing capabilities %s", caps)
		}
	})

	t.Run("Album pages through items", func(t *testing.T) {
		s := newTestTidal(t, map[string]http.HandlerFunc{
			"/albums/77": func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"resource":{"id":"77","title":"Album","barcodeId":"0602445","type":"ALBUM",
					"releaseDate":"2022-10-21","imageCover":[{"url":"https://img/1.jpg"}],
					"artists":[{"id":"5","name":"Artist","main":true}]}}`)
			},
			"/albums/77/items": func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Query().Get("offset") {
				case "0":
					fmt.Fprint(w, `{"data":[{"resource":{"id":"1","title":"One","isrc":"usabc1","trackNumber":1,"duration":60}}],"metadata":{"total":2}}`)
				default:
					fmt.Fprint(w, `{"data":[{"resource":{"id":"2","title":"Two","isrc":"usabc2","trackNumber":2}}],"metadata":{"total":2}}`)
				}
			},
		})

		album, err := s.Album(ctx, "77")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(album.Tracks) != 2 || album.TrackCount != 2 {
			t.Fatalf("expected 2 tracks, got %+v", album.Tracks)
		}
		if album.Tracks[1].ISRCs[0] != "USABC2" || album.Tracks[0].DurationMS != 60000 {
			t.Errorf("unexpected tracks %+v", album.Tracks)
		}
		if album.AlbumType != "album" || album.Barcode != "0602445" || album.URL != "https://tidal.com/album/77" {
			t.Errorf("unexpected album %+v", album)
		}
	})

	t.Run("AlbumByUPC", func(t *testing.T) {
		s := newTestTidal(t, map[string]http.HandlerFunc{
			"/albums/byBarcodeId": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("barcodeId") == "none" {
					fmt.Fprint(w, `{"data":[],"metadata":{"total":0}}`)
					return
				}
				fmt.Fprint(w, `{"data":[{"resource":{"id":"77","title":"Album","barcodeId":"0602445"}}],"metadata":{"total":1}}`)
			},
			"/albums/77/items": func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":[],"metadata":{"total":0}}`)
			},
		})

		album, err := s.AlbumByUPC(ctx, "0602445")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if album.ID != "77" {
			t.Errorf("unexpected album %+v", album)
		}

		if _, err := s.AlbumByUPC(ctx, "none"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ArtistAlbums derives next from total", func(t *testing.T) {
		s := newTestTidal(t, map[string]http.HandlerFunc{
			"/artists/5/albums": func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":[{"resource":{"id":"77","title":"Album"}}],"metadata":{"total":3}}`)
			},
		})

		page, err := s.ArtistAlbums(ctx, "5", 0, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !page.Next {
			t.Error("expected another page")
		}

		page, err = s.ArtistAlbums(ctx, "5", 2, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Next {
			t.Error("expected last page")
		}
	})

	t.Run("URLs", func(t *testing.T) {
		s, _ := NewTidalService(ClientOptions{ClientID: "id", ClientSecret: "secret"})

		tc := []struct {
			raw    string
			entity models.EntityType
			id     string
			ok     bool
		}{
			{raw: "https://tidal.com/browse/album/77", entity: models.EntityAlbum, id: "77", ok: true},
			{raw: "https://listen.tidal.com/artist/5", entity: models.EntityArtist, id: "5", ok: true},
			{raw: "https://tidal.com/track/1", entity: models.EntityTrack, id: "1", ok: true},
			{raw: "https://tidal.com/browse/video/1", ok: false},
			{raw: "ftp://tidal.com/album/77", ok: false},
		}
		for _, tt := range tc {
			entity, id, ok := s.ParseURL(tt.raw)
			if ok != tt.ok || entity != tt.entity || id != tt.id {
				t.Errorf("ParseURL(%q) = %s, %s, %v", tt.raw, entity, id, ok)
			}
		}
	})
}
