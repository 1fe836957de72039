package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

// stubProvider declares caps and implements the album and URL interfaces.
type stubProvider struct {
	ns   string
	caps CapabilitySet
	host string
}

func (s *stubProvider) Namespace() string           { return s.ns }
func (s *stubProvider) Name() string                { return strings.ToUpper(s.ns) }
func (s *stubProvider) Capabilities() CapabilitySet { return s.caps }

func (s *stubProvider) Album(context.Context, string) (*models.Album, error) {
	return &models.Album{ID: "1", Provider: s.ns}, nil
}

func (s *stubProvider) CreateURL(entity models.EntityType, id string) string {
	return "https://" + s.host + "/" + string(entity) + "/" + id
}

func (s *stubProvider) ParseURL(raw string) (models.EntityType, string, bool) {
	return parseEntityURL(raw, s.host)
}

// bareProvider implements no capability interfaces.
type bareProvider struct {
	ns   string
	caps CapabilitySet
}

func (b *bareProvider) Namespace() string           { return b.ns }
func (b *bareProvider) Name() string                { return b.ns }
func (b *bareProvider) Capabilities() CapabilitySet { return b.caps }

func newStub(ns, host string) *stubProvider {
	return &stubProvider{ns: ns, host: host, caps: NewCapabilitySet(CapAlbumByID, CapURLs)}
}

func TestCapabilitySet(t *testing.T) {
	t.Run("Has And HasAll", func(t *testing.T) {
		set := NewCapabilitySet(CapArtistByID, CapAlbumByUPC)

		if !set.Has(CapArtistByID) || !set.Has(CapAlbumByUPC) {
			t.Error("expected declared capabilities to be present")
		}
		if set.Has(CapTrackByISRC) {
			t.Error("undeclared capability should be absent")
		}
		if !set.HasAll() {
			t.Error("empty requirement should always be satisfied")
		}
		if set.HasAll(CapArtistByID, CapURLs) {
			t.Error("HasAll should fail when one capability is missing")
		}
	})

	t.Run("List And String", func(t *testing.T) {
		set := NewCapabilitySet(CapURLs, CapArtistByID)
		list := set.List()
		if len(list) != 2 || list[0] != CapArtistByID || list[1] != CapURLs {
			t.Errorf("expected declaration order, got %v", list)
		}
		if set.String() != "artist_by_id,urls" {
			t.Errorf("unexpected string %q", set.String())
		}
	})

	t.Run("ParseCapability", func(t *testing.T) {
		for _, c := range AllCapabilities() {
			got, ok := ParseCapability(c.String())
			if !ok || got != c {
				t.Errorf("round trip failed for %s", c)
			}
		}
		if _, ok := ParseCapability("teleport"); ok {
			t.Error("unknown name should not parse")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Register rejects undeclared implementations", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(&bareProvider{ns: "liar", caps: NewCapabilitySet(CapAlbumByID)})
		if !errors.Is(err, shared.ErrUnsupportedCapability) {
			t.Fatalf("expected ErrUnsupportedCapability, got %v", err)
		}
	})

	t.Run("Register rejects duplicates and empty namespaces", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(newStub("a", "a.test")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Register(newStub("a", "other.test")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected duplicate to fail, got %v", err)
		}
		if err := r.Register(newStub("", "x.test")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected empty namespace to fail, got %v", err)
		}
	})

	t.Run("Resolve filters by capability and enablement", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("a", "a.test"))
		_ = r.Register(newStub("off", "off.test"), Disabled())

		if _, ok := r.Resolve("a", CapAlbumByID); !ok {
			t.Error("expected a to resolve with album capability")
		}
		if _, ok := r.Resolve("a", CapAlbumByID, CapTrackByISRC); ok {
			t.Error("missing capability should be a negative result")
		}
		if _, ok := r.Resolve("off"); ok {
			t.Error("disabled provider should not resolve")
		}
		if _, ok := r.Resolve("missing"); ok {
			t.Error("unknown provider should not resolve")
		}

		if err := r.SetEnabled("off", true); err != nil {
			t.Fatalf("SetEnabled failed: %v", err)
		}
		if _, ok := r.Resolve("off"); !ok {
			t.Error("re-enabled provider should resolve")
		}
		if err := r.SetEnabled("missing", true); !errors.Is(err, shared.ErrUnknownProvider) {
			t.Errorf("expected unknown provider error, got %v", err)
		}
	})

	t.Run("Get ignores enablement", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("off", "off.test"), Disabled())

		if p, ok := r.Get("off"); !ok || p.Namespace() != "off" {
			t.Error("expected disabled provider from Get")
		}
		if _, ok := r.Get("missing"); ok {
			t.Error("unknown provider should not be returned")
		}
	})

	t.Run("ResolveProvider", func(t *testing.T) {
		r := NewRegistry()
		registered := newStub("a", "a.test")
		_ = r.Register(registered, Disabled())

		if _, ok := r.ResolveProvider(registered); ok {
			t.Error("disabled adapter should not resolve")
		}
		if _, ok := r.ResolveProvider(newStub("loose", "loose.test"), CapURLs); !ok {
			t.Error("unregistered adapter with the capability should resolve")
		}
		if _, ok := r.ResolveProvider(newStub("loose", "loose.test"), CapTrackByID); ok {
			t.Error("unregistered adapter without the capability should not resolve")
		}
		if _, ok := r.ResolveProvider(nil); ok {
			t.Error("nil adapter should not resolve")
		}
	})

	t.Run("List keeps registration order", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("b", "b.test"))
		_ = r.Register(&bareProvider{ns: "bare"})
		_ = r.Register(newStub("a", "a.test"))

		var got []string
		for _, p := range r.List(CapAlbumByID) {
			got = append(got, p.Namespace())
		}
		if strings.Join(got, ",") != "b,a" {
			t.Errorf("expected b,a got %v", got)
		}
		if len(r.List()) != 3 {
			t.Errorf("expected all providers without a filter")
		}
		if strings.Join(r.Namespaces(), ",") != "b,bare,a" {
			t.Errorf("unexpected namespaces %v", r.Namespaces())
		}
	})

	t.Run("ResolveURL first match wins", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("first", "shared.test"))
		_ = r.Register(newStub("second", "shared.test"))
		_ = r.Register(newStub("other", "other.test"))

		m, ok := r.ResolveURL("https://shared.test/album/42")
		if !ok || m.Namespace != "first" || m.ID != "42" || m.Entity != models.EntityAlbum {
			t.Errorf("unexpected match %+v (ok=%v)", m, ok)
		}

		m, ok = r.ResolveURL("https://other.test/artist/7")
		if !ok || m.Namespace != "other" || m.Entity != models.EntityArtist {
			t.Errorf("unexpected match %+v", m)
		}

		if _, ok := r.ResolveURL("https://unknown.test/album/1"); ok {
			t.Error("unknown host should not resolve")
		}
	})

	t.Run("Default", func(t *testing.T) {
		r := NewRegistry()
		if _, ok := r.Default(); ok {
			t.Error("empty registry has no default")
		}

		_ = r.Register(newStub("a", "a.test"))
		_ = r.Register(newStub("b", "b.test"))
		if p, _ := r.Default(); p.Namespace() != "a" {
			t.Errorf("expected first registered as default, got %s", p.Namespace())
		}

		_ = r.Register(newStub("c", "c.test"), AsDefault())
		if p, _ := r.Default(); p.Namespace() != "c" {
			t.Errorf("expected flagged default, got %s", p.Namespace())
		}
	})

	t.Run("Lookup asserts the capability interface", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("a", "a.test"))

		fetcher, ok := Lookup[AlbumFetcher](r, "a", CapAlbumByID)
		if !ok {
			t.Fatal("expected album fetcher")
		}
		album, err := fetcher.Album(context.Background(), "1")
		if err != nil || album.Provider != "a" {
			t.Errorf("unexpected album %+v, %v", album, err)
		}

		if _, ok := Lookup[TrackFetcher](r, "a"); ok {
			t.Error("stub does not implement TrackFetcher")
		}
	})

	t.Run("Require explains failures", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("a", "a.test"))
		_ = r.Register(newStub("off", "off.test"), Disabled())

		if _, err := r.Require("nope"); !errors.Is(err, shared.ErrUnknownProvider) {
			t.Errorf("expected unknown provider, got %v", err)
		}
		if _, err := r.Require("off"); !errors.Is(err, shared.ErrProviderDisabled) {
			t.Errorf("expected disabled provider, got %v", err)
		}
		if _, err := r.Require("a", CapArtistAlbums); !errors.Is(err, shared.ErrUnsupportedCapability) {
			t.Errorf("expected unsupported capability, got %v", err)
		}
		if _, err := r.Require("a", CapAlbumByID); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAdaptersDeclareImplementedCapabilities(t *testing.T) {
	spotify, err := NewSpotifyService(ClientOptions{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("failed to create spotify: %v", err)
	}
	tidal, err := NewTidalService(ClientOptions{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("failed to create tidal: %v", err)
	}

	r := NewRegistry()
	for _, p := range []Provider{spotify, NewDeezerService(ClientOptions{}), tidal} {
		if err := r.Register(p); err != nil {
			t.Errorf("%s: %v", p.Namespace(), err)
		}
	}

	if _, ok := r.Resolve("tidal", CapSearchArtist); ok {
		t.Error("tidal should not declare artist search")
	}
	if _, ok := r.Resolve("tidal", CapTrackByISRC); ok {
		t.Error("tidal should not declare isrc lookup")
	}
	if len(r.List(CapTrackByISRC)) != 2 {
		t.Errorf("expected spotify and deezer to support isrc lookup")
	}
}
