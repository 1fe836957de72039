package services

import (
	"context"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
)

// Capability is one operation a provider adapter may support.
type Capability uint

const (
	CapArtistByID Capability = iota
	CapSearchArtist
	CapArtistAlbums
	CapAlbumByID
	CapTrackByID
	CapAlbumByUPC
	CapTrackByISRC
	CapIdentifiers // UPC and ISRC extraction from canonical objects
	CapURLs        // external link creation and parsing
	capCount
)

var capabilityNames = [...]string{
	CapArtistByID:   "artist_by_id",
	CapSearchArtist: "search_artist",
	CapArtistAlbums: "artist_albums",
	CapAlbumByID:    "album_by_id",
	CapTrackByID:    "track_by_id",
	CapAlbumByUPC:   "album_by_upc",
	CapTrackByISRC:  "track_by_isrc",
	CapIdentifiers:  "identifiers",
	CapURLs:         "urls",
}

func (c Capability) String() string {
	if c < capCount {
		return capabilityNames[c]
	}
	return "unknown"
}

// ParseCapability maps a capability name back to its value.
func ParseCapability(name string) (Capability, bool) {
	for i, n := range capabilityNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return Capability(i), true
		}
	}
	return 0, false
}

// AllCapabilities lists every known capability in declaration order.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, capCount)
	for c := Capability(0); c < capCount; c++ {
		caps = append(caps, c)
	}
	return caps
}

// CapabilitySet is a bit set of capabilities declared by an adapter.
type CapabilitySet uint32

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= 1 << c
	}
	return s
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return c < capCount && s&(1<<c) != 0
}

// HasAll reports whether every capability in caps is in the set. An empty list is always satisfied.
func (s CapabilitySet) HasAll(caps ...Capability) bool {
	for _, c := range caps {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// List returns the members in declaration order.
func (s CapabilitySet) List() []Capability {
	var caps []Capability
	for _, c := range AllCapabilities() {
		if s.Has(c) {
			caps = append(caps, c)
		}
	}
	return caps
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, capCount)
	for _, c := range s.List() {
		names = append(names, c.String())
	}
	return strings.Join(names, ",")
}

// Provider is the identity every adapter exposes. Operations are reached through the capability interfaces below.
type Provider interface {
	Namespace() string           // Namespace is the stable lower-case key ("spotify", "deezer")
	Name() string                // Name is the display name
	Capabilities() CapabilitySet // Capabilities declares the operations the adapter implements
}

// ArtistFetcher backs [CapArtistByID].
type ArtistFetcher interface {
	Artist(ctx context.Context, id string) (*models.Artist, error)
}

// ArtistSearcher backs [CapSearchArtist].
type ArtistSearcher interface {
	SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error)
}

// ArtistAlbumsFetcher backs [CapArtistAlbums]. Albums in a page carry summary data only; barcodes and
// tracks require [AlbumFetcher].
type ArtistAlbumsFetcher interface {
	ArtistAlbums(ctx context.Context, id string, offset, limit int) (*models.AlbumPage, error)
}

// AlbumFetcher backs [CapAlbumByID] and returns full album detail including tracks.
type AlbumFetcher interface {
	Album(ctx context.Context, id string) (*models.Album, error)
}

// TrackFetcher backs [CapTrackByID].
type TrackFetcher interface {
	Track(ctx context.Context, id string) (*models.Track, error)
}

// UPCLookup backs [CapAlbumByUPC].
type UPCLookup interface {
	AlbumByUPC(ctx context.Context, upc string) (*models.Album, error)
}

// ISRCLookup backs [CapTrackByISRC].
type ISRCLookup interface {
	TracksByISRC(ctx context.Context, isrc string) ([]models.Track, error)
}

// IdentifierExtractor backs [CapIdentifiers].
type IdentifierExtractor interface {
	AlbumUPCs(album models.Album) []string
	TrackISRCs(track models.Track) []string
}

// URLCodec backs [CapURLs].
type URLCodec interface {
	CreateURL(entity models.EntityType, id string) string
	ParseURL(raw string) (models.EntityType, string, bool)
}

// implements reports whether p satisfies the interface behind c.
func implements(p Provider, c Capability) bool {
	var ok bool
	switch c {
	case CapArtistByID:
		_, ok = p.(ArtistFetcher)
	case CapSearchArtist:
		_, ok = p.(ArtistSearcher)
	case CapArtistAlbums:
		_, ok = p.(ArtistAlbumsFetcher)
	case CapAlbumByID:
		_, ok = p.(AlbumFetcher)
	case CapTrackByID:
		_, ok = p.(TrackFetcher)
	case CapAlbumByUPC:
		_, ok = p.(UPCLookup)
	case CapTrackByISRC:
		_, ok = p.(ISRCLookup)
	case CapIdentifiers:
		_, ok = p.(IdentifierExtractor)
	case CapURLs:
		_, ok = p.(URLCodec)
	}
	return ok
}
