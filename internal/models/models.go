package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// The only implementation is [CacheEntry]; reconciled results are never persisted.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// EntityType names the kind of catalog object an external URL points at.
type EntityType string

const (
	EntityArtist EntityType = "artist"
	EntityAlbum  EntityType = "album"
	EntityTrack  EntityType = "track"
)

// Artist is the canonical artist shape every provider produces.
type Artist struct {
	ID         string   `json:"id"`
	Provider   string   `json:"provider"`
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	ImageURLs  []string `json:"image_urls,omitempty"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres,omitempty"`
	MBID       string   `json:"mbid,omitempty"` // registry id, empty when unknown
}

// ArtistCredit is a lightweight artist reference attached to albums and tracks.
type ArtistCredit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Album is the canonical release shape.
//
// ReleaseDate is an ISO date string that may be truncated to a year or year-month.
// Registry albums carry ExternalURLs (their url relationships); source albums usually do not.
type Album struct {
	ID           string         `json:"id"`
	Provider     string         `json:"provider"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	ImageURLs    []string       `json:"image_urls,omitempty"`
	Artists      []ArtistCredit `json:"artists,omitempty"`
	ReleaseDate  string         `json:"release_date,omitempty"`
	TrackCount   int            `json:"track_count"`
	AlbumType    string         `json:"album_type,omitempty"`
	Barcode      string         `json:"barcode,omitempty"`
	Tracks       []Track        `json:"tracks,omitempty"`
	ExternalURLs []string       `json:"external_urls,omitempty"`
	Registry     *Album         `json:"registry,omitempty"` // registry counterpart when already known
}

// HasCoverArt reports whether the album exposes at least one image.
func (a Album) HasCoverArt() bool {
	for _, u := range a.ImageURLs {
		if u != "" {
			return true
		}
	}
	return false
}

// Track is the canonical recording shape.
type Track struct {
	ID           string         `json:"id"`
	Provider     string         `json:"provider"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	AlbumName    string         `json:"album_name,omitempty"`
	Artists      []ArtistCredit `json:"artists,omitempty"`
	DurationMS   int            `json:"duration_ms"`
	TrackNumber  int            `json:"track_number"`
	ISRCs        []string       `json:"isrcs,omitempty"`
	ExternalURLs []string       `json:"external_urls,omitempty"`
}

// AlbumPage is one page of an artist's catalog.
type AlbumPage struct {
	Albums []Album `json:"albums"`
	Total  int     `json:"total"`
	Next   bool    `json:"next"` // true when another page exists after this one
}
