// MusicBrainz web service implementation of the release registry
//
// Response types based on https://musicbrainz.org/doc/MusicBrainz_API

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

const (
	musicBrainzBaseURL   = "https://musicbrainz.org/ws/2"
	musicBrainzWebURL    = "https://musicbrainz.org"
	coverArtArchiveURL   = "https://coverartarchive.org"
	musicBrainzPageLimit = 100
	musicBrainzAgent     = "mbx/0.1 ( https://github.com/desertthunder/mbx )"
)

// ReleaseScope selects which releases of an artist a browse returns.
type ReleaseScope int

const (
	ScopeOwn      ReleaseScope = iota // releases credited to the artist
	ScopeFeatured                     // releases where the artist is credited on a track only
)

func (s ReleaseScope) String() string {
	if s == ScopeFeatured {
		return "featured"
	}
	return "own"
}

// ReleaseRegistry is the canonical metadata registry reconciliation compares providers against.
type ReleaseRegistry interface {
	// ArtistIDForURL returns the registry artist linked to a provider artist URL, or "" when none is linked.
	ArtistIDForURL(ctx context.Context, rawURL string) (string, error)
	// ArtistReleases browses one page of an artist's releases with their external links. withTracks adds
	// media, recordings and ISRCs.
	ArtistReleases(ctx context.Context, mbid string, scope ReleaseScope, offset, limit int, withTracks bool) (*models.AlbumPage, error)
	// ReleasesByBarcode searches releases carrying a barcode, with their credited artists.
	ReleasesByBarcode(ctx context.Context, barcode string) ([]models.Album, error)
}

type mbArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mbArtistCredit struct {
	Name   string   `json:"name"`
	Artist mbArtist `json:"artist"`
}

type mbRelation struct {
	Type   string    `json:"type"`
	URL    *mbURL    `json:"url,omitempty"`
	Artist *mbArtist `json:"artist,omitempty"`
}

type mbURL struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
}

type mbRecording struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Length    int          `json:"length"`
	ISRCs     []string     `json:"isrcs"`
	Relations []mbRelation `json:"relations"`
}

type mbTrack struct {
	ID        string      `json:"id"`
	Number    string      `json:"number"`
	Position  int         `json:"position"`
	Title     string      `json:"title"`
	Length    int         `json:"length"`
	Recording mbRecording `json:"recording"`
}

type mbMedium struct {
	Position   int       `json:"position"`
	TrackCount int       `json:"track-count"`
	Tracks     []mbTrack `json:"tracks"`
}

type mbCoverArt struct {
	Front bool `json:"front"`
	Count int  `json:"count"`
}

type mbRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	Barcode      *string          `json:"barcode"`
	Status       string           `json:"status"`
	CoverArt     mbCoverArt       `json:"cover-art-archive"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	Relations    []mbRelation     `json:"relations"`
	Media        []mbMedium       `json:"media"`
	ReleaseGroup struct {
		PrimaryType string `json:"primary-type"`
	} `json:"release-group"`
}

// MusicBrainzService implements [ReleaseRegistry] against the MusicBrainz web service. Requests are
// limited to one per second by default as the service requires.
type MusicBrainzService struct {
	client *client
}

// NewMusicBrainzService creates the registry adapter.
func NewMusicBrainzService(o ClientOptions) *MusicBrainzService {
	if o.UserAgent == "" {
		o.UserAgent = musicBrainzAgent
	}
	if o.RateLimit == 0 {
		o.RateLimit = 1
	}
	return &MusicBrainzService{client: newClient("musicbrainz", musicBrainzBaseURL, o)}
}

func (m *MusicBrainzService) Namespace() string { return "musicbrainz" }
func (m *MusicBrainzService) Name() string      { return "MusicBrainz" }

// ArtistIDForURL resolves a provider link through url relationships.
func (m *MusicBrainzService) ArtistIDForURL(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	q := url.Values{"resource": {rawURL}, "inc": {"artist-rels"}, "fmt": {"json"}}

	var response struct {
		Relations []mbRelation `json:"relations"`
	}
	err := m.client.getJSON(ctx, "/url", q, &response)
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	for _, rel := range response.Relations {
		if rel.Artist != nil && rel.Artist.ID != "" {
			return rel.Artist.ID, nil
		}
	}
	return "", nil
}

// ArtistReleases browses releases by artist (own) or by track artist (featured).
func (m *MusicBrainzService) ArtistReleases(ctx context.Context, mbid string, scope ReleaseScope, offset, limit int, withTracks bool) (*models.AlbumPage, error) {
	if strings.TrimSpace(mbid) == "" {
		return nil, fmt.Errorf("%w: mbid", shared.ErrMissingArgument)
	}

	inc := []string{"url-rels", "artist-credits", "release-groups"}
	if withTracks {
		inc = append(inc, "recordings", "isrcs", "recording-level-rels")
	} else {
		inc = append(inc, "media")
	}

	param := "artist"
	if scope == ScopeFeatured {
		param = "track_artist"
	}
	limit = clampLimit(limit, musicBrainzPageLimit)
	q := url.Values{
		param:    {mbid},
		"inc":    {strings.Join(inc, " ")},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"fmt":    {"json"},
	}

	var response struct {
		Count    int         `json:"release-count"`
		Offset   int         `json:"release-offset"`
		Releases []mbRelease `json:"releases"`
	}
	if err := m.client.getJSON(ctx, "/release", q, &response); err != nil {
		return nil, err
	}

	page := &models.AlbumPage{Total: response.Count}
	for _, r := range response.Releases {
		page.Albums = append(page.Albums, m.toAlbum(r, withTracks))
	}
	page.Next = len(response.Releases) > 0 && offset+len(response.Releases) < response.Count
	return page, nil
}

// ReleasesByBarcode searches releases by barcode.
func (m *MusicBrainzService) ReleasesByBarcode(ctx context.Context, barcode string) ([]models.Album, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode", shared.ErrMissingArgument)
	}
	q := url.Values{"query": {"barcode:" + barcode}, "limit": {"25"}, "fmt": {"json"}}

	var response struct {
		Releases []mbRelease `json:"releases"`
	}
	if err := m.client.getJSON(ctx, "/release", q, &response); err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(response.Releases))
	for _, r := range response.Releases {
		albums = append(albums, m.toAlbum(r, false))
	}
	return albums, nil
}

func (m *MusicBrainzService) toAlbum(r mbRelease, withTracks bool) models.Album {
	album := models.Album{
		ID:           r.ID,
		Provider:     m.Namespace(),
		Name:         r.Title,
		URL:          fmt.Sprintf("%s/release/%s", musicBrainzWebURL, r.ID),
		ReleaseDate:  r.Date,
		AlbumType:    strings.ToLower(r.ReleaseGroup.PrimaryType),
		ExternalURLs: relationURLs(r.Relations),
	}
	if r.Barcode != nil {
		album.Barcode = *r.Barcode
	}
	if r.CoverArt.Front {
		album.ImageURLs = []string{fmt.Sprintf("%s/release/%s/front", coverArtArchiveURL, r.ID)}
	}
	for _, ac := range r.ArtistCredit {
		name := ac.Name
		if name == "" {
			name = ac.Artist.Name
		}
		album.Artists = append(album.Artists, models.ArtistCredit{
			ID:   ac.Artist.ID,
			Name: name,
			URL:  fmt.Sprintf("%s/artist/%s", musicBrainzWebURL, ac.Artist.ID),
		})
	}

	for _, medium := range r.Media {
		album.TrackCount += medium.TrackCount
		if !withTracks {
			continue
		}
		for _, t := range medium.Tracks {
			length := t.Length
			if length == 0 {
				length = t.Recording.Length
			}
			album.Tracks = append(album.Tracks, models.Track{
				ID:           t.Recording.ID,
				Provider:     m.Namespace(),
				Name:         t.Title,
				URL:          fmt.Sprintf("%s/recording/%s", musicBrainzWebURL, t.Recording.ID),
				AlbumName:    r.Title,
				DurationMS:   length,
				TrackNumber:  t.Position,
				ISRCs:        t.Recording.ISRCs,
				ExternalURLs: relationURLs(t.Recording.Relations),
			})
		}
	}
	return album
}

func relationURLs(relations []mbRelation) []string {
	var out []string
	for _, rel := range relations {
		if rel.URL != nil && rel.URL.Resource != "" {
			out = append(out, rel.URL.Resource)
		}
	}
	return out
}
