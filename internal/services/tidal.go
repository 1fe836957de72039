// TIDAL catalog API implementation of the provider contract
//
// Response types follow the catalog endpoints of https://developer.tidal.com/apiref (vnd.tidal.v1+json).

package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tidalTokenURL  = "https://auth.tidal.com/v1/oauth2/token"
	tidalBaseURL   = "https://openapi.tidal.com"
	tidalWebURL    = "https://tidal.com"
	tidalPageLimit = 100
	tidalMediaType = "application/vnd.tidal.v1+json"
)

type tidalImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type tidalArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Main bool   `json:"main"`
}

type tidalArtist struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Picture    []tidalImage `json:"picture"`
	Popularity float64      `json:"popularity"` // 0..1
	TidalURL   string       `json:"tidalUrl"`
}

type tidalAlbum struct {
	ID             string           `json:"id"`
	BarcodeID      string           `json:"barcodeId"`
	Title          string           `json:"title"`
	Artists        []tidalArtistRef `json:"artists"`
	ReleaseDate    string           `json:"releaseDate"`
	ImageCover     []tidalImage     `json:"imageCover"`
	NumberOfTracks int              `json:"numberOfTracks"`
	Type           string           `json:"type"`
	TidalURL       string           `json:"tidalUrl"`
}

type tidalTrack struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	ISRC        string           `json:"isrc"`
	Artists     []tidalArtistRef `json:"artists"`
	Album       *tidalAlbum      `json:"album,omitempty"`
	Duration    int              `json:"duration"` // seconds
	TrackNumber int              `json:"trackNumber"`
	TidalURL    string           `json:"tidalUrl"`
}

type tidalResource[T any] struct {
	Resource T `json:"resource"`
}

type tidalList[T any] struct {
	Data     []tidalResource[T] `json:"data"`
	Metadata struct {
		Total int `json:"total"`
	} `json:"metadata"`
}

// TidalService implements the TIDAL catalog. TIDAL offers no artist search or ISRC lookup through this
// API, so those capabilities are not declared.
type TidalService struct {
	client  *client
	country string
	baseURL string
}

// NewTidalService creates a new TIDAL adapter with the given client credentials.
func NewTidalService(o ClientOptions) (*TidalService, error) {
	if o.ClientID == "" || o.ClientSecret == "" {
		return nil, fmt.Errorf("%w: tidal client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	tokenURL := o.TokenURL
	if tokenURL == "" {
		tokenURL = tidalTokenURL
	}
	country := o.CountryCode
	if country == "" {
		country = "US"
	}

	c := newClient("tidal", tidalBaseURL, o)
	c.header.Set("Accept", tidalMediaType)
	c.tokens = ClientCredentialsSource(clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     tokenURL,
	}, o.HTTPClient)

	return &TidalService{client: c, country: country, baseURL: tidalWebURL}, nil
}

func (t *TidalService) Namespace() string { return "tidal" }
func (t *TidalService) Name() string      { return "TIDAL" }

func (t *TidalService) Capabilities() CapabilitySet {
	return NewCapabilitySet(CapArtistByID, CapArtistAlbums, CapAlbumByID, CapTrackByID, CapAlbumByUPC, CapIdentifiers, CapURLs)
}

func (t *TidalService) query(extra url.Values) url.Values {
	q := url.Values{"countryCode": {t.country}}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

// Artist retrieves an artist by ID.
func (t *TidalService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	var response tidalResource[tidalArtist]
	if err := t.client.getJSON(ctx, "/artists/"+pathID(id), t.query(nil), &response); err != nil {
		return nil, err
	}
	a := response.Resource
	return &models.Artist{
		ID:         a.ID,
		Provider:   t.Namespace(),
		Name:       a.Name,
		URL:        t.CreateURL(models.EntityArtist, a.ID),
		ImageURLs:  tidalImages(a.Picture),
		Popularity: int(a.Popularity * 100),
	}, nil
}

// ArtistAlbums retrieves one page of an artist's albums.
func (t *TidalService) ArtistAlbums(ctx context.Context, id string, offset, limit int) (*models.AlbumPage, error) {
	limit = clampLimit(limit, tidalPageLimit)
	q := t.query(url.Values{"offset": {strconv.Itoa(offset)}, "limit": {strconv.Itoa(limit)}})

	var response tidalList[tidalAlbum]
	if err := t.client.getJSON(ctx, "/artists/"+pathID(id)+"/albums", q, &response); err != nil {
		return nil, err
	}

	page := &models.AlbumPage{Total: response.Metadata.Total}
	for _, item := range response.Data {
		page.Albums = append(page.Albums, t.toAlbum(item.Resource))
	}
	page.Next = offset+len(response.Data) < response.Metadata.Total && len(response.Data) > 0
	return page, nil
}

// Album retrieves an album with its barcode and track list.
func (t *TidalService) Album(ctx context.Context, id string) (*models.Album, error) {
	var response tidalResource[tidalAlbum]
	if err := t.client.getJSON(ctx, "/albums/"+pathID(id), t.query(nil), &response); err != nil {
		return nil, err
	}
	return t.withTracks(ctx, response.Resource)
}

func (t *TidalService) withTracks(ctx context.Context, album tidalAlbum) (*models.Album, error) {
	out := t.toAlbum(album)
	for offset := 0; ; {
		q := t.query(url.Values{"offset": {strconv.Itoa(offset)}, "limit": {strconv.Itoa(tidalPageLimit)}})
		var items tidalList[tidalTrack]
		if err := t.client.getJSON(ctx, "/albums/"+pathID(album.ID)+"/items", q, &items); err != nil {
			return nil, err
		}
		for _, item := range items.Data {
			out.Tracks = append(out.Tracks, t.toTrack(item.Resource, album.Title))
		}
		offset += len(items.Data)
		if len(items.Data) == 0 || offset >= items.Metadata.Total {
			break
		}
	}
	if out.TrackCount == 0 {
		out.TrackCount = len(out.Tracks)
	}
	return &out, nil
}

// Track retrieves a single track by ID.
func (t *TidalService) Track(ctx context.Context, id string) (*models.Track, error) {
	var response tidalResource[tidalTrack]
	if err := t.client.getJSON(ctx, "/tracks/"+pathID(id), t.query(nil), &response); err != nil {
		return nil, err
	}
	albumName := ""
	if response.Resource.Album != nil {
		albumName = response.Resource.Album.Title
	}
	track := t.toTrack(response.Resource, albumName)
	return &track, nil
}

// AlbumByUPC looks an album up by barcode.
func (t *TidalService) AlbumByUPC(ctx context.Context, upc string) (*models.Album, error) {
	var response tidalList[tidalAlbum]
	q := t.query(url.Values{"barcodeId": {strings.TrimSpace(upc)}})
	if err := t.client.getJSON(ctx, "/albums/byBarcodeId", q, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: tidal album with upc %s", shared.ErrNotFound, upc)
	}
	return t.withTracks(ctx, response.Data[0].Resource)
}

func (t *TidalService) AlbumUPCs(album models.Album) []string  { return albumUPCs(album) }
func (t *TidalService) TrackISRCs(track models.Track) []string { return trackISRCs(track) }

// CreateURL builds a tidal.com browse link.
func (t *TidalService) CreateURL(entity models.EntityType, id string) string {
	return fmt.Sprintf("%s/%s/%s", t.baseURL, entity, id)
}

// ParseURL accepts tidal.com and listen.tidal.com links, with or without the browse segment.
func (t *TidalService) ParseURL(raw string) (models.EntityType, string, bool) {
	if entity, id, ok := parseEntityURL(raw, "tidal.com"); ok {
		return entity, id, true
	}
	return parseEntityURL(raw, "listen.tidal.com")
}

func (t *TidalService) toAlbum(a tidalAlbum) models.Album {
	return models.Album{
		ID:          a.ID,
		Provider:    t.Namespace(),
		Name:        a.Title,
		URL:         t.CreateURL(models.EntityAlbum, a.ID),
		ImageURLs:   tidalImages(a.ImageCover),
		Artists:     t.credits(a.Artists),
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.NumberOfTracks,
		AlbumType:   strings.ToLower(a.Type),
		Barcode:     a.BarcodeID,
	}
}

func (t *TidalService) toTrack(tr tidalTrack, albumName string) models.Track {
	var isrcs []string
	if tr.ISRC != "" {
		isrcs = []string{strings.ToUpper(tr.ISRC)}
	}
	return models.Track{
		ID:          tr.ID,
		Provider:    t.Namespace(),
		Name:        tr.Title,
		URL:         t.CreateURL(models.EntityTrack, tr.ID),
		AlbumName:   albumName,
		Artists:     t.credits(tr.Artists),
		DurationMS:  tr.Duration * 1000,
		TrackNumber: tr.TrackNumber,
		ISRCs:       isrcs,
	}
}

func (t *TidalService) credits(refs []tidalArtistRef) []models.ArtistCredit {
	out := make([]models.ArtistCredit, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.ArtistCredit{ID: r.ID, Name: r.Name, URL: t.CreateURL(models.EntityArtist, r.ID)})
	}
	return out
}

func tidalImages(images []tidalImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			out = append(out, img.URL)
		}
	}
	return out
}
