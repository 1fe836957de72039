// Deezer public API implementation of the provider contract
//
// Response types based on https://developers.deezer.com/api

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

const (
	deezerBaseURL   = "https://api.deezer.com"
	deezerWebURL    = "https://www.deezer.com"
	deezerPageLimit = 100
	deezerTrackMax  = 500
)

type deezerArtist struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Link       string `json:"link"`
	Picture    string `json:"picture"`
	PictureBig string `json:"picture_big"`
	PictureXL  string `json:"picture_xl"`
	NbFan      int    `json:"nb_fan"`
}

type deezerAlbum struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	UPC          string         `json:"upc"`
	Link         string         `json:"link"`
	Cover        string         `json:"cover"`
	CoverBig     string         `json:"cover_big"`
	CoverXL      string         `json:"cover_xl"`
	NbTracks     int            `json:"nb_tracks"`
	ReleaseDate  string         `json:"release_date"`
	RecordType   string         `json:"record_type"`
	Artist       *deezerArtist  `json:"artist,omitempty"`
	Contributors []deezerArtist `json:"contributors"`
}

type deezerTrack struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	ISRC          string         `json:"isrc"`
	Link          string         `json:"link"`
	Duration      int            `json:"duration"` // seconds
	TrackPosition int            `json:"track_position"`
	DiskNumber    int            `json:"disk_number"`
	Artist        *deezerArtist  `json:"artist,omitempty"`
	Contributors  []deezerArtist `json:"contributors"`
	Album         *deezerAlbum   `json:"album,omitempty"`
}

type deezerList[T any] struct {
	Data  []T    `json:"data"`
	Total int    `json:"total"`
	Next  string `json:"next"`
}

type deezerError struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// checkDeezerBody maps errors Deezer reports with a 200 status onto HTTP-style provider errors.
func checkDeezerBody(endpoint string, body []byte) error {
	var e deezerError
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return nil
	}

	status := http.StatusBadRequest
	switch e.Error.Code {
	case 4: // quota
		status = http.StatusTooManyRequests
	case 700: // service busy
		status = http.StatusServiceUnavailable
	case 800: // no data
		status = http.StatusNotFound
	}
	return &shared.ProviderError{
		Provider:   "deezer",
		Endpoint:   endpoint,
		StatusCode: status,
		Err:        fmt.Errorf("%s %d: %s", e.Error.Type, e.Error.Code, e.Error.Message),
	}
}

// DeezerService implements the full provider capability set against the public Deezer API. No
// credentials are required.
type DeezerService struct {
	client  *client
	baseURL string
}

// NewDeezerService creates a new Deezer adapter.
func NewDeezerService(o ClientOptions) *DeezerService {
	c := newClient("deezer", deezerBaseURL, o)
	c.check = checkDeezerBody
	return &DeezerService{client: c, baseURL: deezerWebURL}
}

func (d *DeezerService) Namespace() string { return "deezer" }
func (d *DeezerService) Name() string      { return "Deezer" }

func (d *DeezerService) Capabilities() CapabilitySet {
	return NewCapabilitySet(AllCapabilities()...)
}

// Artist retrieves an artist by ID.
func (d *DeezerService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	var artist deezerArtist
	if err := d.client.getJSON(ctx, "/artist/"+pathID(id), nil, &artist); err != nil {
		return nil, err
	}
	a := d.toArtist(artist)
	return &a, nil
}

// SearchArtists searches artists by name.
func (d *DeezerService) SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}
	q := url.Values{"q": {name}, "limit": {strconv.Itoa(clampLimit(limit, deezerPageLimit))}}

	var response deezerList[deezerArtist]
	if err := d.client.getJSON(ctx, "/search/artist", q, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Data))
	for _, a := range response.Data {
		artists = append(artists, d.toArtist(a))
	}
	return artists, nil
}

// ArtistAlbums retrieves one page of an artist's releases.
func (d *DeezerService) ArtistAlbums(ctx context.Context, id string, offset, limit int) (*models.AlbumPage, error) {
	q := url.Values{"index": {strconv.Itoa(offset)}, "limit": {strconv.Itoa(clampLimit(limit, deezerPageLimit))}}

	var response deezerList[deezerAlbum]
	if err := d.client.getJSON(ctx, "/artist/"+pathID(id)+"/albums", q, &response); err != nil {
		return nil, err
	}

	page := &models.AlbumPage{Total: response.Total, Next: response.Next != ""}
	for _, a := range response.Data {
		page.Albums = append(page.Albums, d.toAlbum(a))
	}
	return page, nil
}

// Album retrieves an album with its barcode and track list.
func (d *DeezerService) Album(ctx context.Context, id string) (*models.Album, error) {
	var album deezerAlbum
	if err := d.client.getJSON(ctx, "/album/"+pathID(id), nil, &album); err != nil {
		return nil, err
	}
	return d.withTracks(ctx, album)
}

// withTracks loads the album's track listing, which carries ISRCs and positions.
func (d *DeezerService) withTracks(ctx context.Context, album deezerAlbum) (*models.Album, error) {
	var tracks deezerList[deezerTrack]
	q := url.Values{"limit": {strconv.Itoa(deezerTrackMax)}}
	endpoint := "/album/" + strconv.FormatInt(album.ID, 10) + "/tracks"
	if err := d.client.getJSON(ctx, endpoint, q, &tracks); err != nil {
		return nil, err
	}

	out := d.toAlbum(album)
	out.Tracks = make([]models.Track, 0, len(tracks.Data))
	for i, t := range tracks.Data {
		track := d.toTrack(t, album.Title)
		if track.TrackNumber == 0 {
			track.TrackNumber = i + 1
		}
		out.Tracks = append(out.Tracks, track)
	}
	if out.TrackCount == 0 {
		out.TrackCount = len(out.Tracks)
	}
	return &out, nil
}

// Track retrieves a single track by ID.
func (d *DeezerService) Track(ctx context.Context, id string) (*models.Track, error) {
	var track deezerTrack
	if err := d.client.getJSON(ctx, "/track/"+pathID(id), nil, &track); err != nil {
		return nil, err
	}
	albumName := ""
	if track.Album != nil {
		albumName = track.Album.Title
	}
	t := d.toTrack(track, albumName)
	return &t, nil
}

// AlbumByUPC looks an album up through the upc: id prefix.
func (d *DeezerService) AlbumByUPC(ctx context.Context, upc string) (*models.Album, error) {
	var album deezerAlbum
	if err := d.client.getJSON(ctx, "/album/upc:"+pathID(upc), nil, &album); err != nil {
		return nil, err
	}
	return d.withTracks(ctx, album)
}

// TracksByISRC looks a track up through the isrc: id prefix. Deezer returns at most one track.
func (d *DeezerService) TracksByISRC(ctx context.Context, isrc string) ([]models.Track, error) {
	var track deezerTrack
	if err := d.client.getJSON(ctx, "/track/isrc:"+pathID(isrc), nil, &track); err != nil {
		return nil, err
	}
	albumName := ""
	if track.Album != nil {
		albumName = track.Album.Title
	}
	return []models.Track{d.toTrack(track, albumName)}, nil
}

func (d *DeezerService) AlbumUPCs(album models.Album) []string  { return albumUPCs(album) }
func (d *DeezerService) TrackISRCs(track models.Track) []string { return trackISRCs(track) }

// CreateURL builds a www.deezer.com link.
func (d *DeezerService) CreateURL(entity models.EntityType, id string) string {
	return fmt.Sprintf("%s/%s/%s", d.baseURL, entity, id)
}

// ParseURL accepts deezer.com links with or without a locale segment.
func (d *DeezerService) ParseURL(raw string) (models.EntityType, string, bool) {
	entity, id, ok := parseEntityURL(raw, "deezer.com")
	if !ok {
		return "", "", false
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", "", false
	}
	return entity, id, true
}

func (d *DeezerService) toArtist(a deezerArtist) models.Artist {
	id := strconv.FormatInt(a.ID, 10)
	return models.Artist{
		ID:        id,
		Provider:  d.Namespace(),
		Name:      a.Name,
		URL:       d.CreateURL(models.EntityArtist, id),
		ImageURLs: nonEmpty(a.PictureXL, a.PictureBig, a.Picture),
		Followers: a.NbFan,
	}
}

func (d *DeezerService) toAlbum(a deezerAlbum) models.Album {
	id := strconv.FormatInt(a.ID, 10)
	album := models.Album{
		ID:          id,
		Provider:    d.Namespace(),
		Name:        a.Title,
		URL:         d.CreateURL(models.EntityAlbum, id),
		ImageURLs:   nonEmpty(a.CoverXL, a.CoverBig, a.Cover),
		Artists:     d.credits(a.Artist, a.Contributors),
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.NbTracks,
		AlbumType:   a.RecordType,
		Barcode:     a.UPC,
	}
	return album
}

func (d *DeezerService) toTrack(t deezerTrack, albumName string) models.Track {
	id := strconv.FormatInt(t.ID, 10)
	var isrcs []string
	if t.ISRC != "" {
		isrcs = []string{strings.ToUpper(t.ISRC)}
	}
	return models.Track{
		ID:          id,
		Provider:    d.Namespace(),
		Name:        t.Title,
		URL:         d.CreateURL(models.EntityTrack, id),
		AlbumName:   albumName,
		Artists:     d.credits(t.Artist, t.Contributors),
		DurationMS:  t.Duration * 1000,
		TrackNumber: t.TrackPosition,
		ISRCs:       isrcs,
	}
}

// credits merges the main artist with contributors, without duplicates.
func (d *DeezerService) credits(main *deezerArtist, contributors []deezerArtist) []models.ArtistCredit {
	var out []models.ArtistCredit
	seen := make(map[int64]bool)
	add := func(a deezerArtist) {
		if a.ID == 0 || seen[a.ID] {
			return
		}
		seen[a.ID] = true
		id := strconv.FormatInt(a.ID, 10)
		out = append(out, models.ArtistCredit{ID: id, Name: a.Name, URL: d.CreateURL(models.EntityArtist, id)})
	}
	if main != nil {
		add(*main)
	}
	for _, c := range contributors {
		add(c)
	}
	return out
}

// nonEmpty returns the non-empty values in order.
func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
