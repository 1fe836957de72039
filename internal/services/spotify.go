// Spotify Web API implementation of the provider contract
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/

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
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyWebURL   = "https://open.spotify.com"

	spotifyPageLimit  = 50
	spotifyTrackBatch = 50
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
	UPC  string `json:"upc"`
	EAN  string `json:"ean"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Followers    followers      `json:"followers"`
	Popularity   int            `json:"popularity"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyTrack represents a Spotify track. Simplified tracks embedded in albums omit the album and external ids.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        *SpotifyAlbum   `json:"album,omitempty"`
	DurationMS   int             `json:"duration_ms"`
	TrackNumber  int             `json:"track_number"`
	DiscNumber   int             `json:"disc_number"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifyTrackPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
	Next  *string        `json:"next"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	AlbumType    string           `json:"album_type"`
	Artists      []SpotifyArtist  `json:"artists"`
	ReleaseDate  string           `json:"release_date"`
	TotalTracks  int              `json:"total_tracks"`
	Images       []SpotifyImage   `json:"images"`
	ExternalIDs  externalIDs      `json:"external_ids"`
	ExternalURLs externalURLs     `json:"external_urls"`
	Tracks       spotifyTrackPage `json:"tracks"`
}

type spotifyAlbumPage struct {
	Items []SpotifyAlbum `json:"items"`
	Total int            `json:"total"`
	Next  *string        `json:"next"`
}

// SpotifyService implements the full provider capability set against the Spotify Web API.
//
// Catalog reads only need an app token, obtained with the client credentials grant and held in an
// adapter-local [TokenSource].
type SpotifyService struct {
	client  *client
	market  string
	baseURL string
}

// NewSpotifyService creates a new Spotify adapter with the given client credentials.
func NewSpotifyService(o ClientOptions) (*SpotifyService, error) {
	if o.ClientID == "" || o.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	tokenURL := o.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	c := newClient("spotify", spotifyBaseURL, o)
	c.tokens = ClientCredentialsSource(clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     tokenURL,
	}, o.HTTPClient)

	return &SpotifyService{client: c, market: o.CountryCode, baseURL: spotifyWebURL}, nil
}

func (s *SpotifyService) Namespace() string { return "spotify" }
func (s *SpotifyService) Name() string      { return "Spotify" }

func (s *SpotifyService) Capabilities() CapabilitySet {
	return NewCapabilitySet(AllCapabilities()...)
}

func (s *SpotifyService) marketQuery(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if s.market != "" {
		q.Set("market", s.market)
	}
	return q
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	var artist SpotifyArtist
	if err := s.client.getJSON(ctx, "/artists/"+pathID(id), nil, &artist); err != nil {
		return nil, err
	}
	a := s.toArtist(artist)
	return &a, nil
}

// SearchArtists searches artists by name.
func (s *SpotifyService) SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}
	q := url.Values{"q": {name}, "type": {"artist"}, "limit": {strconv.Itoa(clampLimit(limit, spotifyPageLimit))}}

	var response struct {
		Artists struct {
			Items []SpotifyArtist `json:"items"`
		} `json:"artists"`
	}
	if err := s.client.getJSON(ctx, "/search", q, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists.Items))
	for _, a := range response.Artists.Items {
		artists = append(artists, s.toArtist(a))
	}
	return artists, nil
}

// ArtistAlbums retrieves one page of an artist's albums, singles and compilations.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, id string, offset, limit int) (*models.AlbumPage, error) {
	q := s.marketQuery(url.Values{
		"include_groups": {"album,single,compilation"},
		"offset":         {strconv.Itoa(offset)},
		"limit":          {strconv.Itoa(clampLimit(limit, spotifyPageLimit))},
	})

	var response spotifyAlbumPage
	if err := s.client.getJSON(ctx, "/artists/"+pathID(id)+"/albums", q, &response); err != nil {
		return nil, err
	}

	page := &models.AlbumPage{Total: response.Total, Next: response.Next != nil}
	for _, a := range response.Items {
		page.Albums = append(page.Albums, s.toAlbum(a))
	}
	return page, nil
}

// Album retrieves an album with its barcode and every track, including track ISRCs.
func (s *SpotifyService) Album(ctx context.Context, id string) (*models.Album, error) {
	var album SpotifyAlbum
	if err := s.client.getJSON(ctx, "/albums/"+pathID(id), s.marketQuery(nil), &album); err != nil {
		return nil, err
	}

	items := album.Tracks.Items
	for next := album.Tracks.Next; next != nil; {
		var page spotifyTrackPage
		q := s.marketQuery(url.Values{"offset": {strconv.Itoa(len(items))}, "limit": {strconv.Itoa(spotifyPageLimit)}})
		if err := s.client.getJSON(ctx, "/albums/"+pathID(id)+"/tracks", q, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		items = append(items, page.Items...)
		next = page.Next
	}

	full, err := s.fullTracks(ctx, items)
	if err != nil {
		return nil, err
	}

	out := s.toAlbum(album)
	out.Tracks = make([]models.Track, 0, len(full))
	for _, t := range full {
		out.Tracks = append(out.Tracks, s.toTrack(t, album.Name))
	}
	return &out, nil
}

// fullTracks fetches full track objects in batches so ISRCs are available.
func (s *SpotifyService) fullTracks(ctx context.Context, simple []SpotifyTrack) ([]SpotifyTrack, error) {
	full := make([]SpotifyTrack, 0, len(simple))
	for start := 0; start < len(simple); start += spotifyTrackBatch {
		end := min(start+spotifyTrackBatch, len(simple))
		ids := make([]string, 0, end-start)
		for _, t := range simple[start:end] {
			ids = append(ids, t.ID)
		}

		var response struct {
			Tracks []*SpotifyTrack `json:"tracks"`
		}
		q := s.marketQuery(url.Values{"ids": {strings.Join(ids, ",")}})
		if err := s.client.getJSON(ctx, "/tracks", q, &response); err != nil {
			return nil, err
		}
		for i, t := range response.Tracks {
			if t == nil {
				full = append(full, simple[start+i])
				continue
			}
			full = append(full, *t)
		}
	}
	return full, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, id string) (*models.Track, error) {
	var track SpotifyTrack
	if err := s.client.getJSON(ctx, "/tracks/"+pathID(id), s.marketQuery(nil), &track); err != nil {
		return nil, err
	}
	albumName := ""
	if track.Album != nil {
		albumName = track.Album.Name
	}
	t := s.toTrack(track, albumName)
	return &t, nil
}

// AlbumByUPC finds an album through the upc search filter and returns its full detail.
func (s *SpotifyService) AlbumByUPC(ctx context.Context, upc string) (*models.Album, error) {
	q := url.Values{"q": {"upc:" + strings.TrimSpace(upc)}, "type": {"album"}, "limit": {"1"}}

	var response struct {
		Albums spotifyAlbumPage `json:"albums"`
	}
	if err := s.client.getJSON(ctx, "/search", q, &response); err != nil {
		return nil, err
	}
	if len(response.Albums.Items) == 0 {
		return nil, fmt.Errorf("%w: spotify album with upc %s", shared.ErrNotFound, upc)
	}
	return s.Album(ctx, response.Albums.Items[0].ID)
}

// TracksByISRC finds tracks through the isrc search filter.
func (s *SpotifyService) TracksByISRC(ctx context.Context, isrc string) ([]models.Track, error) {
	q := url.Values{"q": {"isrc:" + strings.TrimSpace(isrc)}, "type": {"track"}, "limit": {"10"}}

	var response struct {
		Tracks spotifyTrackPage `json:"tracks"`
	}
	if err := s.client.getJSON(ctx, "/search", q, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, t := range response.Tracks.Items {
		albumName := ""
		if t.Album != nil {
			albumName = t.Album.Name
		}
		tracks = append(tracks, s.toTrack(t, albumName))
	}
	return tracks, nil
}

func (s *SpotifyService) AlbumUPCs(album models.Album) []string  { return albumUPCs(album) }
func (s *SpotifyService) TrackISRCs(track models.Track) []string { return trackISRCs(track) }

// CreateURL builds an open.spotify.com link.
func (s *SpotifyService) CreateURL(entity models.EntityType, id string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, entity, id)
}

// ParseURL accepts open.spotify.com links (with or without a locale segment) and spotify: URIs.
func (s *SpotifyService) ParseURL(raw string) (models.EntityType, string, bool) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		kind, id, ok := strings.Cut(rest, ":")
		if !ok {
			return "", "", false
		}
		return entityFromSegments([]string{kind, id})
	}
	return parseEntityURL(raw, "open.spotify.com")
}

func (s *SpotifyService) toArtist(a SpotifyArtist) models.Artist {
	return models.Artist{
		ID:         a.ID,
		Provider:   s.Namespace(),
		Name:       a.Name,
		URL:        s.CreateURL(models.EntityArtist, a.ID),
		ImageURLs:  spotifyImages(a.Images),
		Followers:  a.Followers.Total,
		Popularity: a.Popularity,
		Genres:     a.Genres,
	}
}

func (s *SpotifyService) toAlbum(a SpotifyAlbum) models.Album {
	barcode := a.ExternalIDs.UPC
	if barcode == "" {
		barcode = a.ExternalIDs.EAN
	}
	return models.Album{
		ID:          a.ID,
		Provider:    s.Namespace(),
		Name:        a.Name,
		URL:         s.CreateURL(models.EntityAlbum, a.ID),
		ImageURLs:   spotifyImages(a.Images),
		Artists:     s.credits(a.Artists),
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.TotalTracks,
		AlbumType:   a.AlbumType,
		Barcode:     barcode,
	}
}

func (s *SpotifyService) toTrack(t SpotifyTrack, albumName string) models.Track {
	var isrcs []string
	if t.ExternalIDs.ISRC != "" {
		isrcs = []string{strings.ToUpper(t.ExternalIDs.ISRC)}
	}
	return models.Track{
		ID:          t.ID,
		Provider:    s.Namespace(),
		Name:        t.Name,
		URL:         s.CreateURL(models.EntityTrack, t.ID),
		AlbumName:   albumName,
		Artists:     s.credits(t.Artists),
		DurationMS:  t.DurationMS,
		TrackNumber: t.TrackNumber,
		ISRCs:       isrcs,
	}
}

func (s *SpotifyService) credits(artists []SpotifyArtist) []models.ArtistCredit {
	out := make([]models.ArtistCredit, 0, len(artists))
	for _, a := range artists {
		out = append(out, models.ArtistCredit{ID: a.ID, Name: a.Name, URL: s.CreateURL(models.EntityArtist, a.ID)})
	}
	return out
}

func spotifyImages(images []SpotifyImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			out = append(out, img.URL)
		}
	}
	return out
}
