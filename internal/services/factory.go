package services

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/shared"
)

// NewRegistryFromConfig builds a registry holding every configured provider, in the order spotify,
// deezer, tidal. Providers disabled in the config, or lacking credentials, are registered disabled so
// lookups report them as disabled rather than unknown.
func NewRegistryFromConfig(cfg *shared.Config, store cache.Store, logger *log.Logger, httpClient *http.Client) (*Registry, error) {
	if logger == nil {
		logger = log.Default()
	}
	registry := NewRegistry()

	options := func(ns string) ClientOptions {
		pc := cfg.Provider(ns)
		return ClientOptions{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			CountryCode:  pc.CountryCode,
			RateLimit:    pc.RateLimit,
			HTTPClient:   httpClient,
			Store:        store,
			TTL:          cfg.Cache.TTL(),
			Logger:       logger,
		}
	}

	register := func(p Provider, err error) error {
		ns := p.Namespace()
		var opts []RegisterOption
		if ns == cfg.DefaultProvider {
			opts = append(opts, AsDefault())
		}
		if err != nil || !cfg.Provider(ns).Enabled {
			if err != nil {
				logger.Warn("provider unavailable", "provider", ns, "err", err)
			}
			opts = append(opts, Disabled())
		}
		if err := registry.Register(p, opts...); err != nil {
			return fmt.Errorf("failed to register %s: %w", ns, err)
		}
		return nil
	}

	spotify, err := NewSpotifyService(options("spotify"))
	if err != nil {
		spotify = &SpotifyService{client: newClient("spotify", spotifyBaseURL, options("spotify")), baseURL: spotifyWebURL}
	}
	if err := register(spotify, err); err != nil {
		return nil, err
	}

	if err := register(NewDeezerService(options("deezer")), nil); err != nil {
		return nil, err
	}

	tidal, err := NewTidalService(options("tidal"))
	if err != nil {
		tidal = &TidalService{client: newClient("tidal", tidalBaseURL, options("tidal")), country: "US", baseURL: tidalWebURL}
	}
	if err := register(tidal, err); err != nil {
		return nil, err
	}

	return registry, nil
}

// NewMusicBrainzFromConfig builds the registry adapter from configuration.
func NewMusicBrainzFromConfig(cfg *shared.Config, store cache.Store, logger *log.Logger, httpClient *http.Client) *MusicBrainzService {
	return NewMusicBrainzService(ClientOptions{
		BaseURL:    cfg.MusicBrainz.BaseURL,
		UserAgent:  cfg.MusicBrainz.UserAgent,
		RateLimit:  cfg.MusicBrainz.RateLimit,
		HTTPClient: httpClient,
		Store:      store,
		TTL:        cfg.Cache.TTL(),
		Logger:     logger,
	})
}
