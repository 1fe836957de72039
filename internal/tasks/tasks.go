package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/reconcile"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
)

// Warning is a partial failure. The operation still returns results for whatever data was obtained.
type Warning struct {
	Provider string `json:"provider"`
	ArtistID string `json:"artist_id,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (w Warning) String() string {
	if w.ArtistID != "" {
		return fmt.Sprintf("%s (%s): %s", w.Provider, w.ArtistID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Provider, w.Message)
}

func newWarning(provider, artistID string, attempts int, err error) Warning {
	return Warning{Provider: provider, ArtistID: artistID, Attempts: attempts, Message: err.Error(), Err: err}
}

// EngineOptions configures a [CatalogEngine].
type EngineOptions struct {
	StrictProviders []string
	TieBreak        reconcile.TieBreak
	Concurrency     int                // bound on concurrent upstream calls per fan-out
	DeepSearchCount int                // albums examined by deep search when a request sets none
	Retry           shared.RetryPolicy // per-page retry; zero value uses [shared.DefaultRetryPolicy]
	Logger          *log.Logger
}

// EngineOptionsFromConfig maps the reconcile section of the configuration.
func EngineOptionsFromConfig(cfg *shared.Config, logger *log.Logger) (EngineOptions, error) {
	tb, err := reconcile.ParseTieBreak(cfg.Reconcile.TieBreak)
	if err != nil {
		return EngineOptions{}, err
	}
	return EngineOptions{
		StrictProviders: cfg.Reconcile.StrictProviders,
		TieBreak:        tb,
		Concurrency:     cfg.Reconcile.Concurrency,
		DeepSearchCount: cfg.Reconcile.DeepSearchCount,
		Retry:           shared.DefaultRetryPolicy(),
		Logger:          logger,
	}, nil
}

// CatalogEngine runs reconciliation and deep search for any registered provider.
// Contains dependencies on the provider registry and the release registry.
type CatalogEngine struct {
	providers *services.Registry
	registry  services.ReleaseRegistry
	opts      EngineOptions
	logger    *log.Logger
}

// NewCatalogEngine creates a new CatalogEngine.
func NewCatalogEngine(providers *services.Registry, registry services.ReleaseRegistry, opts EngineOptions) *CatalogEngine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.DeepSearchCount <= 0 {
		opts.DeepSearchCount = 5
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = shared.DefaultRetryPolicy()
	}
	if opts.TieBreak == "" {
		opts.TieBreak = reconcile.TieBreakFirst
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogEngine{providers: providers, registry: registry, opts: opts, logger: logger}
}

// target is a resolved request input: one provider and the artist ids to read from it.
type target struct {
	provider services.Provider
	ids      []string
}

// resolveTarget accepts an artist id, comma-separated ids or a provider artist link. A link selects its
// provider when ns is empty and must agree with ns otherwise.
func (e *CatalogEngine) resolveTarget(ns, input string, caps ...services.Capability) (target, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return target{}, fmt.Errorf("%w: artist id or url", shared.ErrMissingArgument)
	}
	ns = strings.ToLower(strings.TrimSpace(ns))

	var ids []string
	if m, ok := e.providers.ResolveURL(input); ok {
		if m.Entity != models.EntityArtist {
			return target{}, fmt.Errorf("%w: %s link points at %s %s, not an artist", shared.ErrInvalidInput, m.Namespace, m.Entity, m.ID)
		}
		if ns != "" && ns != m.Namespace {
			return target{}, fmt.Errorf("%w: link belongs to %s, not %s", shared.ErrInvalidInput, m.Namespace, ns)
		}
		ns, ids = m.Namespace, []string{m.ID}
	} else {
		if strings.Contains(input, "://") {
			return target{}, fmt.Errorf("%w: no provider recognises %s", shared.ErrInvalidInput, input)
		}
		for _, id := range strings.Split(input, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return target{}, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
		}
	}

	if ns == "" {
		p, ok := e.providers.Default()
		if !ok {
			return target{}, fmt.Errorf("%w: no providers registered", shared.ErrUnknownProvider)
		}
		ns = p.Namespace()
	}

	p, err := e.providers.Require(ns, caps...)
	if err != nil {
		return target{}, err
	}
	return target{provider: p, ids: ids}, nil
}

// artist fetches the first artist profile when the provider supports it. Failures become warnings.
func (e *CatalogEngine) artist(ctx context.Context, t target) (*models.Artist, *Warning) {
	fetcher, ok := t.provider.(services.ArtistFetcher)
	if !ok || !t.provider.Capabilities().Has(services.CapArtistByID) {
		return nil, nil
	}

	var artist *models.Artist
	attempts, err := shared.Retry(ctx, e.opts.Retry, func(ctx context.Context) error {
		var err error
		artist, err = fetcher.Artist(ctx, t.ids[0])
		return err
	})
	if err != nil {
		w := newWarning(t.provider.Namespace(), t.ids[0], attempts, fmt.Errorf("artist profile unavailable: %w", err))
		return nil, &w
	}
	return artist, nil
}

// artistURL is the provider link the registry stores for an artist.
func artistURL(p services.Provider, artist *models.Artist, id string) string {
	if artist != nil && artist.URL != "" {
		return artist.URL
	}
	if codec, ok := p.(services.URLCodec); ok && p.Capabilities().Has(services.CapURLs) {
		return codec.CreateURL(models.EntityArtist, id)
	}
	return ""
}
