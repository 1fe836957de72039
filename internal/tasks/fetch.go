package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	catalogPageSize = 50
	releasePageSize = 100
	maxPages        = 100
)

// warnings collects partial failures from concurrent fetches.
type warnings struct {
	mu   sync.Mutex
	list []Warning
}

func (w *warnings) add(warn Warning) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, warn)
}

func (w *warnings) all() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.list...)
}

// retryPolicy returns the engine policy with retries logged at debug level.
func (e *CatalogEngine) retryPolicy(logger *log.Logger, kv ...any) shared.RetryPolicy {
	p := e.opts.Retry
	p.OnRetry = func(attempt int, err error) {
		args := append([]any{"attempt", attempt, "err", err}, kv...)
		logger.Debug("retrying", args...)
	}
	return p
}

// pageFunc fetches one page at offset.
type pageFunc func(ctx context.Context, offset int) (*models.AlbumPage, error)

// paginate reads pages sequentially, retrying each page. On a page that keeps failing it stops and returns
// what was read so far together with the attempts made and the error.
func paginate(ctx context.Context, policy shared.RetryPolicy, fetch pageFunc) ([]models.Album, int, error) {
	var albums []models.Album
	for range maxPages {
		var page *models.AlbumPage
		attempts, err := shared.Retry(ctx, policy, func(ctx context.Context) error {
			var err error
			page, err = fetch(ctx, len(albums))
			return err
		})
		if err != nil {
			return albums, attempts, err
		}
		if page == nil {
			break
		}
		albums = append(albums, page.Albums...)
		if !page.Next || len(page.Albums) == 0 {
			break
		}
	}
	return albums, 0, nil
}

// fetchCatalog reads every album of each artist id. Ids are fetched concurrently and pages of one id
// sequentially. Results keep the order of ids.
func (e *CatalogEngine) fetchCatalog(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, t target, warns *warnings) []models.Album {
	fetcher, _ := t.provider.(services.ArtistAlbumsFetcher)
	ns := t.provider.Namespace()

	results := make([][]models.Album, len(t.ids))
	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(e.opts.Concurrency)

	for i, id := range t.ids {
		g.Go(func() error {
			policy := e.retryPolicy(logger, "artist_id", id)
			albums, attempts, err := paginate(ctx, policy, func(ctx context.Context, offset int) (*models.AlbumPage, error) {
				return fetcher.ArtistAlbums(ctx, id, offset, catalogPageSize)
			})
			if err != nil {
				logger.Warn("catalog fetch abandoned", "artist_id", id, "attempts", attempts, "err", err)
				warns.add(newWarning(ns, id, attempts, fmt.Errorf("catalog incomplete after %d albums: %w", len(albums), err)))
			}
			results[i] = albums

			mu.Lock()
			done++
			sendProgress(progress, fetchCatalogUpdate(done, len(t.ids), id, len(albums)))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Album
	for _, albums := range results {
		out = append(out, albums...)
	}
	return out
}

// fetchReleases browses own and featured registry releases concurrently.
func (e *CatalogEngine) fetchReleases(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, mbid string, withTracks bool, warns *warnings) []models.Album {
	scopes := []services.ReleaseScope{services.ScopeOwn, services.ScopeFeatured}
	results := make([][]models.Album, len(scopes))

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, scope := range scopes {
		g.Go(func() error {
			policy := e.retryPolicy(logger, "mbid", mbid, "scope", scope)
			releases, attempts, err := paginate(ctx, policy, func(ctx context.Context, offset int) (*models.AlbumPage, error) {
				return e.registry.ArtistReleases(ctx, mbid, scope, offset, releasePageSize, withTracks)
			})
			if err != nil {
				logger.Warn("registry fetch abandoned", "mbid", mbid, "scope", scope, "attempts", attempts, "err", err)
				warns.add(newWarning(registryNamespace(err), mbid, attempts, fmt.Errorf("%s releases incomplete: %w", scope, err)))
			}
			results[i] = releases
			sendProgress(progress, fetchReleasesUpdate(scope.String(), len(releases)))
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Album
	for _, releases := range results {
		out = append(out, releases...)
	}
	return out
}

// fetchDetails replaces each album with its full detail. Albums whose detail fails keep their summary.
func (e *CatalogEngine) fetchDetails(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, p services.Provider, albums []models.Album, warns *warnings) []models.Album {
	fetcher, ok := p.(services.AlbumFetcher)
	if !ok || !p.Capabilities().Has(services.CapAlbumByID) {
		return albums
	}

	out := make([]models.Album, len(albums))
	copy(out, albums)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(e.opts.Concurrency)
	for i, album := range albums {
		g.Go(func() error {
			var detail *models.Album
			attempts, err := shared.Retry(ctx, e.retryPolicy(logger, "album_id", album.ID), func(ctx context.Context) error {
				var err error
				detail, err = fetcher.Album(ctx, album.ID)
				return err
			})
			if err == nil && detail == nil {
				err = fmt.Errorf("%w: album %s", shared.ErrNotFound, album.ID)
			}
			if err != nil {
				logger.Warn("album detail unavailable", "album_id", album.ID, "attempts", attempts, "err", err)
				warns.add(newWarning(p.Namespace(), "", attempts, fmt.Errorf("album %s detail unavailable: %w", album.ID, err)))
			} else {
				if detail.Registry == nil {
					detail.Registry = album.Registry
				}
				out[i] = *detail
			}

			mu.Lock()
			done++
			sendProgress(progress, fetchDetailsUpdate(done, len(albums), album))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// registryNamespace names the registry in warnings, falling back when the error carries no provider.
func registryNamespace(err error) string {
	if ns := shared.ProviderOf(err); ns != "" {
		return ns
	}
	return "registry"
}
