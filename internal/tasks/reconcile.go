package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/reconcile"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/sync/errgroup"
)

// ReconcileRequest selects a provider artist and the comparison depth.
type ReconcileRequest struct {
	Provider string // namespace; empty uses the link's provider or the default
	Input    string // artist id, comma-separated ids or artist link
	MBID     string // registry artist id; resolved from the artist link when empty
	Quick    bool
	Full     bool
	NoCache  bool // skip cache lookups for this request
}

// ReconcileReport is the outcome of one reconciliation.
type ReconcileReport struct {
	Provider  string            `json:"provider"`
	ArtistIDs []string          `json:"artist_ids"`
	Artist    *models.Artist    `json:"artist,omitempty"`
	MBID      string            `json:"mbid,omitempty"`
	Result    *reconcile.Result `json:"result"`
	Warnings  []Warning         `json:"warnings,omitempty"`
}

// Reconcile fetches the provider catalog and the registry releases of the artist and reconciles them.
//
// Caller input errors are returned immediately. Upstream failures that survive retries are reported as
// warnings and the report covers whatever data was obtained. An artist with no registry link yields an
// all-unmatched report with a warning.
func (e *CatalogEngine) Reconcile(ctx context.Context, progress chan<- ProgressUpdate, req ReconcileRequest) (*ReconcileReport, error) {
	caps := []services.Capability{services.CapArtistAlbums}
	if req.Full {
		caps = append(caps, services.CapAlbumByID)
	}
	t, err := e.resolveTarget(req.Provider, req.Input, caps...)
	if err != nil {
		return nil, err
	}
	if req.NoCache {
		ctx = cache.WithBypass(ctx)
	}

	ns := t.provider.Namespace()
	logger := e.logger.With("request_id", shared.GenerateID(), "provider", ns)
	logger.Info("reconcile", "artist_ids", t.ids, "quick", req.Quick, "full", req.Full)
	sendProgress(progress, resolveInputUpdate(ns, t.ids))

	warns := &warnings{}
	report := &ReconcileReport{Provider: ns, ArtistIDs: t.ids, MBID: req.MBID}

	artist, warn := e.artist(ctx, t)
	if warn != nil {
		warns.add(*warn)
	}
	report.Artist = artist

	if report.MBID == "" {
		mbid, err := e.resolveMBID(ctx, t, artist)
		switch {
		case err != nil:
			logger.Warn("registry lookup failed", "err", err)
			warns.add(newWarning(registryNamespace(err), t.ids[0], 0, fmt.Errorf("registry artist lookup failed: %w", err)))
		case mbid == "":
			warns.add(Warning{
				Provider: ns,
				ArtistID: t.ids[0],
				Message:  "no registry artist is linked to this artist; run deep-search to find one",
			})
		}
		report.MBID = mbid
	}
	if artist != nil && artist.MBID == "" {
		artist.MBID = report.MBID
	}
	sendProgress(progress, resolveArtistUpdate(report.MBID))

	var (
		g        errgroup.Group
		source   []models.Album
		releases []models.Album
	)
	g.Go(func() error {
		source = e.fetchCatalog(ctx, progress, logger, t, warns)
		if req.Full {
			source = e.fetchDetails(ctx, progress, logger, t.provider, reconcile.Dedupe(source), warns)
		}
		return nil
	})
	if report.MBID != "" {
		g.Go(func() error {
			releases = e.fetchReleases(ctx, progress, logger, report.MBID, req.Full, warns)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sendProgress(progress, compareUpdate(len(source)))
	engine := reconcile.New(reconcile.Options{
		Quick:           req.Quick,
		Full:            req.Full,
		StrictProviders: e.opts.StrictProviders,
		TieBreak:        e.opts.TieBreak,
	})
	result, err := engine.Reconcile(reconcile.Input{Source: source, Registry: releases, ArtistID: report.MBID})
	if err != nil {
		logger.Error("reconcile failed", "err", err)
		return nil, err
	}

	report.Result = result
	report.Warnings = warns.all()
	logger.Info("reconciled", "summary", result.Summary, "warnings", len(report.Warnings))
	return report, nil
}

// resolveMBID asks the registry which artist links to the provider artist.
func (e *CatalogEngine) resolveMBID(ctx context.Context, t target, artist *models.Artist) (string, error) {
	if e.registry == nil {
		return "", fmt.Errorf("%w: no release registry configured", shared.ErrServiceUnavailable)
	}
	link := artistURL(t.provider, artist, t.ids[0])
	if link == "" {
		return "", fmt.Errorf("%w: %s cannot build artist links", shared.ErrUnsupportedCapability, t.provider.Namespace())
	}

	var mbid string
	_, err := shared.Retry(ctx, e.opts.Retry, func(ctx context.Context) error {
		var err error
		mbid, err = e.registry.ArtistIDForURL(ctx, link)
		return err
	})
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	return mbid, err
}
