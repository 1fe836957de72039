package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/sync/errgroup"
)

// LowConfidenceThreshold is the name similarity below which a deep-search match needs manual review.
const LowConfidenceThreshold = 0.30

// Method names how deep search chose its winner.
type Method string

const (
	MethodMostCommon     Method = "most_common"
	MethodNameSimilarity Method = "name_similarity"
)

// Outcome distinguishes a match from the ways deep search can come up empty.
type Outcome string

const (
	OutcomeMatched    Outcome = "matched"
	OutcomeNoAlbums   Outcome = "no_albums"
	OutcomeNoBarcodes Outcome = "no_barcodes"
	OutcomeNoMatches  Outcome = "no_matches"
)

// Message explains outcomes other than a match.
func (o Outcome) Message() string {
	switch o {
	case OutcomeNoAlbums:
		return "no albums found for this artist"
	case OutcomeNoBarcodes:
		return "none of the examined albums carry a barcode"
	case OutcomeNoMatches:
		return "no registry release matches any barcode"
	default:
		return "matched"
	}
}

// DeepSearchRequest selects a provider artist and how many albums to examine.
type DeepSearchRequest struct {
	Provider string
	Input    string
	Count    int // albums to examine; zero uses the engine default
	NoCache  bool
}

// Candidate is one registry artist credited on releases sharing a barcode with the source albums.
type Candidate struct {
	MBID       string  `json:"mbid"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Similarity float64 `json:"similarity"`
}

// BarcodeMatch records the registry releases found for one source album barcode.
type BarcodeMatch struct {
	AlbumID   string   `json:"album_id"`
	AlbumName string   `json:"album_name"`
	Barcode   string   `json:"barcode"`
	Releases  []string `json:"releases"`
}

// DeepSearchResult is the outcome of one deep search. MBID is empty unless Outcome is [OutcomeMatched].
type DeepSearchResult struct {
	Provider       string         `json:"provider"`
	ArtistID       string         `json:"artist_id"`
	MBID           string         `json:"mbid,omitempty"`
	Method         Method         `json:"method,omitempty"`
	NameSimilarity float64        `json:"name_similarity"`
	SourceName     string         `json:"source_name"`
	MBName         string         `json:"mb_name,omitempty"`
	MostCommonMBID string         `json:"most_common_mbid,omitempty"`
	Artists        []Candidate    `json:"artists"`
	Albums         []BarcodeMatch `json:"albums"`
	Outcome        Outcome        `json:"outcome"`
	LowConfidence  bool           `json:"low_confidence"`
	Warnings       []Warning      `json:"warnings,omitempty"`
}

// DeepSearch identifies the registry artist of a provider artist that has no registry link, by looking up
// the barcodes of its albums and tallying the credited registry artists.
//
// Empty outcomes are reported through [DeepSearchResult.Outcome], never as errors.
func (e *CatalogEngine) DeepSearch(ctx context.Context, progress chan<- ProgressUpdate, req DeepSearchRequest) (*DeepSearchResult, error) {
	t, err := e.resolveTarget(req.Provider, req.Input, services.CapArtistAlbums)
	if err != nil {
		return nil, err
	}
	if e.registry == nil {
		return nil, fmt.Errorf("%w: no release registry configured", shared.ErrServiceUnavailable)
	}
	if req.NoCache {
		ctx = cache.WithBypass(ctx)
	}
	count := req.Count
	if count <= 0 {
		count = e.opts.DeepSearchCount
	}

	ns := t.provider.Namespace()
	id := t.ids[0]
	logger := e.logger.With("request_id", shared.GenerateID(), "provider", ns)
	logger.Info("deep search", "artist_id", id, "count", count)
	sendProgress(progress, resolveInputUpdate(ns, t.ids[:1]))

	warns := &warnings{}
	result := &DeepSearchResult{Provider: ns, ArtistID: id, Artists: []Candidate{}, Albums: []BarcodeMatch{}}

	artist, warn := e.artist(ctx, t)
	if warn != nil {
		warns.add(*warn)
	}

	single := target{provider: t.provider, ids: []string{id}}
	albums := e.fetchCatalog(ctx, progress, logger, single, warns)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.SourceName = sourceName(artist, albums, id)

	defer func() { result.Warnings = warns.all() }()
	if len(albums) == 0 {
		result.Outcome = OutcomeNoAlbums
		return result, nil
	}

	withBarcodes := e.barcodedAlbums(ctx, progress, logger, t.provider, albums, count, warns)
	if len(withBarcodes) == 0 {
		result.Outcome = OutcomeNoBarcodes
		return result, nil
	}

	tally := newTally()
	for _, m := range e.lookupBarcodes(ctx, progress, logger, withBarcodes, warns) {
		result.Albums = append(result.Albums, m.BarcodeMatch)
		for _, r := range m.releases {
			tally.add(r)
		}
	}
	sendProgress(progress, tallyUpdate(len(tally.order)))
	if len(tally.order) == 0 {
		result.Outcome = OutcomeNoMatches
		return result, nil
	}

	pick := tally.pick(result.SourceName)
	result.Outcome = OutcomeMatched
	result.MBID = pick.winner.MBID
	result.MBName = pick.winner.Name
	result.Method = pick.method
	result.MostCommonMBID = pick.mostCommon
	result.NameSimilarity = pick.winner.Similarity
	result.LowConfidence = pick.winner.Similarity < LowConfidenceThreshold
	result.Artists = tally.candidates()

	logger.Info("deep search matched", "mbid", result.MBID, "method", result.Method, "similarity", result.NameSimilarity)
	return result, nil
}

// sourceName prefers the artist profile, then the matching credit on one of the albums.
func sourceName(artist *models.Artist, albums []models.Album, id string) string {
	if artist != nil && artist.Name != "" {
		return artist.Name
	}
	for _, a := range albums {
		for _, c := range a.Artists {
			if c.ID == id && c.Name != "" {
				return c.Name
			}
		}
	}
	for _, a := range albums {
		if len(a.Artists) > 0 {
			return a.Artists[0].Name
		}
	}
	return ""
}

// barcodedAlbums picks up to count albums with a barcode. Albums already carrying one come first; the rest
// are filled from album details when the provider supports them. Each returned album's Barcode holds the
// barcode to look up.
func (e *CatalogEngine) barcodedAlbums(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, p services.Provider, albums []models.Album, count int, warns *warnings) []models.Album {
	var ready, pending []models.Album
	seen := make(map[string]bool)
	for _, a := range albums {
		if codes := e.barcodes(p, a); len(codes) > 0 {
			if key := shared.StripLeadingZeros(codes[0]); !seen[key] {
				seen[key] = true
				a.Barcode = codes[0]
				ready = append(ready, a)
			}
		} else {
			pending = append(pending, a)
		}
	}
	if len(ready) >= count {
		return ready[:count]
	}

	pending = pending[:min(len(pending), count-len(ready))]
	for _, a := range e.fetchDetails(ctx, progress, logger, p, pending, warns) {
		if codes := e.barcodes(p, a); len(codes) > 0 {
			if key := shared.StripLeadingZeros(codes[0]); !seen[key] {
				seen[key] = true
				a.Barcode = codes[0]
				ready = append(ready, a)
			}
		}
	}
	return ready
}

func (e *CatalogEngine) barcodes(p services.Provider, a models.Album) []string {
	if ex, ok := p.(services.IdentifierExtractor); ok && p.Capabilities().Has(services.CapIdentifiers) {
		return ex.AlbumUPCs(a)
	}
	if b := strings.TrimSpace(a.Barcode); b != "" {
		return []string{b}
	}
	return nil
}

// match is a barcode lookup with the releases it found.
type match struct {
	BarcodeMatch
	releases []models.Album
}

// lookupBarcodes queries the registry for every album barcode with bounded concurrency. Results keep the
// album order so the tally is deterministic.
func (e *CatalogEngine) lookupBarcodes(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, albums []models.Album, warns *warnings) []match {
	out := make([]match, len(albums))
	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(e.opts.Concurrency)
	for i, album := range albums {
		g.Go(func() error {
			barcode := strings.TrimSpace(album.Barcode)
			m := match{BarcodeMatch: BarcodeMatch{AlbumID: album.ID, AlbumName: album.Name, Barcode: barcode, Releases: []string{}}}

			var releases []models.Album
			attempts, err := shared.Retry(ctx, e.retryPolicy(logger, "barcode", barcode), func(ctx context.Context) error {
				var err error
				releases, err = e.registry.ReleasesByBarcode(ctx, barcode)
				return err
			})
			if err != nil {
				logger.Warn("barcode lookup failed", "barcode", barcode, "attempts", attempts, "err", err)
				warns.add(newWarning(registryNamespace(err), "", attempts, fmt.Errorf("barcode %s lookup failed: %w", barcode, err)))
			}
			for _, r := range releases {
				if shared.BarcodesEqual(r.Barcode, barcode) || r.Barcode == "" {
					m.releases = append(m.releases, r)
					m.Releases = append(m.Releases, r.ID)
				}
			}
			out[i] = m

			mu.Lock()
			done++
			sendProgress(progress, lookupBarcodeUpdate(done, len(albums), barcode, len(m.releases)))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// tally counts credited registry artists in first-seen order.
type tally struct {
	order  []string
	counts map[string]int
	names  map[string]string
	scores map[string]float64
}

func newTally() *tally {
	return &tally{counts: make(map[string]int), names: make(map[string]string), scores: make(map[string]float64)}
}

// add credits each distinct artist of a release once.
func (t *tally) add(release models.Album) {
	seen := make(map[string]bool, len(release.Artists))
	for _, a := range release.Artists {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if _, ok := t.counts[a.ID]; !ok {
			t.order = append(t.order, a.ID)
			t.names[a.ID] = a.Name
		}
		t.counts[a.ID]++
	}
}

type selection struct {
	winner     Candidate
	method     Method
	mostCommon string
}

// pick selects the mode. A tie at the top is broken by name similarity to sourceName, then by first seen.
// Similarity is scored for every candidate so the winner always carries one.
func (t *tally) pick(sourceName string) selection {
	best := 0
	var tied []string
	for _, id := range t.order {
		t.scores[id] = shared.Similarity(sourceName, t.names[id])
		switch c := t.counts[id]; {
		case c > best:
			best, tied = c, []string{id}
		case c == best:
			tied = append(tied, id)
		}
	}

	sel := selection{method: MethodMostCommon, mostCommon: tied[0]}
	winner := tied[0]
	if len(tied) > 1 {
		sel.method = MethodNameSimilarity
		for _, id := range tied[1:] {
			if t.scores[id] > t.scores[winner] {
				winner = id
			}
		}
	}
	sel.winner = t.candidate(winner)
	return sel
}

func (t *tally) candidate(id string) Candidate {
	return Candidate{MBID: id, Name: t.names[id], Count: t.counts[id], Similarity: t.scores[id]}
}

// candidates lists every tallied artist by count, highest first, keeping first-seen order within a count.
func (t *tally) candidates() []Candidate {
	out := make([]Candidate, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.candidate(id))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
