package reconcile

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

// TieBreak selects a registry release when an index lookup returns more than one.
type TieBreak string

const (
	TieBreakFirst  TieBreak = "first"  // first inserted release wins
	TieBreakLatest TieBreak = "latest" // most recent release date wins
	TieBreakFlag   TieBreak = "flag"   // first wins and the album carries [models.IssueAmbiguousMatch]
)

// ParseTieBreak validates a policy name. The empty string selects [TieBreakFirst].
func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(s))); tb {
	case "":
		return TieBreakFirst, nil
	case TieBreakFirst, TieBreakLatest, TieBreakFlag:
		return tb, nil
	}
	return "", fmt.Errorf("%w: unknown tie-break policy %q", shared.ErrInvalidInput, s)
}

// Options controls comparison depth.
type Options struct {
	// Quick skips checks that need complete registry data (cover art).
	Quick bool
	// Full enables track-count comparison and per-track tiering. Registry releases should carry tracks.
	Full bool
	// StrictProviders always expose barcodes and ISRCs, so their absence is reported as an issue.
	StrictProviders []string
	TieBreak        TieBreak
}

// Input is one reconciliation request.
type Input struct {
	Source   []models.Album // albums of one artist from one provider
	Registry []models.Album // registry releases carrying their external links
	ArtistID string         // registry artist id, empty when unknown
}

// Counts aggregates tiers. Green, Orange and Red count link matches, name matches and unmatched albums.
type Counts struct {
	Total      int `json:"total"`
	Green      int `json:"green"`
	Orange     int `json:"orange"`
	Red        int `json:"red"`
	WithIssues int `json:"with_issues"`
}

// Result is the reconciled catalog.
type Result struct {
	Albums  []models.ReconciledAlbum `json:"albums"`
	Counts  Counts                   `json:"counts"`
	Summary string                   `json:"summary"`
}

// Engine reconciles source albums against registry releases.
type Engine struct {
	opts   Options
	strict map[string]bool
}

// New creates an engine. An empty tie-break selects [TieBreakFirst].
func New(opts Options) *Engine {
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakFirst
	}
	strict := make(map[string]bool, len(opts.StrictProviders))
	for _, ns := range opts.StrictProviders {
		strict[strings.ToLower(ns)] = true
	}
	return &Engine{opts: opts, strict: strict}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Reconcile tiers every source album, computes issues for the matched ones and aggregates counts.
//
// Source albums are deduplicated by id, keeping the first occurrence. The only error is a wrapped
// [shared.ErrInvariant], returned when a matched registry release has no id.
func (e *Engine) Reconcile(in Input) (*Result, error) {
	idx := buildIndex(in.Registry, in.ArtistID)
	source := Dedupe(in.Source)

	result := &Result{Albums: make([]models.ReconciledAlbum, 0, len(source))}
	for _, album := range source {
		ra, err := e.reconcileAlbum(idx, album)
		if err != nil {
			return nil, err
		}
		result.Albums = append(result.Albums, ra)
	}

	result.Counts = Count(result.Albums)
	result.Summary = Summarize(result.Counts)
	return result, nil
}

func (e *Engine) reconcileAlbum(idx *index, album models.Album) (models.ReconciledAlbum, error) {
	ra := models.ReconciledAlbum{Album: album, Status: models.Unmatched, Issues: []models.AlbumIssue{}}

	counterpart, status, candidates := e.match(idx, album)
	if status == models.Unmatched {
		if e.opts.Full {
			ra.Tracks = unmatchedTracks(album.Tracks)
		}
		return ra, nil
	}
	if counterpart.ID == "" {
		return ra, fmt.Errorf("%w: matched registry release %q for album %s has no id", shared.ErrInvariant, counterpart.Name, album.ID)
	}

	ra.Status = status
	ra.RegistryID = counterpart.ID
	ra.RegistryName = counterpart.Name
	ra.Issues = e.issues(album, *counterpart)
	if e.opts.TieBreak == TieBreakFlag && candidates > 1 {
		ra.Issues = append(ra.Issues, models.IssueAmbiguousMatch)
	}
	if e.opts.Full {
		ra.Tracks = reconcileTracks(album, *counterpart)
	}
	return ra, nil
}

// match returns the counterpart, its tier and the number of candidates the winning lookup returned.
func (e *Engine) match(idx *index, album models.Album) (*models.Album, models.MatchStatus, int) {
	if album.Registry != nil && album.Registry.ID != "" {
		return album.Registry, models.LinkMatch, 1
	}
	if hits := idx.byLink[album.URL]; album.URL != "" && len(hits) > 0 {
		return idx.pick(hits, e.opts.TieBreak), models.LinkMatch, len(hits)
	}
	if hits := idx.byName[shared.NormalizeName(album.Name)]; len(hits) > 0 {
		return idx.pick(hits, e.opts.TieBreak), models.NameMatch, len(hits)
	}
	return nil, models.Unmatched, 0
}

// Dedupe drops albums whose id was already seen, keeping the first. Albums without an id are kept.
func Dedupe(albums []models.Album) []models.Album {
	seen := make(map[string]bool, len(albums))
	out := make([]models.Album, 0, len(albums))
	for _, a := range albums {
		if a.ID != "" {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
		}
		out = append(out, a)
	}
	return out
}

// Count aggregates tiers and issue presence.
func Count(albums []models.ReconciledAlbum) Counts {
	var c Counts
	for _, a := range albums {
		c.Total++
		switch a.Status {
		case models.LinkMatch:
			c.Green++
		case models.NameMatch:
			c.Orange++
		default:
			c.Red++
		}
		if len(a.Issues) > 0 {
			c.WithIssues++
		}
	}
	return c
}

// Summarize renders counts as one line.
func Summarize(c Counts) string {
	if c.Total == 0 {
		return "No albums to reconcile"
	}
	noun := "albums"
	if c.Total == 1 {
		noun = "album"
	}
	return fmt.Sprintf("%d %s: %d linked, %d matched by name, %d unmatched (%d with issues)",
		c.Total, noun, c.Green, c.Orange, c.Red, c.WithIssues)
}
