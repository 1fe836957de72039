package reconcile

import (
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

// index maps external links and normalized names to registry release positions in insertion order.
type index struct {
	releases []models.Album
	byLink   map[string][]int
	byName   map[string][]int
}

// buildIndex indexes registry releases. A release listed twice under the same id is indexed once. When
// artistID is set, releases crediting that artist sort ahead of the rest under each name key.
func buildIndex(releases []models.Album, artistID string) *index {
	idx := &index{
		releases: releases,
		byLink:   make(map[string][]int),
		byName:   make(map[string][]int),
	}

	seen := make(map[string]bool, len(releases))
	for i, r := range releases {
		if r.ID != "" {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
		}

		links := make(map[string]bool, len(r.ExternalURLs))
		for _, link := range r.ExternalURLs {
			if link == "" || links[link] {
				continue
			}
			links[link] = true
			idx.byLink[link] = append(idx.byLink[link], i)
		}

		if key := shared.NormalizeName(r.Name); key != "" {
			idx.byName[key] = append(idx.byName[key], i)
		}
	}

	if artistID != "" {
		for key, hits := range idx.byName {
			idx.byName[key] = creditedFirst(releases, hits, artistID)
		}
	}
	return idx
}

// creditedFirst stably moves releases crediting artistID to the front.
func creditedFirst(releases []models.Album, hits []int, artistID string) []int {
	if len(hits) < 2 {
		return hits
	}
	out := make([]int, 0, len(hits))
	var rest []int
	for _, i := range hits {
		if credits(releases[i], artistID) {
			out = append(out, i)
		} else {
			rest = append(rest, i)
		}
	}
	return append(out, rest...)
}

func credits(album models.Album, artistID string) bool {
	for _, a := range album.Artists {
		if a.ID == artistID {
			return true
		}
	}
	return false
}

// pick resolves several hits to one release according to the policy.
func (idx *index) pick(hits []int, policy TieBreak) *models.Album {
	best := hits[0]
	if policy == TieBreakLatest {
		for _, i := range hits[1:] {
			if idx.releases[i].ReleaseDate > idx.releases[best].ReleaseDate {
				best = i
			}
		}
	}
	return &idx.releases[best]
}
