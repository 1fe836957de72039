package services

import (
	"net/url"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
)

// clampLimit bounds a page size to (0, ceiling], defaulting non-positive values to ceiling.
func clampLimit(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

// albumUPCs returns the album barcode as a one-element list, or nil when absent.
func albumUPCs(album models.Album) []string {
	if b := strings.TrimSpace(album.Barcode); b != "" {
		return []string{b}
	}
	return nil
}

// trackISRCs returns the non-empty ISRCs of a track, upper-cased.
func trackISRCs(track models.Track) []string {
	var out []string
	for _, isrc := range track.ISRCs {
		if isrc = strings.ToUpper(strings.TrimSpace(isrc)); isrc != "" {
			out = append(out, isrc)
		}
	}
	return out
}

// parseEntityURL accepts https links on host (with or without "www.") whose path ends in /{entity}/{id}.
// Leading locale segments such as "intl-de" or "us" and a "browse" prefix are skipped.
func parseEntityURL(raw, host string) (models.EntityType, string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return "", "", false
	}
	if strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") != strings.TrimPrefix(host, "www.") {
		return "", "", false
	}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	for len(segments) > 2 && (isLocaleSegment(segments[0]) || segments[0] == "browse") {
		segments = segments[1:]
	}
	return entityFromSegments(segments)
}

func entityFromSegments(segments []string) (models.EntityType, string, bool) {
	if len(segments) != 2 || segments[1] == "" {
		return "", "", false
	}
	switch entity := models.EntityType(strings.ToLower(segments[0])); entity {
	case models.EntityArtist, models.EntityAlbum, models.EntityTrack:
		return entity, segments[1], true
	}
	return "", "", false
}

func isLocaleSegment(seg string) bool {
	return strings.HasPrefix(seg, "intl-") || len(seg) == 2 || (len(seg) == 5 && seg[2] == '-')
}
