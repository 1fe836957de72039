package reconcile

import (
	"maps"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

// issues diffs a source album against its registry counterpart. The order of the returned issues is fixed.
//
// Mismatches, missing dates and missing cover art are always reported. Absence of a barcode or ISRC is
// reported only for strict providers, since other providers may legitimately omit those fields.
func (e *Engine) issues(src, reg models.Album) []models.AlbumIssue {
	strict := e.strict[strings.ToLower(src.Provider)]
	out := []models.AlbumIssue{}

	srcBarcode, regBarcode := strings.TrimSpace(src.Barcode), strings.TrimSpace(reg.Barcode)
	switch {
	case srcBarcode != "" && regBarcode != "":
		if !shared.BarcodesEqual(srcBarcode, regBarcode) {
			out = append(out, models.IssueBarcodeMismatch)
		}
	case strict:
		out = append(out, models.IssueMissingBarcode)
	}

	missing, mismatch := compareISRCs(src.Tracks, reg.Tracks)
	if missing && strict {
		out = append(out, models.IssueMissingISRCs)
	}
	if mismatch {
		out = append(out, models.IssueISRCMismatch)
	}

	if e.opts.Full && trackCount(src) != trackCount(reg) {
		out = append(out, models.IssueTrackCountMismatch)
	}

	srcDate, regDate := strings.TrimSpace(src.ReleaseDate), strings.TrimSpace(reg.ReleaseDate)
	switch {
	case srcDate != "" && regDate != "":
		if !DatesEqual(srcDate, regDate) {
			out = append(out, models.IssueDateMismatch)
		}
	default:
		out = append(out, models.IssueMissingDate)
	}

	if !e.opts.Quick && !reg.HasCoverArt() {
		out = append(out, models.IssueMissingCoverArt)
	}
	return out
}

// compareISRCs aligns tracks by position. missing is set when either side of an aligned pair has no ISRC.
// mismatch is set when both sides of a pair have ISRCs and share none, or when the ISRCs of the whole album
// differ between the two listings. Albums without tracks on either side report neither.
func compareISRCs(src, reg []models.Track) (missing, mismatch bool) {
	if len(src) == 0 || len(reg) == 0 {
		return false, false
	}

	n := min(len(src), len(reg))
	for i := range n {
		a, b := isrcSet(src[i].ISRCs), isrcSet(reg[i].ISRCs)
		if len(a) == 0 || len(b) == 0 {
			missing = true
			continue
		}
		if !overlaps(a, b) {
			mismatch = true
		}
	}

	all, regAll := albumISRCs(src), albumISRCs(reg)
	if len(all) > 0 && len(regAll) > 0 && !maps.Equal(all, regAll) {
		mismatch = true
	}
	return missing, mismatch
}

func albumISRCs(tracks []models.Track) map[string]bool {
	set := map[string]bool{}
	for _, t := range tracks {
		maps.Copy(set, isrcSet(t.ISRCs))
	}
	return set
}

func isrcSet(isrcs []string) map[string]bool {
	set := make(map[string]bool, len(isrcs))
	for _, code := range isrcs {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			set[code] = true
		}
	}
	return set
}

func overlaps(a, b map[string]bool) bool {
	for code := range a {
		if b[code] {
			return true
		}
	}
	return false
}

func trackCount(a models.Album) int {
	if a.TrackCount > 0 {
		return a.TrackCount
	}
	return len(a.Tracks)
}

// DatesEqual compares ISO dates that may be truncated. A less precise date equals a more precise one it
// prefixes, so "2020" equals "2020-05-01" but "2020-1" does not equal "2020-12".
func DatesEqual(a, b string) bool {
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return short != "" && strings.HasPrefix(long, short) && long[len(short)] == '-'
}
