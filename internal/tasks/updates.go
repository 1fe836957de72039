package tasks

import (
	"fmt"

	"github.com/desertthunder/mbx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveInput Phase = iota
	ResolveArtist
	FetchCatalog
	FetchReleases
	FetchDetails
	Compare
	LookupBarcodes
	Tally
)

func (p Phase) String() string {
	switch p {
	case ResolveInput:
		return "resolve_input"
	case ResolveArtist:
		return "resolve_artist"
	case FetchCatalog:
		return "fetch_catalog"
	case FetchReleases:
		return "fetch_releases"
	case FetchDetails:
		return "fetch_details"
	case Compare:
		return "compare"
	case LookupBarcodes:
		return "lookup_barcodes"
	case Tally:
		return "tally"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func resolveInputUpdate(provider string, ids []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveInput,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolved %d %s artist id(s)", len(ids), provider),
		Data:    ids,
	}
}

func resolveArtistUpdate(mbid string) ProgressUpdate {
	msg := "No registry artist linked"
	if mbid != "" {
		msg = fmt.Sprintf("Registry artist %s", mbid)
	}
	return ProgressUpdate{Phase: ResolveArtist, Step: 1, Total: 1, Message: msg, Data: mbid}
}

func fetchCatalogUpdate(step, total int, id string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCatalog,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetched %d albums for %s", step, total, count, id),
	}
}

func fetchReleasesUpdate(scope string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchReleases,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d %s registry releases", count, scope),
	}
}

func fetchDetailsUpdate(step, total int, album models.Album) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, album.Name),
	}
}

func compareUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Comparing %d albums...", total),
	}
}

func lookupBarcodeUpdate(step, total int, barcode string, releases int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupBarcodes,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d releases", step, total, barcode, releases),
	}
}

func tallyUpdate(candidates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Tally,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Tallied %d registry artists", candidates),
	}
}
