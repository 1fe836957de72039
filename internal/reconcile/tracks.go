package reconcile

import (
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

// reconcileTracks tiers each source track against the counterpart's tracks.
//
// A track URL listed in a registry recording's links is a link match. Otherwise equal album barcodes make
// the whole listing a barcode match, paired by position. Otherwise a title equal to the track at the same
// position, or to any counterpart track, is a name match.
func reconcileTracks(src, reg models.Album) []models.ReconciledTrack {
	links := make(map[string]string)
	names := make(map[string]string)
	for _, t := range reg.Tracks {
		for _, link := range t.ExternalURLs {
			if _, ok := links[link]; !ok && link != "" {
				links[link] = t.ID
			}
		}
		if key := shared.NormalizeName(t.Name); key != "" {
			if _, ok := names[key]; !ok {
				names[key] = t.ID
			}
		}
	}
	sameBarcode := shared.BarcodesEqual(src.Barcode, reg.Barcode)

	out := make([]models.ReconciledTrack, 0, len(src.Tracks))
	for i, t := range src.Tracks {
		rt := models.ReconciledTrack{Track: t, Status: models.TrackUnmatched}
		var positional *models.Track
		if i < len(reg.Tracks) {
			positional = &reg.Tracks[i]
		}
		key := shared.NormalizeName(t.Name)

		switch {
		case t.URL != "" && links[t.URL] != "":
			rt.Status, rt.RegistryID = models.TrackLinkMatch, links[t.URL]
		case sameBarcode && positional != nil:
			rt.Status, rt.RegistryID = models.TrackBarcodeMatch, positional.ID
		case positional != nil && key != "" && shared.NormalizeName(positional.Name) == key:
			rt.Status, rt.RegistryID = models.TrackNameMatch, positional.ID
		case key != "" && names[key] != "":
			rt.Status, rt.RegistryID = models.TrackNameMatch, names[key]
		}
		out = append(out, rt)
	}
	return out
}

func unmatchedTracks(tracks []models.Track) []models.ReconciledTrack {
	out := make([]models.ReconciledTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, models.ReconciledTrack{Track: t, Status: models.TrackUnmatched})
	}
	return out
}
