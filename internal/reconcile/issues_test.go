package reconcile

import (
	"testing"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracks(isrcs ...string) []models.Track {
	out := make([]models.Track, 0, len(isrcs))
	for i, code := range isrcs {
		t := models.Track{ID: string(rune('a' + i)), Name: "Track " + string(rune('A'+i)), TrackNumber: i + 1}
		if code != "" {
			t.ISRCs = []string{code}
		}
		out = append(out, t)
	}
	return out
}

func matched(t *testing.T, opts Options, src, reg models.Album) models.ReconciledAlbum {
	t.Helper()
	src.URL = "p/album/" + src.ID
	reg.ExternalURLs = []string{src.URL}
	result, err := New(opts).Reconcile(Input{Source: []models.Album{src}, Registry: []models.Album{reg}})
	require.NoError(t, err)
	require.Equal(t, models.LinkMatch, result.Albums[0].Status)
	return result.Albums[0]
}

func TestIssues(t *testing.T) {
	strict := Options{StrictProviders: []string{"p"}}

	t.Run("Barcode", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p", Barcode: "0123456789012"}
		reg := models.Album{ID: "mb", Barcode: "123456789012"}
		assert.False(t, matched(t, Options{}, src, reg).HasIssue(models.IssueBarcodeMismatch))

		reg.Barcode = "999"
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueBarcodeMismatch))

		reg.Barcode = ""
		assert.False(t, matched(t, Options{}, src, reg).HasIssue(models.IssueMissingBarcode), "absence is not flagged for lenient providers")
		assert.True(t, matched(t, strict, src, reg).HasIssue(models.IssueMissingBarcode))
	})

	t.Run("ISRCs aligned by position", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p", Tracks: tracks("USAAA0000001", "USAAA0000002")}
		reg := models.Album{ID: "mb", Tracks: tracks("usaaa0000001", "USAAA0000002")}
		got := matched(t, strict, src, reg)
		assert.False(t, got.HasIssue(models.IssueISRCMismatch))
		assert.False(t, got.HasIssue(models.IssueMissingISRCs))

		reg.Tracks = tracks("USAAA0000002", "USAAA0000001")
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueISRCMismatch), "reordered tracks mismatch")

		reg.Tracks = tracks("USAAA0000001", "")
		assert.False(t, matched(t, Options{}, src, reg).HasIssue(models.IssueMissingISRCs))
		assert.True(t, matched(t, strict, src, reg).HasIssue(models.IssueMissingISRCs))
	})

	t.Run("ISRCs compared across the whole album", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p", Tracks: tracks("USAAA0000001", "USAAA0000002")}
		reg := models.Album{ID: "mb", Tracks: tracks("USAAA0000001")}
		got := matched(t, strict, src, reg)
		assert.True(t, got.HasIssue(models.IssueISRCMismatch), "extra source track has an ISRC the registry lacks")
		assert.False(t, got.HasIssue(models.IssueMissingISRCs))
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueISRCMismatch))

		reg.Tracks = tracks("USAAA0000001", "USAAA0000002", "")
		assert.False(t, matched(t, strict, src, reg).HasIssue(models.IssueISRCMismatch), "trailing track without ISRC")
	})

	t.Run("Zero-track albums report no ISRC issues", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p"}
		reg := models.Album{ID: "mb", Tracks: tracks("USAAA0000001")}
		got := matched(t, strict, src, reg)
		assert.False(t, got.HasIssue(models.IssueMissingISRCs))
		assert.False(t, got.HasIssue(models.IssueISRCMismatch))
	})

	t.Run("Track count only in full mode", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p", TrackCount: 10}
		reg := models.Album{ID: "mb", Tracks: tracks("", "")}
		assert.False(t, matched(t, Options{}, src, reg).HasIssue(models.IssueTrackCountMismatch))
		assert.True(t, matched(t, Options{Full: true}, src, reg).HasIssue(models.IssueTrackCountMismatch))

		src.TrackCount = 2
		assert.False(t, matched(t, Options{Full: true}, src, reg).HasIssue(models.IssueTrackCountMismatch))
	})

	t.Run("Dates", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p", ReleaseDate: "2020-05-01"}
		reg := models.Album{ID: "mb", ReleaseDate: "2020"}
		assert.False(t, matched(t, Options{}, src, reg).HasIssue(models.IssueDateMismatch))

		reg.ReleaseDate = "2021"
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueDateMismatch))

		reg.ReleaseDate = ""
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueMissingDate), "reported for lenient providers too")
		assert.True(t, matched(t, strict, src, reg).HasIssue(models.IssueMissingDate))
	})

	t.Run("Cover art skipped in quick mode", func(t *testing.T) {
		src := models.Album{ID: "A", Provider: "p"}
		reg := models.Album{ID: "mb"}
		assert.True(t, matched(t, strict, src, reg).HasIssue(models.IssueMissingCoverArt))
		assert.True(t, matched(t, Options{}, src, reg).HasIssue(models.IssueMissingCoverArt), "reported for lenient providers too")

		quick := strict
		quick.Quick = true
		assert.False(t, matched(t, quick, src, reg).HasIssue(models.IssueMissingCoverArt))

		reg.ImageURLs = []string{"https://coverartarchive.org/release/mb/front"}
		assert.False(t, matched(t, strict, src, reg).HasIssue(models.IssueMissingCoverArt))
	})
}

func TestDatesEqual(t *testing.T) {
	tc := []struct {
		a, b string
		want bool
	}{
		{"2020-05-01", "2020-05-01", true},
		{"2020", "2020-05-01", true},
		{"2020-05-01", "2020-05", true},
		{"2020-1", "2020-12", false},
		{"2020", "2021", false},
		{"", "2020", false},
	}
	for _, tt := range tc {
		assert.Equal(t, tt.want, DatesEqual(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestReconcileTracks(t *testing.T) {
	src := models.Album{ID: "A", Provider: "p", URL: "p/album/A", Tracks: []models.Track{
		{ID: "t1", Name: "Intro", URL: "p/track/t1"},
		{ID: "t2", Name: "Second Song"},
		{ID: "t3", Name: "hidden  track!"},
		{ID: "t4", Name: "Bonus"},
	}}
	reg := models.Album{ID: "mb", ExternalURLs: []string{"p/album/A"}, Tracks: []models.Track{
		{ID: "r1", Name: "Intro", ExternalURLs: []string{"p/track/t1"}},
		{ID: "r2", Name: "Second Song"},
		{ID: "r3", Name: "Hidden Track"},
	}}

	t.Run("Tiers by link then position then name", func(t *testing.T) {
		result, err := New(Options{Full: true}).Reconcile(Input{Source: []models.Album{src}, Registry: []models.Album{reg}})
		require.NoError(t, err)

		got := result.Albums[0].Tracks
		require.Len(t, got, 4)
		assert.Equal(t, models.TrackLinkMatch, got[0].Status)
		assert.Equal(t, "r1", got[0].RegistryID)
		assert.Equal(t, models.TrackNameMatch, got[1].Status)
		assert.Equal(t, models.TrackNameMatch, got[2].Status)
		assert.Equal(t, "r3", got[2].RegistryID)
		assert.Equal(t, models.TrackUnmatched, got[3].Status)
	})

	t.Run("Equal barcodes pair tracks by position", func(t *testing.T) {
		withBarcode, regBarcode := src, reg
		withBarcode.Barcode, regBarcode.Barcode = "0602445", "602445"

		result, err := New(Options{Full: true}).Reconcile(Input{Source: []models.Album{withBarcode}, Registry: []models.Album{regBarcode}})
		require.NoError(t, err)

		got := result.Albums[0].Tracks
		assert.Equal(t, models.TrackLinkMatch, got[0].Status)
		assert.Equal(t, models.TrackBarcodeMatch, got[1].Status)
		assert.Equal(t, "r2", got[1].RegistryID)
		assert.Equal(t, models.TrackUnmatched, got[3].Status, "no counterpart at that position")
	})

	t.Run("Tracks are omitted outside full mode", func(t *testing.T) {
		result, err := New(Options{}).Reconcile(Input{Source: []models.Album{src}, Registry: []models.Album{reg}})
		require.NoError(t, err)
		assert.Empty(t, result.Albums[0].Tracks)
	})
}
