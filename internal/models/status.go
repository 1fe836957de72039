package models

import "encoding/json"

// MatchStatus is the album-level confidence tier, ordered from weakest to strongest.
type MatchStatus int

const (
	Unmatched MatchStatus = iota
	NameMatch
	LinkMatch
)

func (s MatchStatus) String() string {
	switch s {
	case NameMatch:
		return "name_match"
	case LinkMatch:
		return "link_match"
	default:
		return "unmatched"
	}
}

// Color maps a tier onto the green/orange/red buckets used in summaries.
func (s MatchStatus) Color() string {
	switch s {
	case LinkMatch:
		return "green"
	case NameMatch:
		return "orange"
	default:
		return "red"
	}
}

func (s MatchStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// TrackMatchStatus is the track-level tier. BarcodeMatch sits between name and link matches.
type TrackMatchStatus int

const (
	TrackUnmatched TrackMatchStatus = iota
	TrackNameMatch
	TrackBarcodeMatch
	TrackLinkMatch
)

func (s TrackMatchStatus) String() string {
	switch s {
	case TrackNameMatch:
		return "name_match"
	case TrackBarcodeMatch:
		return "barcode_match"
	case TrackLinkMatch:
		return "link_match"
	default:
		return "unmatched"
	}
}

func (s TrackMatchStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// AlbumIssue is one data-quality finding between a source album and its registry counterpart.
type AlbumIssue string

const (
	IssueMissingBarcode     AlbumIssue = "missing_barcode"
	IssueBarcodeMismatch    AlbumIssue = "barcode_mismatch"
	IssueMissingISRCs       AlbumIssue = "missing_isrcs"
	IssueISRCMismatch       AlbumIssue = "isrc_mismatch"
	IssueTrackCountMismatch AlbumIssue = "track_count_mismatch"
	IssueMissingDate        AlbumIssue = "missing_date"
	IssueDateMismatch       AlbumIssue = "date_mismatch"
	IssueMissingCoverArt    AlbumIssue = "missing_cover_art"
	IssueAmbiguousMatch     AlbumIssue = "ambiguous_match"
)

// Label returns a short human-readable label.
func (i AlbumIssue) Label() string {
	switch i {
	case IssueMissingBarcode:
		return "Missing barcode"
	case IssueBarcodeMismatch:
		return "Barcode mismatch"
	case IssueMissingISRCs:
		return "Missing ISRCs"
	case IssueISRCMismatch:
		return "ISRC mismatch"
	case IssueTrackCountMismatch:
		return "Track count mismatch"
	case IssueMissingDate:
		return "Missing date"
	case IssueDateMismatch:
		return "Date mismatch"
	case IssueMissingCoverArt:
		return "Missing cover art"
	case IssueAmbiguousMatch:
		return "Ambiguous match"
	default:
		return string(i)
	}
}

// ReconciledAlbum is one source album with its tier, issues and registry match.
//
// Issues is empty whenever Status is [Unmatched].
type ReconciledAlbum struct {
	Album        Album             `json:"album"`
	Status       MatchStatus       `json:"status"`
	Issues       []AlbumIssue      `json:"issues"`
	RegistryID   string            `json:"registry_id,omitempty"`
	RegistryName string            `json:"registry_name,omitempty"`
	Tracks       []ReconciledTrack `json:"tracks,omitempty"`
}

// HasIssue reports whether the album carries the given issue.
func (r ReconciledAlbum) HasIssue(issue AlbumIssue) bool {
	for _, i := range r.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// ReconciledTrack is one source track with its track-level tier.
type ReconciledTrack struct {
	Track      Track            `json:"track"`
	Status     TrackMatchStatus `json:"status"`
	RegistryID string           `json:"registry_id,omitempty"`
}
