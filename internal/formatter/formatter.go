// package formatter renders reconciliation reports and deep-search results as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/reconcile"
	"github.com/desertthunder/mbx/internal/shared"
	"github.com/desertthunder/mbx/internal/tasks"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its usual file extension. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (text, markdown, csv, json)", shared.ErrInvalidInput, s)
}

// Options tunes rendering.
type Options struct {
	Color  bool // style text output with lipgloss
	Tracks bool // include track-level rows in text and Markdown output
}

// Report renders a reconciliation report in the given format.
func Report(report *tasks.ReconcileReport, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ReportToText(report, opts)
	case FormatMarkdown:
		return ReportToMarkdown(report, opts)
	case FormatCSV:
		return ReportToCSV(report)
	case FormatJSON:
		return ToJSON(report)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
}

// DeepSearch renders a deep-search result. CSV is not offered since the result is not tabular.
func DeepSearch(result *tasks.DeepSearchResult, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatText, "", FormatMarkdown:
		return DeepSearchToText(result, opts)
	case FormatJSON:
		return ToJSON(result)
	}
	return nil, fmt.Errorf("%w: %s output is not available for deep search", shared.ErrInvalidInput, format)
}

// ToJSON encodes v as indented JSON with a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func palette(opts Options) *Palette {
	if opts.Color {
		return styles
	}
	return plain
}

func albums(report *tasks.ReconcileReport) []models.ReconciledAlbum {
	if report.Result == nil {
		return nil
	}
	return report.Result.Albums
}

func summary(report *tasks.ReconcileReport) string {
	if report.Result == nil {
		return reconcile.Summarize(reconcile.Counts{})
	}
	return report.Result.Summary
}

func artistName(report *tasks.ReconcileReport) string {
	if report.Artist != nil && report.Artist.Name != "" {
		return report.Artist.Name
	}
	return strings.Join(report.ArtistIDs, ", ")
}

func issueLabels(issues []models.AlbumIssue) string {
	labels := make([]string, 0, len(issues))
	for _, i := range issues {
		labels = append(labels, i.Label())
	}
	return strings.Join(labels, ", ")
}

// ReportToText renders a terminal report: a heading, one line per album and the summary.
func ReportToText(report *tasks.ReconcileReport, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	p := palette(opts)

	buf.WriteString(p.title.Render(fmt.Sprintf("%s on %s", artistName(report), report.Provider)))
	buf.WriteString("\n")
	if report.MBID != "" {
		buf.WriteString(p.help.Render("MusicBrainz artist: "+report.MBID) + "\n")
	}

	for _, a := range albums(report) {
		line := fmt.Sprintf("[%s] %s", a.Status.Color(), a.Album.Name)
		if a.Album.ReleaseDate != "" {
			line += " (" + a.Album.ReleaseDate + ")"
		}
		buf.WriteString(p.Tier(line, a.Status))
		if a.RegistryID != "" {
			buf.WriteString(" -> " + a.RegistryID)
		}
		if len(a.Issues) > 0 {
			buf.WriteString(" " + p.warn.Render("! "+issueLabels(a.Issues)))
		}
		buf.WriteString("\n")

		if opts.Tracks {
			for _, tr := range a.Tracks {
				fmt.Fprintf(&buf, "    %d. %s [%s]\n", tr.Track.TrackNumber, tr.Track.Name, tr.Status)
			}
		}
	}

	buf.WriteString("\n" + summary(report) + "\n")
	for _, w := range report.Warnings {
		buf.WriteString(p.err.Render("warning: "+w.String()) + "\n")
	}
	return buf.Bytes(), nil
}

// ReportToMarkdown renders the report as a Markdown document with an album table.
func ReportToMarkdown(report *tasks.ReconcileReport, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", artistName(report)))
	buf.WriteString(fmt.Sprintf("**Provider**: %s\n", report.Provider))
	if report.MBID != "" {
		buf.WriteString(fmt.Sprintf("**MusicBrainz**: https://musicbrainz.org/artist/%s\n", report.MBID))
	}
	buf.WriteString(fmt.Sprintf("**Summary**: %s\n\n", summary(report)))

	buf.WriteString("## Albums\n\n")
	buf.WriteString("| Status | Album | Released | Registry | Issues |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, a := range albums(report) {
		fmt.Fprintf(&buf, "| %s | [%s](%s) | %s | %s | %s |\n",
			a.Status.Color(), escapeCell(a.Album.Name), a.Album.URL, a.Album.ReleaseDate, a.RegistryID, issueLabels(a.Issues))
	}

	if opts.Tracks {
		for _, a := range albums(report) {
			if len(a.Tracks) == 0 {
				continue
			}
			buf.WriteString(fmt.Sprintf("\n### %s\n\n", a.Album.Name))
			for _, tr := range a.Tracks {
				fmt.Fprintf(&buf, "%d. %s (%s)\n", tr.Track.TrackNumber, tr.Track.Name, tr.Status)
			}
		}
	}

	if len(report.Warnings) > 0 {
		buf.WriteString("\n## Warnings\n\n")
		for _, w := range report.Warnings {
			buf.WriteString("- " + w.String() + "\n")
		}
	}
	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReportToCSV converts the report to CSV with one row per album.
func ReportToCSV(report *tasks.ReconcileReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "URL", "Release Date", "Barcode", "Tracks", "Status", "Color", "Registry ID", "Registry Name", "Issues"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range albums(report) {
		issues := make([]string, 0, len(a.Issues))
		for _, i := range a.Issues {
			issues = append(issues, string(i))
		}
		record := []string{
			a.Album.ID,
			a.Album.Name,
			a.Album.URL,
			a.Album.ReleaseDate,
			a.Album.Barcode,
			strconv.Itoa(a.Album.TrackCount),
			a.Status.String(),
			a.Status.Color(),
			a.RegistryID,
			a.RegistryName,
			strings.Join(issues, ";"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// DeepSearchToText renders the winner, the tally and how confident the pick is.
func DeepSearchToText(result *tasks.DeepSearchResult, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	p := palette(opts)

	name := result.SourceName
	if name == "" {
		name = result.ArtistID
	}
	buf.WriteString(p.title.Render(fmt.Sprintf("Deep search for %s on %s", name, result.Provider)))
	buf.WriteString("\n")

	if result.Outcome != tasks.OutcomeMatched {
		buf.WriteString(p.err.Render(result.Outcome.Message()) + "\n")
	} else {
		buf.WriteString(p.ok.Render(fmt.Sprintf("%s (%s)", result.MBName, result.MBID)) + "\n")
		fmt.Fprintf(&buf, "method: %s, name similarity: %.2f\n", result.Method, result.NameSimilarity)
		if result.MostCommonMBID != result.MBID {
			fmt.Fprintf(&buf, "most common: %s\n", result.MostCommonMBID)
		}
		if result.LowConfidence {
			buf.WriteString(p.warn.Render("low confidence: the names differ, review before linking") + "\n")
		}
	}

	if len(result.Artists) > 0 {
		buf.WriteString("\nCandidates:\n")
		for _, c := range result.Artists {
			fmt.Fprintf(&buf, "  %-36s %-30s %3d  %.2f\n", c.MBID, c.Name, c.Count, c.Similarity)
		}
	}
	if len(result.Albums) > 0 {
		buf.WriteString("\nBarcodes:\n")
		for _, a := range result.Albums {
			fmt.Fprintf(&buf, "  %s  %s (%d releases)\n", a.Barcode, a.AlbumName, len(a.Releases))
		}
	}
	for _, w := range result.Warnings {
		buf.WriteString(p.err.Render("warning: "+w.String()) + "\n")
	}
	return buf.Bytes(), nil
}

// WriteFile writes rendered output to path, or to stdout when path is empty or "-".
func WriteFile(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FormatForPath infers a format from an output file extension, defaulting to text.
func FormatForPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".md"):
		return FormatMarkdown
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	}
	return FormatText
}
