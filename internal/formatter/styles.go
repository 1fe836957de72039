package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mbx/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
//
// The ok, warn and err styles double as the green, orange and red match tiers.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Tier styles s with the colour of a match tier.
func (p *Palette) Tier(s string, status models.MatchStatus) string {
	switch status {
	case models.LinkMatch:
		return p.ok.Render(s)
	case models.NameMatch:
		return p.warn.Render(s)
	default:
		return p.err.Render(s)
	}
}

// plain renders every style as the identity, for files and pipes.
var plain = &Palette{
	title: lipgloss.NewStyle().MarginBottom(1),
	ok:    lipgloss.NewStyle(),
	err:   lipgloss.NewStyle(),
	warn:  lipgloss.NewStyle(),
	help:  lipgloss.NewStyle(),
}
