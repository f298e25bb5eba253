package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusCached     = lipgloss.Color("39")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")

	// Line-ending colors use the basic ANSI palette so they survive 16-color terminals.
	ColorEndingCRLF  = lipgloss.Color("3")
	ColorEndingLF    = lipgloss.Color("2")
	ColorEndingMixed = lipgloss.Color("1")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStyleCached     = lipgloss.NewStyle().Foreground(ColorStatusCached)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)

// EndingStyle returns the style for an ending label ("crlf", "lf", "mixed",
// "none") bound to r. A nil renderer uses the default one.
func EndingStyle(r *lipgloss.Renderer, ending string) lipgloss.Style {
	style := lipgloss.NewStyle()
	if r != nil {
		style = r.NewStyle()
	}
	switch ending {
	case converter.EndingCRLF:
		return style.Foreground(ColorEndingCRLF)
	case converter.EndingLF:
		return style.Foreground(ColorEndingLF)
	case converter.EndingMixed, converter.EndingNone:
		return style.Foreground(ColorEndingMixed)
	}
	return style
}

// statusStyle returns the style and list icon for a file status.
func statusStyle(status converter.Status) (lipgloss.Style, string) {
	switch status {
	case converter.StatusSuccess:
		return StatusStyleSuccess, "✓"
	case converter.StatusUnchanged:
		return StatusStyleSuccess, "="
	case converter.StatusFailed:
		return StatusStyleFailed, "✗"
	case converter.StatusSkipped:
		return StatusStyleSkipped, "S"
	case converter.StatusCached:
		return StatusStyleCached, "C"
	case converter.StatusProcessing:
		return StatusStyleProcessing, "…"
	}
	return StatusStylePending, " "
}
