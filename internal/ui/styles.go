// Package ui is the terminal front end: it reads input, renders turn
// events and asks the user to confirm destructive tool calls.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("39")
	ColorDim     = lipgloss.Color("241")
	ColorOK      = lipgloss.Color("42")
	ColorWarn    = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	User       lipgloss.Style
	Assistant  lipgloss.Style
	Dim        lipgloss.Style
	Tool       lipgloss.Style
	OK         lipgloss.Style
	Warn       lipgloss.Style
	Error      lipgloss.Style
	ConfirmBox lipgloss.Style
}

// NewStyles returns the default styles, or unstyled ones when color is off.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			User: plain, Assistant: plain, Dim: plain, Tool: plain,
			OK: plain, Warn: plain, Error: plain,
			ConfirmBox: plain.PaddingLeft(2),
		}
	}
	return Styles{
		User:      lipgloss.NewStyle().Foreground(ColorOK).Bold(true),
		Assistant: lipgloss.NewStyle(),
		Dim:       lipgloss.NewStyle().Foreground(ColorDim),
		Tool:      lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		OK:        lipgloss.NewStyle().Foreground(ColorOK),
		Warn:      lipgloss.NewStyle().Foreground(ColorWarn),
		Error:     lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		ConfirmBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorWarn).
			Padding(0, 1),
	}
}
