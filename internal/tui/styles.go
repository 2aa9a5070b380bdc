package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Transform(strings.ToUpper).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleProgressValue = lipgloss.NewStyle().
				Foreground(ColorSuccess)

	// button is rounded and padded like a pill; the background is per state
	styleButton = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			MarginTop(1)

	StyleSection = lipgloss.NewStyle().
			MarginBottom(2)
)

// Logo returns the styled application name
func Logo() string {
	return StyleHeader.Render("whisperdeck")
}
