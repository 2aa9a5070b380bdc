package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the whisperdeck screens
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple - titles and focus
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan - selected options

	// Button colors: idle buttons start something, active ones stop it
	ColorButtonIdle = lipgloss.Color("#a29bfe")
	ColorButtonStop = lipgloss.Color("#ff7675")

	ColorSuccess = lipgloss.Color("#22C55E") // Green - progress value
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")

	ColorText   = lipgloss.Color("#F8FAFC")
	ColorMuted  = lipgloss.Color("#94A3B8")
	ColorSubtle = lipgloss.Color("#64748B")
)
