package report

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // Accent and errors
	mintGreen   = lipgloss.Color("#A8E6CF") // Success states
	mutedGray   = lipgloss.Color("#6B7280") // Secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // Primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	okStyle = lipgloss.NewStyle().
		Foreground(mintGreen).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	warningStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Italic(true)

	cellStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(salmonPink).
				Bold(true).
				Padding(0, 1)

	tableBorderStyle = lipgloss.NewStyle().
				Foreground(mutedGray)
)
