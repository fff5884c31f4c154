package cli

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the interactive views.
var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listMarkedStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	listHeaderStyle   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)
