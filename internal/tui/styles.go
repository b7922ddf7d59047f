package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#CBA6F7")
	green  = lipgloss.Color("#A6E3A1")
	red    = lipgloss.Color("#F38BA8")
	yellow = lipgloss.Color("#F9E2AF")
	dim    = lipgloss.Color("#6C7086")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent)
	connectedStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle     = lipgloss.NewStyle().Foreground(red)
	codeStyle      = lipgloss.NewStyle().Bold(true).Foreground(yellow)
	hintStyle      = lipgloss.NewStyle().Foreground(dim)
)

const separator = "────────────────────────────────────────────────────────────\n"
