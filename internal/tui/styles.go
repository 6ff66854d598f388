package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#7D56F4")
	success = lipgloss.Color("#04B575")
	danger  = lipgloss.Color("#FF5F87")
	muted   = lipgloss.Color("#6C6C6C")
	text    = lipgloss.Color("#FAFAFA")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Foreground(muted).Width(5).Align(lipgloss.Center)
	dayStyle      = lipgloss.NewStyle().Width(5).Align(lipgloss.Center)
	pastStyle     = dayStyle.Foreground(muted).Strikethrough(true)
	availStyle    = dayStyle.Foreground(success)
	unavailStyle  = dayStyle.Foreground(danger)
	selectedStyle = dayStyle.Bold(true).Foreground(text).Background(primary)
	cursorStyle   = lipgloss.NewStyle().Underline(true)

	slotStyle         = lipgloss.NewStyle().PaddingLeft(2)
	slotDisabledStyle = slotStyle.Foreground(muted)
	slotSelectedStyle = slotStyle.Bold(true).Foreground(text).Background(primary)

	labelStyle   = lipgloss.NewStyle().Width(14).Foreground(muted)
	focusedLabel = labelStyle.Foreground(primary)
	paneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
	activePane   = paneStyle.BorderForeground(primary)
	hintStyle    = lipgloss.NewStyle().Foreground(muted)
	errStyle     = lipgloss.NewStyle().Foreground(danger)
	okStyle      = lipgloss.NewStyle().Foreground(success).Bold(true)
)
