package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#10B981")
	Muted     = lipgloss.Color("#6B7280")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")

	appStyle      = lipgloss.NewStyle().Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(Muted)
	errorStyle    = lipgloss.NewStyle().Foreground(Error)
	okStyle       = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Primary).Padding(0, 1)
)
