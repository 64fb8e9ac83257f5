package commands

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7C71F9")
	colorSuccess = lipgloss.Color("#34D399")
	colorDim     = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#60A5FA")
)

var (
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleLabel  = styleDim
	styleAccent = lipgloss.NewStyle().Foreground(colorAccent)

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleActive      = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)

	styleUser      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleAssistant = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
)
