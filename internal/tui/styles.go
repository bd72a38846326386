package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#F38BA8")
	colorBlue    = lipgloss.Color("#89B4FA")
	colorMauve   = lipgloss.Color("#CBA6F7")
	colorYellow  = lipgloss.Color("#F9E2AF")
	colorGreen   = lipgloss.Color("#A6E3A1")
	colorGray    = lipgloss.Color("#6C7086")
	colorDimGray = lipgloss.Color("#45475A")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	recordingStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(colorMauve)

	idleStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	speakingStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorMauve).
				Bold(true)

	captionStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)
)
