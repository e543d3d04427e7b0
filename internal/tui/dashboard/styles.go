package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/tally/internal/streak"
)

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	noticeStyle   = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)

	stateStyles = map[streak.State]lipgloss.Style{
		streak.StateNew:         lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		streak.StateActive:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		streak.StateGracePeriod: lipgloss.NewStyle().Foreground(warningColor),
		streak.StateLost:        lipgloss.NewStyle().Foreground(mutedColor),
	}
)

func stateBadge(s streak.State) string {
	label := string(s)
	if s == streak.StateGracePeriod {
		label = "at risk"
	}
	if style, ok := stateStyles[s]; ok {
		return style.Render(label)
	}
	return label
}
