package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/tally/internal/streak"
)

const keyColumnWidth = 16

func (m Model) renderView() string {
	if m.Width == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth {
		return m.renderCompact()
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	var rows []string
	for i, snap := range m.Snapshots {
		rows = append(rows, m.renderRow(i, snap))
	}
	if len(rows) == 0 {
		rows = append(rows, subtleStyle.Render("No streaks yet. Press c after `tally complete` creates one."))
	}

	body := panelStyle.Width(m.Width - 2).Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("tally"),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderRow(i int, snap streak.Snapshot) string {
	cursor := "  "
	key := ansi.Truncate(snap.Key, keyColumnWidth, "…")
	if i == m.Selected {
		cursor = "> "
		key = selectedStyle.Render(key)
	}
	key += strings.Repeat(" ", max(keyColumnWidth-ansi.StringWidth(snap.Key), 0))

	line := fmt.Sprintf("%s%s %4d  %s", cursor, key, snap.Status.EffectiveStreak, stateBadge(snap.Status.State))
	if snap.Status.AtRisk {
		line += noticeStyle.Render(fmt.Sprintf(" %dh", snap.Status.GracePeriodRemainingHours))
	}

	next := streak.NextMilestone(snap.Status.EffectiveStreak, m.Milestones)
	if next == 0 {
		return line
	}
	bar := m.bar
	bar.Width = max(m.Width-ansi.StringWidth(line)-16, 10)
	return fmt.Sprintf("%s  %s %s", line, bar.ViewAs(milestoneProgress(snap.Status.EffectiveStreak, next, m.Milestones)),
		subtleStyle.Render(fmt.Sprintf("→ %d", next)))
}

// milestoneProgress is the fraction of the way from the previous threshold to next.
func milestoneProgress(current, next int, thresholds []int) float64 {
	floor := 0
	for _, t := range thresholds {
		if t <= current && t > floor {
			floor = t
		}
	}
	if next <= floor {
		return 1
	}
	return float64(current-floor) / float64(next-floor)
}

func (m Model) renderFooter() string {
	var lines []string
	for _, e := range m.Recent {
		line := fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05"), e.Type, e.Key)
		if e.Detail.Milestone > 0 {
			line += fmt.Sprintf(" (%d)", e.Detail.Milestone)
		}
		lines = append(lines, subtleStyle.Render(ansi.Truncate(line, m.Width, "…")))
	}
	if m.Notice != "" {
		lines = append(lines, noticeStyle.Render(m.Notice))
	}
	if m.Err != nil {
		lines = append(lines, errorStyle.Render("error: "+m.Err.Error()))
	}
	lines = append(lines, helpStyle.Render("q:quit  j/k:select  c:complete  r:refresh  ?:help"))
	return strings.Join(lines, "\n")
}

func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("tally (resize for full view)\n")
	for i, snap := range m.Snapshots {
		cursor := " "
		if i == m.Selected {
			cursor = ">"
		}
		s.WriteString(fmt.Sprintf("%s %s %d\n", cursor, ansi.Truncate(snap.Key, max(m.Width-8, 4), "…"), snap.Status.EffectiveStreak))
	}
	s.WriteString("q:quit c:complete")
	return s.String()
}

func (m Model) renderHelp() string {
	help := strings.Join([]string{
		"j / down    select next streak",
		"k / up      select previous streak",
		"c / enter   record a completion for the selected streak",
		"r           refresh now",
		"?           toggle this help",
		"q           quit",
	}, "\n")
	return panelStyle.Render(headerStyle.Render("Keys") + "\n\n" + help)
}
