// Package output provides styled terminal output helpers (success, error,
// warning, streak formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/streak"
)

var (
	// Styles
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	milestoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	stateStyles    = map[streak.State]lipgloss.Style{
		streak.StateNew:         lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		streak.StateActive:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		streak.StateGracePeriod: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		streak.StateLost:        lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeNotInitialized  = "not_initialized"
	ErrCodeDatabaseError   = "database_error"
	ErrCodeStorageFull     = "storage_full"
	ErrCodeUnknownFeature  = "unknown_feature"
	ErrCodeWebhookDelivery = "webhook_delivery"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	data, _ := json.Marshal(map[string]interface{}{"error": errObj})
	fmt.Println(string(data))
}

// FormatState renders a streak state as a colored bracketed tag.
func FormatState(s streak.State) string {
	style, ok := stateStyles[s]
	if !ok {
		return fmt.Sprintf("[%s]", s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// Days returns "1 day" or "N days".
func Days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// StatusLine formats a snapshot as a single line for listings.
// e.g. "tasks  5 days  [grace_period] 6h left"
func StatusLine(snap *streak.Snapshot) string {
	parts := []string{
		titleStyle.Render(snap.Key),
		Days(snap.Status.EffectiveStreak),
		FormatState(snap.Status.State),
	}
	if snap.Status.AtRisk {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%dh left", snap.Status.GracePeriodRemainingHours)))
	}
	if snap.Ledger.StreakFreezes > 0 {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("%d freeze(s)", snap.Ledger.StreakFreezes)))
	}
	return strings.Join(parts, "  ")
}

// FormatSnapshot formats a snapshot in long form.
func FormatSnapshot(snap *streak.Snapshot, milestones []int) string {
	var sb strings.Builder
	l := snap.Ledger
	st := snap.Status

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Streak: %s", snap.Key)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n", FormatState(st.State)))
	sb.WriteString(fmt.Sprintf("Current: %s | Longest: %s | Completions: %d\n",
		Days(st.EffectiveStreak), Days(l.LongestStreak), l.TotalCompletions))

	if l.HasCompletion() {
		sb.WriteString(fmt.Sprintf("Last completion: %s (%d today)\n", l.LastCompletionDay, l.TodayCount(calendar.Of(snap.At))))
	}
	sb.WriteString(fmt.Sprintf("Freezes: %d\n", l.StreakFreezes))

	switch st.State {
	case streak.StateGracePeriod:
		msg := fmt.Sprintf("Complete something in the next %dh to keep your streak", st.GracePeriodRemainingHours)
		if st.FreezeWillApply {
			msg += " (a freeze will cover the missed day)"
		}
		sb.WriteString("\n")
		sb.WriteString(warningStyle.Render(msg))
		sb.WriteString("\n")
	case streak.StateLost:
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("Streak lost after %s. Complete something to start again.", Days(l.CurrentStreak))))
		sb.WriteString("\n")
	}

	if next := streak.NextMilestone(st.EffectiveStreak, milestones); next > 0 {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("Next milestone: %s (%s to go)", Days(next), Days(next-st.EffectiveStreak))))
		sb.WriteString("\n")
	}

	if len(l.Milestones) > 0 {
		sb.WriteString(SectionHeader("Milestones reached"))
		sb.WriteString(strings.Join(BulletList(milestoneLabels(l.Milestones), 2), "\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatResult describes what a recorded completion changed.
func FormatResult(key string, res *streak.Result) string {
	var lines []string
	l := res.Data

	switch {
	case res.ClockSkew:
		lines = append(lines, warningStyle.Render(fmt.Sprintf(
			"Clock is behind the last completion (%s); %s streak unchanged", l.LastCompletionDay, key)))
		return strings.Join(lines, "\n")
	case res.StreakIncremented:
		lines = append(lines, successStyle.Render(fmt.Sprintf("%s: %s streak", key, Days(l.CurrentStreak))))
	default:
		lines = append(lines, successStyle.Render(fmt.Sprintf("%s: %s streak (%d completions today)", key, Days(l.CurrentStreak), l.DailyTaskCount)))
	}

	if res.FreezeUsed {
		lines = append(lines, "Used a streak freeze to cover yesterday")
	}
	if res.EarnedFreeze {
		lines = append(lines, fmt.Sprintf("Earned a streak freeze (%d available)", l.StreakFreezes))
	}
	for _, m := range res.Milestones {
		lines = append(lines, MilestoneLine(m))
	}
	return strings.Join(lines, "\n")
}

// MilestoneLine announces a reached milestone.
func MilestoneLine(m int) string {
	return milestoneStyle.Render(fmt.Sprintf("Milestone reached: %s!", Days(m)))
}

func milestoneLabels(ms []int) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = Days(m)
	}
	return out
}

// SnapshotMarkdown renders a snapshot as a markdown summary.
func SnapshotMarkdown(snap *streak.Snapshot, milestones []int) string {
	l := snap.Ledger
	st := snap.Status

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", snap.Key)
	fmt.Fprintf(&sb, "**State:** `%s`\n\n", st.State)
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Current streak | %s |\n", Days(st.EffectiveStreak))
	fmt.Fprintf(&sb, "| Longest streak | %s |\n", Days(l.LongestStreak))
	fmt.Fprintf(&sb, "| Completions | %d |\n", l.TotalCompletions)
	fmt.Fprintf(&sb, "| Freezes | %d |\n", l.StreakFreezes)
	if l.HasCompletion() {
		fmt.Fprintf(&sb, "| Last completion | %s |\n", l.LastCompletionDay)
	}
	if st.AtRisk {
		fmt.Fprintf(&sb, "\n> At risk: %dh left today.\n", st.GracePeriodRemainingHours)
	}
	if next := streak.NextMilestone(st.EffectiveStreak, milestones); next > 0 {
		fmt.Fprintf(&sb, "\nNext milestone: **%s**\n", Days(next))
	}
	if len(l.Milestones) > 0 {
		sb.WriteString("\n## Milestones\n\n")
		for _, label := range milestoneLabels(l.Milestones) {
			fmt.Fprintf(&sb, "- %s\n", label)
		}
	}
	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nMILESTONES:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
