package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
	maxMarkdownWidth     = 120
)

// TerminalWidth reports the stdout width, then $COLUMNS, then fallback.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultMarkdownWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return fallback
}

// markdownStyle picks the glamour style. Piped output and NO_COLOR get the
// plain style so snapshots stay readable in logs; TALLY_MARKDOWN_STYLE wins.
func markdownStyle() glamour.TermRendererOption {
	if s := strings.TrimSpace(os.Getenv("TALLY_MARKDOWN_STYLE")); s != "" {
		return glamour.WithStandardStyle(s)
	}
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return glamour.WithStandardStyle("notty")
	}
	return glamour.WithAutoStyle()
}

// RenderMarkdown renders a streak report wrapped to the terminal.
func RenderMarkdown(text string) (string, error) {
	return RenderMarkdownWithWidth(text, TerminalWidth(defaultMarkdownWidth))
}

// RenderMarkdownWithWidth renders text wrapped at width, clamped to a
// readable range.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	width = min(max(width, minMarkdownWidth), maxMarkdownWidth)

	r, err := glamour.NewTermRenderer(markdownStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
