// Package webhook forwards streak events to an HTTP endpoint as signed
// JSON batches.
package webhook

import (
	"os"

	"github.com/marcus/tally/internal/config"
)

// Settings is the resolved webhook target for a project.
type Settings struct {
	URL    string
	Secret string
}

// Enabled reports whether a URL is configured.
func (s Settings) Enabled() bool { return s.URL != "" }

// Load resolves webhook settings for baseDir.
// Priority: TALLY_WEBHOOK_URL / TALLY_WEBHOOK_SECRET env > config.json webhook.
func Load(baseDir string) Settings {
	var s Settings
	if cfg, err := config.Load(baseDir); err == nil && cfg.Webhook != nil {
		s.URL = cfg.Webhook.URL
		s.Secret = cfg.Webhook.Secret
	}
	if v := os.Getenv("TALLY_WEBHOOK_URL"); v != "" {
		s.URL = v
	}
	if v := os.Getenv("TALLY_WEBHOOK_SECRET"); v != "" {
		s.Secret = v
	}
	return s
}
