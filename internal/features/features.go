// Package features resolves tally's feature flags from the environment,
// the project config and built-in defaults, in that order.
package features

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/marcus/tally/internal/config"
)

// Feature describes a named feature flag.
type Feature struct {
	Name        string
	Default     bool
	Description string
	// Experimental features are switched off by TALLY_DISABLE_EXPERIMENTAL.
	Experimental bool
}

var (
	// StreakFreezes gates earning and spending freeze tokens.
	StreakFreezes = Feature{
		Name:        "streak_freezes",
		Default:     true,
		Description: "Earn freezes from busy days and spend them on a missed day",
	}

	// StreakChallenge gates the at-risk reminder published by status --remind.
	StreakChallenge = Feature{
		Name:        "streak_challenge",
		Default:     true,
		Description: "Publish a challenge event when a streak is at risk",
	}

	// WebhookEvents forwards streak events to the configured webhook.
	WebhookEvents = Feature{
		Name:         "webhook_events",
		Default:      false,
		Description:  "POST streak events to webhook.url",
		Experimental: true,
	}
)

var allFeatures = []Feature{
	StreakChallenge,
	StreakFreezes,
	WebhookEvents,
}

var registry = buildRegistry()

func buildRegistry() map[string]Feature {
	values := make(map[string]Feature, len(allFeatures))
	for _, feature := range allFeatures {
		values[feature.Name] = feature
	}
	return values
}

// Source says where a resolved flag value came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// ListAll returns all known features sorted by name.
func ListAll() []Feature {
	items := make([]Feature, len(allFeatures))
	copy(items, allFeatures)
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// Lookup returns the registered feature called name.
func Lookup(name string) (Feature, bool) {
	f, ok := registry[normalizeName(name)]
	return f, ok
}

// IsKnownFeature reports whether name is registered.
func IsKnownFeature(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// IsEnabled resolves a feature for the project at baseDir.
func IsEnabled(baseDir, name string) bool {
	enabled, _ := Resolve(baseDir, name)
	return enabled
}

// Resolve returns the feature state and where it came from.
func Resolve(baseDir, name string) (bool, Source) {
	var flags map[string]bool
	if baseDir != "" {
		if cfg, err := config.Load(baseDir); err == nil {
			flags = cfg.FeatureFlags
		}
	}
	return resolve(normalizeName(name), flags)
}

// Flags is a resolved view of every feature, taken from one config read.
type Flags struct {
	values  map[string]bool
	sources map[string]Source
}

// Snapshot resolves every registered feature for baseDir at once.
func Snapshot(baseDir string) Flags {
	var stored map[string]bool
	if baseDir != "" {
		if cfg, err := config.Load(baseDir); err == nil {
			stored = cfg.FeatureFlags
		}
	}
	f := Flags{
		values:  make(map[string]bool, len(allFeatures)),
		sources: make(map[string]Source, len(allFeatures)),
	}
	for _, feature := range allFeatures {
		f.values[feature.Name], f.sources[feature.Name] = resolve(feature.Name, stored)
	}
	return f
}

// Enabled reports the resolved state of feature.
func (f Flags) Enabled(feature Feature) bool {
	return f.values[feature.Name]
}

// Source reports where the state of feature came from.
func (f Flags) Source(feature Feature) Source {
	if s, ok := f.sources[feature.Name]; ok {
		return s
	}
	return SourceDefault
}

func resolve(canonical string, stored map[string]bool) (bool, Source) {
	if enabled, ok := resolveEnvOverride(canonical); ok {
		return enabled, SourceEnv
	}
	if enabled, ok := stored[canonical]; ok {
		return enabled, SourceConfig
	}
	return registry[canonical].Default, SourceDefault
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func resolveEnvOverride(name string) (bool, bool) {
	if registry[name].Experimental {
		if disabled, ok := parseBoolEnv("TALLY_DISABLE_EXPERIMENTAL"); ok && disabled {
			return false, true
		}
	}
	return parseBoolEnv("TALLY_FEATURE_" + envSuffix(name))
}

func envSuffix(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, name)
}

func parseBoolEnv(key string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	default:
		return false, false
	}
}
