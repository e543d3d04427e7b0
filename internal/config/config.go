package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"

	"github.com/marcus/tally/internal/models"
)

const configFile = ".tally/config.json"
const lockFile = ".tally/config.json.lock"

// DefaultKey is the streak key used when neither flag, env nor config names one.
const DefaultKey = "tasks"

// Load reads the config from disk
func Load(baseDir string) (*models.Config, error) {
	configPath := filepath.Join(baseDir, configFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Config{}, nil
		}
		return nil, err
	}

	var cfg models.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(baseDir string, cfg *models.Config) error {
	configPath := filepath.Join(baseDir, configFile)

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: temp file in same dir, then rename
	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, configPath)
}

// withConfigLock serializes access to config.json using flock
func withConfigLock(baseDir string, fn func() error) error {
	lockPath := filepath.Join(baseDir, lockFile)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// Update loads the config, applies fn and saves it under the config lock.
func Update(baseDir string, fn func(cfg *models.Config) error) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		return Save(baseDir, cfg)
	})
}

// GetDefaultKey returns the streak key to use when none is given.
// Priority: TALLY_KEY env > config.json streak.default_key > DefaultKey.
func GetDefaultKey(baseDir string) string {
	if v := os.Getenv("TALLY_KEY"); v != "" {
		return v
	}
	cfg, err := Load(baseDir)
	if err == nil && cfg.Streak.DefaultKey != "" {
		return cfg.Streak.DefaultKey
	}
	return DefaultKey
}

// SetDefaultKey sets the default streak key
func SetDefaultKey(baseDir, key string) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.Streak.DefaultKey = key
		return nil
	})
}

// RegisterKey remembers a streak key so `status --all` can find it.
func RegisterKey(baseDir, key string) error {
	cfg, err := Load(baseDir)
	if err == nil && containsKey(cfg.Keys, key) {
		return nil
	}
	return Update(baseDir, func(cfg *models.Config) error {
		if !containsKey(cfg.Keys, key) {
			cfg.Keys = append(cfg.Keys, key)
		}
		return nil
	})
}

// GetKeys returns every registered streak key, default key first.
func GetKeys(baseDir string) ([]string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return nil, err
	}
	def := GetDefaultKey(baseDir)
	keys := []string{def}
	for _, k := range cfg.Keys {
		if k != def {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// SetFreezeThreshold overrides the number of same-day completions that earn a freeze.
func SetFreezeThreshold(baseDir string, n int) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.Streak.FreezeThreshold = &n
		return nil
	})
}

// SetMilestones overrides the milestone thresholds.
func SetMilestones(baseDir string, thresholds []int) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.Streak.Milestones = thresholds
		return nil
	})
}

// SetWebhook stores the webhook URL and secret. An empty URL removes the webhook.
func SetWebhook(baseDir, url, secret string) error {
	return Update(baseDir, func(cfg *models.Config) error {
		if url == "" {
			cfg.Webhook = nil
			return nil
		}
		cfg.Webhook = &models.WebhookConfig{URL: url, Secret: secret}
		return nil
	})
}

// SetFeatureFlag persists a feature flag override.
func SetFeatureFlag(baseDir, name string, enabled bool) error {
	return Update(baseDir, func(cfg *models.Config) error {
		if cfg.FeatureFlags == nil {
			cfg.FeatureFlags = map[string]bool{}
		}
		cfg.FeatureFlags[name] = enabled
		return nil
	})
}

// UnsetFeatureFlag removes a feature flag override.
func UnsetFeatureFlag(baseDir, name string) error {
	return Update(baseDir, func(cfg *models.Config) error {
		delete(cfg.FeatureFlags, name)
		return nil
	})
}
