package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/models"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"streak.default_key",
	"streak.freeze_threshold",
	"streak.milestones",
	"webhook.url",
	"webhook.secret",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// setConfigValue applies one key=value to cfg. An empty value clears the key.
func setConfigValue(cfg *models.Config, key, val string) error {
	val = strings.TrimSpace(val)
	switch key {
	case "streak.default_key":
		if val == "" {
			cfg.Streak.DefaultKey = ""
			return nil
		}
		k, err := streak.NormalizeKey(val)
		if err != nil {
			return err
		}
		cfg.Streak.DefaultKey = k
	case "streak.freeze_threshold":
		if val == "" {
			cfg.Streak.FreezeThreshold = nil
			return nil
		}
		n, err := parseThreshold(val)
		if err != nil {
			return err
		}
		cfg.Streak.FreezeThreshold = &n
	case "streak.milestones":
		if val == "" {
			cfg.Streak.Milestones = nil
			return nil
		}
		ms, err := parseMilestones(val)
		if err != nil {
			return err
		}
		cfg.Streak.Milestones = ms
	case "webhook.url":
		if val == "" {
			cfg.Webhook = nil
			return nil
		}
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return fmt.Errorf("%w: webhook.url must start with http:// or https://", errInvalidInput)
		}
		if cfg.Webhook == nil {
			cfg.Webhook = &models.WebhookConfig{}
		}
		cfg.Webhook.URL = val
	case "webhook.secret":
		if cfg.Webhook == nil {
			if val == "" {
				return nil
			}
			cfg.Webhook = &models.WebhookConfig{}
		}
		cfg.Webhook.Secret = val
	default:
		return fmt.Errorf("%w: unknown config key %s", errInvalidInput, key)
	}
	return nil
}

// getConfigValue returns the stored value for key, "" when unset.
func getConfigValue(cfg *models.Config, key string) (string, error) {
	switch key {
	case "streak.default_key":
		return cfg.Streak.DefaultKey, nil
	case "streak.freeze_threshold":
		if cfg.Streak.FreezeThreshold == nil {
			return "", nil
		}
		return strconv.Itoa(*cfg.Streak.FreezeThreshold), nil
	case "streak.milestones":
		parts := make([]string, len(cfg.Streak.Milestones))
		for i, m := range cfg.Streak.Milestones {
			parts[i] = strconv.Itoa(m)
		}
		return strings.Join(parts, ","), nil
	case "webhook.url":
		if cfg.Webhook == nil {
			return "", nil
		}
		return cfg.Webhook.URL, nil
	case "webhook.secret":
		if cfg.Webhook == nil || cfg.Webhook.Secret == "" {
			return "", nil
		}
		return "(set)", nil
	}
	return "", fmt.Errorf("%w: unknown config key %s", errInvalidInput, key)
}

// parseMilestones parses "3,7,14" into sorted unique thresholds.
func parseMilestones(val string) ([]int, error) {
	var ms []int
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: milestone %q is not a number", errInvalidInput, part)
		}
		ms = append(ms, n)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: no milestones given", errInvalidInput)
	}
	p, err := streak.NewPolicy(nil, ms, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return p.Milestones, nil
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage tally configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value (empty value clears it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]

		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s", key)
			fmt.Println("Valid keys:", strings.Join(validConfigKeys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		err := config.Update(getBaseDir(), func(cfg *models.Config) error {
			return setConfigValue(cfg, key, val)
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("%s updated", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getBaseDir())
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		val, err := getConfigValue(cfg, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getBaseDir())
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		values := make(map[string]string, len(validConfigKeys))
		for _, k := range validConfigKeys {
			values[k], _ = getConfigValue(cfg, k)
		}

		if jsonOutput(cmd) {
			data, err := json.MarshalIndent(values, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		keys := append([]string(nil), validConfigKeys...)
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-24s %s\n", k, values[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	addJSONFlag(configListCmd.Flags())
}
