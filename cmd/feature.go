package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/features"
	"github.com/marcus/tally/internal/output"
)

var featureCmd = &cobra.Command{
	Use:     "feature",
	Aliases: []string{"features"},
	Short:   "List and toggle feature flags",
	GroupID: "system",
}

// featureState is one row of `tally feature list`.
type featureState struct {
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	Source       string `json:"source"`
	Experimental bool   `json:"experimental,omitempty"`
	Description  string `json:"description"`
}

func featureStates(baseDir string) []featureState {
	flags := features.Snapshot(baseDir)
	all := features.ListAll()
	out := make([]featureState, len(all))
	for i, f := range all {
		out[i] = featureState{
			Name:         f.Name,
			Enabled:      flags.Enabled(f),
			Source:       string(flags.Source(f)),
			Experimental: f.Experimental,
			Description:  f.Description,
		}
	}
	return out
}

var featureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feature flags and their resolved state",
	RunE: func(cmd *cobra.Command, args []string) error {
		states := featureStates(getBaseDir())
		if jsonOutput(cmd) {
			return output.JSON(states)
		}
		for _, s := range states {
			state := "off"
			if s.Enabled {
				state = "on"
			}
			fmt.Printf("%-18s %-3s (%s)  %s\n", s.Name, state, s.Source, s.Description)
		}
		return nil
	},
}

var featureSetCmd = &cobra.Command{
	Use:   "set <name> <true|false>",
	Short: "Override a feature flag in the project config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, ok := features.Lookup(args[0])
		if !ok {
			output.Error("unknown feature: %s", args[0])
			return fmt.Errorf("unknown feature: %s", args[0])
		}
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			output.Error("invalid bool value %q", args[1])
			return fmt.Errorf("%w: %v", errInvalidInput, err)
		}
		if err := config.SetFeatureFlag(getBaseDir(), f.Name, enabled); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("%s = %t", f.Name, enabled)
		return nil
	},
}

var featureUnsetCmd = &cobra.Command{
	Use:   "unset <name>",
	Short: "Remove a feature flag override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, ok := features.Lookup(args[0])
		if !ok {
			output.Error("unknown feature: %s", args[0])
			return fmt.Errorf("unknown feature: %s", args[0])
		}
		if err := config.UnsetFeatureFlag(getBaseDir(), f.Name); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("%s reset to default", f.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featureCmd)
	featureCmd.AddCommand(featureListCmd)
	featureCmd.AddCommand(featureSetCmd)
	featureCmd.AddCommand(featureUnsetCmd)
	addJSONFlag(featureListCmd.Flags())
}
