package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/streak"
)

const keyFlag = "key"

// addKeyFlag registers --key/-k on fs.
func addKeyFlag(fs *pflag.FlagSet) {
	fs.StringP(keyFlag, "k", "", "Streak key (default: $TALLY_KEY, config streak.default_key, or \"tasks\")")
}

// addJSONFlag registers --json on fs.
func addJSONFlag(fs *pflag.FlagSet) {
	fs.Bool("json", false, "JSON output")
}

// resolveKey returns the normalized streak key for cmd.
// Priority: --key > TALLY_KEY > config > default.
func resolveKey(cmd *cobra.Command) (string, error) {
	key, _ := cmd.Flags().GetString(keyFlag)
	if key == "" {
		key = config.GetDefaultKey(getBaseDir())
	}
	return streak.NormalizeKey(key)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
