package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/output"
)

var logCmd = &cobra.Command{
	Use:     "log",
	Short:   "List recorded completions, newest first",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := resolveKey(cmd)
		if err != nil {
			return fail(cmd, err)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(getBaseDir(), nil)
		if err != nil {
			return fail(cmd, err)
		}
		defer a.Close()

		ctx := commandContext(cmd)
		rows, err := a.db.ListCompletions(ctx, key, limit)
		if err != nil {
			return fail(cmd, err)
		}

		if jsonOutput(cmd) {
			return output.JSON(rows)
		}
		if len(rows) == 0 {
			output.Info("No completions recorded for %s", key)
			return nil
		}

		for _, c := range rows {
			line := fmt.Sprintf("%s  %s  streak %d  (%s)",
				c.Day, c.RecordedAt.Local().Format("15:04"), c.CurrentStreak, output.FormatTimeAgo(c.RecordedAt))
			if c.ClockSkew {
				line += "  [clock skew]"
			}
			output.Info("%s", line)
		}

		days, err := a.db.CountCompletionDays(ctx, key)
		if err == nil {
			output.Info("\n%d completion(s) shown, %s with activity", len(rows), output.Days(days))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 20, "Maximum rows to show (0 for all)")
	addJSONFlag(logCmd.Flags())
}
