package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/features"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether streaks are active, at risk or lost",
	Long: `Shows the current state of a streak without changing it.

With --remind, an at-risk streak also publishes a challenge event (and
forwards it to the webhook when webhook_events is on).`,
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		remind, _ := cmd.Flags().GetBool("remind")

		a, err := openApp(getBaseDir(), nil)
		if err != nil {
			return fail(cmd, err)
		}
		defer a.Close()
		ctx := commandContext(cmd)

		if all {
			keys, err := config.GetKeys(getBaseDir())
			if err != nil {
				return fail(cmd, err)
			}
			snaps, err := a.svc.SnapshotAll(ctx, keys)
			if err != nil {
				return fail(cmd, err)
			}
			if jsonOutput(cmd) {
				return output.JSON(snaps)
			}
			for i := range snaps {
				output.Info("%s", output.StatusLine(&snaps[i]))
			}
			return nil
		}

		key, err := resolveKey(cmd)
		if err != nil {
			return fail(cmd, err)
		}
		snap, reminded, err := statusFor(ctx, a, key, remind)
		if err != nil {
			return fail(cmd, err)
		}

		if jsonOutput(cmd) {
			return output.JSON(map[string]interface{}{"snapshot": snap, "reminded": reminded})
		}
		output.Info("%s", output.StatusLine(snap))
		if reminded {
			output.Warning("%s streak ends in %dh. Complete something to keep it.", snap.Key, snap.Status.GracePeriodRemainingHours)
		}
		return nil
	},
}

// statusFor snapshots key, publishing the challenge event when remind is set
// and the streak_challenge feature is on.
func statusFor(ctx context.Context, a *app, key string, remind bool) (*streak.Snapshot, bool, error) {
	if remind && a.flags.Enabled(features.StreakChallenge) {
		return a.svc.Remind(ctx, key)
	}
	snap, err := a.svc.Snapshot(ctx, key)
	return snap, false, err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("all", "a", false, "Show every known streak key")
	statusCmd.Flags().Bool("remind", false, "Publish a challenge event when the streak is at risk")
	addJSONFlag(statusCmd.Flags())
}
