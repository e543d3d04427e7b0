package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
)

// milestoneRow is one threshold in `tally milestones` output.
type milestoneRow struct {
	Days    int  `json:"days"`
	Reached bool `json:"reached"`
	Next    bool `json:"next,omitempty"`
}

var milestonesCmd = &cobra.Command{
	Use:     "milestones",
	Short:   "List milestone thresholds and which are reached",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := resolveKey(cmd)
		if err != nil {
			return fail(cmd, err)
		}

		a, err := openApp(getBaseDir(), nil)
		if err != nil {
			return fail(cmd, err)
		}
		defer a.Close()

		snap, err := a.svc.Snapshot(commandContext(cmd), key)
		if err != nil {
			return fail(cmd, err)
		}
		rows := milestoneRows(snap, a.policy.Milestones)

		if jsonOutput(cmd) {
			return output.JSON(rows)
		}
		for _, r := range rows {
			mark := "  "
			switch {
			case r.Reached:
				mark = "✓ "
			case r.Next:
				mark = "→ "
			}
			line := mark + output.Days(r.Days)
			if r.Next {
				line += fmt.Sprintf("  (%s to go)", output.Days(r.Days-snap.Status.EffectiveStreak))
			}
			output.Info("%s", line)
		}
		return nil
	},
}

func milestoneRows(snap *streak.Snapshot, thresholds []int) []milestoneRow {
	next := streak.NextMilestone(snap.Status.EffectiveStreak, thresholds)
	rows := make([]milestoneRow, len(thresholds))
	for i, t := range thresholds {
		rows[i] = milestoneRow{
			Days:    t,
			Reached: snap.Ledger.HasMilestone(t),
			Next:    t == next,
		}
	}
	return rows
}

func init() {
	rootCmd.AddCommand(milestonesCmd)
	addJSONFlag(milestonesCmd.Flags())
}
