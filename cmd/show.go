package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/output"
)

var showCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show a streak in detail",
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

		if jsonOutput(cmd) {
			return output.JSON(snap)
		}

		if md, _ := cmd.Flags().GetBool("markdown"); md {
			rendered, err := output.RenderMarkdown(output.SnapshotMarkdown(snap, a.policy.Milestones))
			if err != nil {
				output.Error("render markdown: %v", err)
				return err
			}
			output.Info("%s", rendered)
			return nil
		}

		output.Info("%s", output.FormatSnapshot(snap, a.policy.Milestones))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolP("markdown", "m", false, "Render as markdown")
	addJSONFlag(showCmd.Flags())
}
