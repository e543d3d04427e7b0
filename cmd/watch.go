package cmd

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/tui/dashboard"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Live dashboard of every streak",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("watch needs an interactive terminal; use 'tally status --all' instead")
		}
		interval, _ := cmd.Flags().GetDuration("interval")

		a, err := openApp(getBaseDir(), nil)
		if err != nil {
			return fail(cmd, err)
		}
		defer a.Close()

		keys, err := config.GetKeys(getBaseDir())
		if err != nil {
			return fail(cmd, err)
		}

		// ch is never closed: a completion still publishing after the
		// program exits may reach Forward through an older subscriber list.
		ch := make(chan events.Event, 32)
		unsubscribe := a.bus.Subscribe(dashboard.Forward(ch))
		defer unsubscribe()

		backend := dashboard.Track(a.svc)
		model := dashboard.NewModel(backend, keys, a.policy.Milestones, ch, interval)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(commandContext(cmd)))
		_, err = p.Run()
		backend.Close()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Second, "Refresh interval")
}
