package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/dateparse"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
)

var completeCmd = &cobra.Command{
	Use:     "complete",
	Aliases: []string{"done"},
	Short:   "Record a completion",
	Long: `Records one completion against the streak key.

The first completion of a calendar day extends the streak. Later completions
on the same day count toward earning a freeze.`,
	Example: `  tally complete
  tally complete --key reading
  tally complete --on yesterday`,
	GroupID: "core",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := resolveKey(cmd)
		if err != nil {
			return fail(cmd, err)
		}
		on, _ := cmd.Flags().GetString("on")

		res, err := recordCompletion(cmd.Context(), getBaseDir(), key, on, time.Now())
		if res == nil {
			return fail(cmd, err)
		}

		if jsonOutput(cmd) {
			if jerr := output.JSON(map[string]interface{}{"key": key, "result": res}); jerr != nil {
				return jerr
			}
		} else {
			output.Info("%s", output.FormatResult(key, res))
		}

		if errors.Is(err, kv.ErrStorageFull) {
			output.Warning("storage is full; this completion was not saved")
		}
		return err
	},
}

// recordCompletion records one completion for key. on, when set, backdates
// the completion to that day at now's wall-clock time.
func recordCompletion(ctx context.Context, baseDir, key, on string, now time.Time) (*streak.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var clock calendar.Clock
	if on != "" {
		day, err := dateparse.ParseDayFrom(on, now)
		if err != nil {
			return nil, fmt.Errorf("%w: --on: %v", errInvalidInput, err)
		}
		clock = calendar.Fixed(dateparse.At(day, now))
	}

	a, err := openApp(baseDir, clock)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	res, err := a.svc.RecordCompletion(ctx, key)
	if res == nil {
		return nil, err
	}
	if rerr := config.RegisterKey(baseDir, key); rerr != nil {
		slog.Debug("register key", "key", key, "err", rerr)
	}
	return res, err
}

func init() {
	rootCmd.AddCommand(completeCmd)
	completeCmd.Flags().String("on", "", "Backdate the completion (today, yesterday, -3d, monday, 2026-01-15)")
	addJSONFlag(completeCmd.Flags())
}
