package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/punchsync/internal/syncer"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

var (
	configPath string
	logLevel   string
	syncDryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "punchsync [MM/DD/YYYY [MM/DD/YYYY]]",
	Short: "Sync attendance punches from a time-clock device to the attendance API",
	Long: `punchsync reads the attendance records of a biometric time clock, keeps
one punch in and one punch out per user and day, and sends each day's batch
to the attendance API's bulk registration endpoint.

  punchsync                          sync today
  punchsync 07/27/2025               sync one date
  punchsync 07/25/2025 07/27/2025    sync a date range, one day at a time

Settings live in ~/.punchsync/config.json (created on first run) and can be
overridden with PUNCHSYNC_* environment variables.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

// exitCodeError asks Execute to exit with a specific code after the command
// has already reported the problem.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			fmt.Fprintln(os.Stderr, ec.msg)
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.punchsync/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Fetch and classify, print what would be sent")

	rootCmd.AddCommand(yesterdayCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(configCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	from, to, err := parseDates(args, a.loc, time.Now())
	if err != nil {
		return err
	}
	return a.syncRange(cmd, from, to)
}

func (a *app) syncRange(cmd *cobra.Command, from, to time.Time) error {
	rr, err := a.syncer.SyncRange(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	if len(rr.Days) > 1 {
		syncer.PrintSummary(cmd.OutOrStdout(), rr)
	}
	if n := rr.Failed(); n > 0 {
		return &exitCodeError{code: 2, msg: fmt.Sprintf("%d of %d dates failed", n, len(rr.Days))}
	}
	return nil
}

// parseDates turns zero, one or two MM/DD/YYYY arguments into an inclusive
// date range. All arguments are validated before anything runs.
func parseDates(args []string, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	switch len(args) {
	case 0:
		today := timecalc.StartOfDay(now.In(loc))
		return today, today, nil
	case 1:
		d, err := timecalc.ParseDate(args[0], loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return d, d, nil
	case 2:
		from, err := timecalc.ParseDate(args[0], loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to, err := timecalc.ParseDate(args[1], loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", args[1], args[0])
		}
		return from, to, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("expected at most 2 dates, got %d", len(args))
}
