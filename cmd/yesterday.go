package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/punchsync/internal/timecalc"
)

var yesterdayCmd = &cobra.Command{
	Use:   "yesterday",
	Short: "Sync the previous day",
	Long:  "yesterday syncs the day before today in the device timezone. Meant for a nightly cron job.",
	Args:  cobra.NoArgs,
	RunE:  runYesterday,
}

func init() {
	yesterdayCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Fetch and classify, print what would be sent")
}

func runYesterday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	d := timecalc.Yesterday(time.Now().In(a.loc))
	return a.syncRange(cmd, d, d)
}
