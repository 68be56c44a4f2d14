package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/storage"
	"github.com/Tiliavir/punchsync/internal/syncer"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

var (
	classifyFormat string
	classifyOut    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [MM/DD/YYYY [MM/DD/YYYY]]",
	Short: "Fetch and classify punches without sending them",
	Long: `classify runs the fetch and classify steps for the given dates and prints
the resulting IN/OUT punches. Nothing is sent to the attendance API.

With --out, each date's batch is also written to DIR/YYYY/MM/DD.json.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "md", "Output format: csv, json, md")
	classifyCmd.Flags().StringVar(&classifyOut, "out", "", "Directory to write per-date batch files to")
}

func runClassify(cmd *cobra.Command, args []string) error {
	switch classifyFormat {
	case "csv", "json", "md":
	default:
		return fmt.Errorf("unknown format %q: want csv, json or md", classifyFormat)
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	from, to, err := parseDates(args, a.loc, time.Now())
	if err != nil {
		return err
	}

	// Progress lines go to stderr so stdout carries only the export.
	a.syncer.Out = cmd.ErrOrStderr()
	rr, err := a.syncer.ClassifyRange(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	if classifyOut != "" {
		for _, d := range rr.Days {
			if d.Failed() {
				continue
			}
			path, err := storage.SaveBatch(classifyOut, d.Date, dayBatch(d))
			if err != nil {
				return err
			}
			a.log.Info("batch written", zap.String("path", path))
		}
	}

	out := cmd.OutOrStdout()
	switch classifyFormat {
	case "json":
		err = printJSON(out, rr)
	case "csv":
		err = printCSV(out, rr)
	default:
		printList(out, rr)
	}
	if err != nil {
		return err
	}

	if n := rr.Failed(); n > 0 {
		return &exitCodeError{code: 2, msg: fmt.Sprintf("%d of %d dates failed", n, len(rr.Days))}
	}
	return nil
}

func dayBatch(d syncer.DayReport) model.DayBatch {
	return model.DayBatch{
		Date:    d.Date.Format("2006-01-02"),
		BatchID: d.BatchID,
		Punches: d.Punches,
		Result:  d.Result,
	}
}

func printJSON(w io.Writer, rr syncer.RangeReport) error {
	batches := make([]model.DayBatch, 0, len(rr.Days))
	for _, d := range rr.Days {
		if !d.Failed() {
			batches = append(batches, dayBatch(d))
		}
	}
	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printCSV(w io.Writer, rr syncer.RangeReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "user_id", "timestamp", "direction", "status", "punch", "device_id"}); err != nil {
		return err
	}
	for _, d := range rr.Days {
		date := d.Date.Format("2006-01-02")
		for _, p := range d.Punches {
			err := cw.Write([]string{
				date,
				p.UserID,
				timecalc.FormatWire(p.Timestamp),
				string(p.Direction),
				strconv.Itoa(p.Status),
				strconv.Itoa(p.Punch),
				p.DeviceID,
			})
			if err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// printList groups punches by date and user.
func printList(w io.Writer, rr syncer.RangeReport) {
	printed := false
	for _, d := range rr.Days {
		if len(d.Punches) == 0 {
			continue
		}
		printed = true
		fmt.Fprintf(w, "## %s\n\n", d.Date.Format("2006-01-02"))

		var user string
		open := false
		for _, p := range d.Punches {
			if !open || p.UserID != user {
				if open {
					fmt.Fprintln(w)
				}
				user = p.UserID
				fmt.Fprintf(w, "- user %s:", user)
				open = true
			}
			fmt.Fprintf(w, " %s %s", p.Direction, p.Timestamp.Format("15:04:05"))
			if p.Direction == model.Out {
				fmt.Fprintln(w)
				open = false
			}
		}
		if open {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
	if !printed {
		fmt.Fprintln(w, "No punches found.")
	}
}
