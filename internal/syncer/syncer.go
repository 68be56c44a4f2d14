// Package syncer runs the fetch → classify → send pipeline one date at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tiliavir/punchsync/internal/classify"
	"github.com/Tiliavir/punchsync/internal/device"
	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/sender"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

// Syncer wires a device source, the classifier and a sender. Mirror, when
// set, receives a copy of every batch the Sender accepted.
type Syncer struct {
	Source     device.Source
	Classifier *classify.Classifier
	Sender     sender.Sender
	Mirror     sender.Sender
	Out        io.Writer
	Log        *zap.Logger
	NewBatchID func() string
}

// New returns a Syncer printing summaries to out.
func New(src device.Source, c *classify.Classifier, snd sender.Sender, out io.Writer, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Syncer{
		Source:     src,
		Classifier: c,
		Sender:     snd,
		Out:        out,
		Log:        log,
		NewBatchID: uuid.NewString,
	}
}

// DayReport describes what happened to one date.
type DayReport struct {
	Date    time.Time
	BatchID string
	Fetched int
	Punches []model.ClassifiedPunch
	Result  model.BatchResult
	Outcome model.Outcome
	Sent    bool
	Err     error
}

// Failed reports whether the date could not be fetched or sent.
func (r DayReport) Failed() bool {
	return r.Err != nil
}

// RangeReport collects the reports of a range run, in date order.
type RangeReport struct {
	Days []DayReport
}

// Failed returns the number of dates that failed.
func (r RangeReport) Failed() int {
	n := 0
	for _, d := range r.Days {
		if d.Failed() {
			n++
		}
	}
	return n
}

// ClassifyDate fetches and classifies date without sending anything.
func (s *Syncer) ClassifyDate(ctx context.Context, date time.Time) DayReport {
	report := DayReport{Date: date, BatchID: s.NewBatchID()}
	log := s.Log.With(zap.String("date", date.Format("2006-01-02")), zap.String("batch_id", report.BatchID))

	records, err := s.Source.Fetch(ctx, date)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		fmt.Fprintf(s.Out, "  ! Failed to fetch attendance data: %v\n", err)
		report.Err = err
		return report
	}
	report.Fetched = len(records)
	fmt.Fprintf(s.Out, "  Found %d attendance records\n", len(records))
	if len(records) == 0 {
		return report
	}

	report.Punches, report.Result = s.Classifier.Classify(records)
	log.Info("classified",
		zap.Int("total", report.Result.Total),
		zap.Int("emitted", report.Result.Emitted),
		zap.Int("skipped_duplicate", report.Result.SkippedDuplicate),
		zap.Int("skipped_complete", report.Result.SkippedComplete),
		zap.Int("errors", len(report.Result.Errors)),
	)
	printResult(s.Out, report.Result)
	return report
}

// SyncDate fetches, classifies and sends date. Failures are recorded in the
// report and printed, never returned: a caller looping over dates goes on.
func (s *Syncer) SyncDate(ctx context.Context, date time.Time) DayReport {
	fmt.Fprintf(s.Out, "Syncing attendance data for %s\n", date.Format("2006-01-02"))

	report := s.ClassifyDate(ctx, date)
	if report.Err != nil {
		return report
	}
	if report.Fetched == 0 {
		fmt.Fprintln(s.Out, "  No attendance records found for the specified date.")
		return report
	}
	if len(report.Punches) == 0 {
		fmt.Fprintln(s.Out, "  No records to send.")
		return report
	}

	log := s.Log.With(zap.String("date", date.Format("2006-01-02")), zap.String("batch_id", report.BatchID))
	outcome, err := s.Sender.Send(ctx, report.BatchID, report.Punches)
	if err != nil {
		log.Error("send failed", zap.Error(err))
		fmt.Fprintf(s.Out, "  ! Failed to send data to API: %v\n", err)
		report.Err = err
		return report
	}
	report.Sent = true
	report.Outcome = outcome
	printOutcome(s.Out, outcome)

	if s.Mirror != nil {
		if _, err := s.Mirror.Send(ctx, report.BatchID, report.Punches); err != nil {
			log.Warn("mirror publish failed", zap.Error(err))
		}
	}
	return report
}

// SyncRange syncs every date in [from, to] in ascending order. A failed date
// does not stop the range; a cancelled context does.
func (s *Syncer) SyncRange(ctx context.Context, from, to time.Time) (RangeReport, error) {
	return s.eachDate(ctx, from, to, s.SyncDate)
}

// ClassifyRange is SyncRange without sending.
func (s *Syncer) ClassifyRange(ctx context.Context, from, to time.Time) (RangeReport, error) {
	return s.eachDate(ctx, from, to, func(ctx context.Context, d time.Time) DayReport {
		fmt.Fprintf(s.Out, "Classifying attendance data for %s\n", d.Format("2006-01-02"))
		return s.ClassifyDate(ctx, d)
	})
}

func (s *Syncer) eachDate(ctx context.Context, from, to time.Time, fn func(context.Context, time.Time) DayReport) (RangeReport, error) {
	var rr RangeReport
	days := timecalc.DateRange(from, to)
	if len(days) == 0 {
		return rr, fmt.Errorf("end date %s is before start date %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	for i, d := range days {
		if err := ctx.Err(); err != nil {
			return rr, fmt.Errorf("stopped before %s: %w", d.Format("2006-01-02"), err)
		}
		if i > 0 {
			fmt.Fprintln(s.Out)
		}
		report := fn(ctx, d)
		rr.Days = append(rr.Days, report)
		if report.Err != nil && errors.Is(report.Err, context.Canceled) {
			return rr, report.Err
		}
	}
	return rr, nil
}

func printResult(w io.Writer, r model.BatchResult) {
	fmt.Fprintf(w, "  Classified: %d emitted, %d duplicates skipped, %d skipped (complete day), %d errors\n",
		r.Emitted, r.SkippedDuplicate, r.SkippedComplete, len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "   - %s\n", e)
	}
}

func printOutcome(w io.Writer, o model.Outcome) {
	fmt.Fprintln(w, "  Bulk registration successful!")
	fmt.Fprintf(w, "   Total records: %d\n", o.TotalRecords)
	fmt.Fprintf(w, "   Processed: %d\n", o.ProcessedRecords)
	fmt.Fprintf(w, "   Skipped duplicates: %d\n", o.SkippedDuplicates)
	fmt.Fprintf(w, "   Skipped (complete day): %d\n", o.SkippedComplete)
	if len(o.Errors) > 0 {
		fmt.Fprintln(w, "  Some errors occurred:")
		for _, e := range o.Errors {
			fmt.Fprintf(w, "   - %s\n", e)
		}
	}
}

// PrintSummary writes the totals of a range run.
func PrintSummary(w io.Writer, rr RangeReport) {
	var sent, skipped int
	for _, d := range rr.Days {
		if d.Sent {
			sent++
		} else if !d.Failed() {
			skipped++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d dates sent\n", sent)
	fmt.Fprintf(w, "  %d dates with nothing to send\n", skipped)
	if n := rr.Failed(); n > 0 {
		fmt.Fprintf(w, "  %d dates failed\n", n)
	}
}
