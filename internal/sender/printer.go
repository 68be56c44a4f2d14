package sender

import (
	"context"
	"fmt"
	"io"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

// Printer is the dry-run sender: it lists what would be sent.
type Printer struct {
	Out io.Writer
}

func (p *Printer) Send(_ context.Context, batchID string, punches []model.ClassifiedPunch) (model.Outcome, error) {
	if len(punches) == 0 {
		return model.Outcome{}, nil
	}
	fmt.Fprintf(p.Out, "  [dry-run] batch %s, %d records:\n", batchID, len(punches))
	for _, c := range punches {
		fmt.Fprintf(p.Out, "    %-4s %-10s %s  (device %s)\n",
			c.Direction, c.UserID, timecalc.FormatWire(c.Timestamp), c.DeviceID)
	}
	return model.Outcome{
		Message:          "dry run, nothing sent",
		TotalRecords:     len(punches),
		ProcessedRecords: len(punches),
	}, nil
}
