// Package device reads attendance records from a time-clock device.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

// ErrFetch marks a failure to obtain records from the device. A date whose
// fetch fails is skipped as a whole.
var ErrFetch = errors.New("fetch attendance")

// Conn is an open device connection.
type Conn interface {
	// Attendance returns every record stored on the device.
	Attendance(ctx context.Context) ([]model.RawPunch, error)
	// Close disconnects from the device.
	Close() error
}

// Connector opens device connections.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Source yields the raw punches recorded on one calendar date.
type Source interface {
	Fetch(ctx context.Context, date time.Time) ([]model.RawPunch, error)
}

// WithConn connects, runs fn and disconnects, whatever fn returns.
// A disconnect error is returned only when fn itself succeeded.
func WithConn(ctx context.Context, c Connector, fn func(Conn) error) (err error) {
	conn, err := c.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to device: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("disconnecting from device: %w", cerr)
		}
	}()
	return fn(conn)
}

// Fetcher implements Source on top of a Connector. Every Fetch opens and
// closes its own connection. A positive Timeout bounds the whole
// connect-read-disconnect cycle.
type Fetcher struct {
	Connector Connector
	Location  *time.Location
	Timeout   time.Duration
	Log       *zap.Logger
}

// NewFetcher returns a Fetcher reading through c. Timestamps without an
// offset are interpreted in loc.
func NewFetcher(c Connector, loc *time.Location, log *zap.Logger) *Fetcher {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{Connector: c, Location: loc, Log: log}
}

// Fetch returns the records for date. On failure it returns nil and an error
// wrapping ErrFetch, never a partial result.
func (f *Fetcher) Fetch(ctx context.Context, date time.Time) ([]model.RawPunch, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var all []model.RawPunch
	err := WithConn(ctx, f.Connector, func(conn Conn) error {
		f.Log.Debug("device connected")
		var err error
		all, err = conn.Attendance(ctx)
		if err != nil {
			return fmt.Errorf("reading attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	records := FilterDate(all, date, f.Location)
	f.Log.Info("attendance fetched",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("device_records", len(all)),
		zap.Int("date_records", len(records)),
	)
	return records, nil
}

// FilterDate keeps the records whose timestamp falls on date's calendar day
// in loc. Records with an unparseable timestamp are kept so that the
// classifier can report them.
func FilterDate(records []model.RawPunch, date time.Time, loc *time.Location) []model.RawPunch {
	if loc == nil {
		loc = time.Local
	}
	day := date.In(loc)
	var out []model.RawPunch
	for _, r := range records {
		ts, err := timecalc.ParseTimestamp(r.Timestamp, loc)
		if err != nil || timecalc.SameDay(ts.In(loc), day) {
			out = append(out, r)
		}
	}
	return out
}
