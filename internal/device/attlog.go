package device

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Tiliavir/punchsync/internal/model"
)

// AttlogConnector reads the attendance log a device exports (attlog.dat):
// one record per line, tab-separated as
//
//	user_id  YYYY-MM-DD HH:MM:SS  verify  in/out  workcode  reserved
//
// verify and in/out become RawPunch.Status and RawPunch.Punch. DeviceID is
// stamped on every record since the file does not carry it.
type AttlogConnector struct {
	Path     string
	DeviceID string
}

// Connect opens the log file.
func (a *AttlogConnector) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("opening attendance log %s: %w", a.Path, err)
	}
	return &attlogConn{f: f, deviceID: a.DeviceID}, nil
}

type attlogConn struct {
	f        *os.File
	deviceID string
}

func (c *attlogConn) Attendance(ctx context.Context) ([]model.RawPunch, error) {
	var records []model.RawPunch
	sc := bufio.NewScanner(c.f)
	line := 0
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		records = append(records, parseAttlogLine(text, c.deviceID))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading attendance log line %d: %w", line+1, err)
	}
	return records, nil
}

func (c *attlogConn) Close() error {
	return c.f.Close()
}

// parseAttlogLine never fails: fields that are missing stay empty so the
// classifier can report the record.
func parseAttlogLine(text, deviceID string) model.RawPunch {
	fields := strings.Split(text, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	code := func(i int) int {
		n, err := strconv.Atoi(field(i))
		if err != nil {
			return 0
		}
		return n
	}
	return model.RawPunch{
		UserID:    field(0),
		Timestamp: field(1),
		Status:    code(2),
		Punch:     code(3),
		DeviceID:  deviceID,
	}
}
