package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/punchsync/internal/timecalc"
)

func TestParseDates(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 22:30 UTC is already the next day at UTC+3.
	now := time.Date(2025, 7, 27, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		args     []string
		from, to time.Time
		wantErr  bool
	}{
		{"today", nil, time.Date(2025, 7, 28, 0, 0, 0, 0, loc), time.Date(2025, 7, 28, 0, 0, 0, 0, loc), false},
		{"single", []string{"07/27/2025"}, time.Date(2025, 7, 27, 0, 0, 0, 0, loc), time.Date(2025, 7, 27, 0, 0, 0, 0, loc), false},
		{"range", []string{"07/25/2025", "07/27/2025"}, time.Date(2025, 7, 25, 0, 0, 0, 0, loc), time.Date(2025, 7, 27, 0, 0, 0, 0, loc), false},
		{"same day range", []string{"07/27/2025", "07/27/2025"}, time.Date(2025, 7, 27, 0, 0, 0, 0, loc), time.Date(2025, 7, 27, 0, 0, 0, 0, loc), false},
		{"iso date", []string{"2025-07-27"}, time.Time{}, time.Time{}, true},
		{"bad second date", []string{"07/25/2025", "13/01/2025"}, time.Time{}, time.Time{}, true},
		{"reversed", []string{"07/27/2025", "07/25/2025"}, time.Time{}, time.Time{}, true},
		{"too many", []string{"07/25/2025", "07/26/2025", "07/27/2025"}, time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseDates(tt.args, loc, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDates(%v) = %v, %v, want error", tt.args, from, to)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDates(%v): %v", tt.args, err)
			}
			if !from.Equal(tt.from) || !to.Equal(tt.to) {
				t.Errorf("parseDates(%v) = %v..%v, want %v..%v", tt.args, from, to, tt.from, tt.to)
			}
		})
	}
}

func TestParseDatesInvalidIsErrInvalidDate(t *testing.T) {
	_, _, err := parseDates([]string{"02/30/2025"}, time.UTC, time.Now())
	if !errors.Is(err, timecalc.ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestExitCodeError(t *testing.T) {
	var err error = &exitCodeError{code: 2, msg: "1 of 3 dates failed"}
	var ec *exitCodeError
	if !errors.As(err, &ec) {
		t.Fatal("errors.As did not match *exitCodeError")
	}
	if ec.code != 2 {
		t.Errorf("code = %d, want 2", ec.code)
	}
	if err.Error() != "1 of 3 dates failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}
