package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/syncer"
)

func sampleRange() syncer.RangeReport {
	day := time.Date(2025, 7, 27, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	return syncer.RangeReport{Days: []syncer.DayReport{
		{
			Date:    day,
			BatchID: "b-1",
			Punches: []model.ClassifiedPunch{
				{UserID: "1", Timestamp: at(9, 0), Direction: model.In, Status: 1, DeviceID: "10.0.0.5"},
				{UserID: "1", Timestamp: at(17, 30), Direction: model.Out, Status: 1, Punch: 1, DeviceID: "10.0.0.5"},
				{UserID: "2", Timestamp: at(8, 15), Direction: model.In, DeviceID: "10.0.0.5"},
				{UserID: "3,x", Timestamp: at(10, 0), Direction: model.In, DeviceID: "10.0.0.5"},
			},
			Result: model.BatchResult{Total: 4, Emitted: 4},
		},
		{Date: day.AddDate(0, 0, 1), BatchID: "b-2", Err: errTest},
	}}
}

var errTest = errors.New("device unreachable")

func TestPrintCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := printCSV(&buf, sampleRange()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if lines[0] != "date,user_id,timestamp,direction,status,punch,device_id" {
		t.Errorf("header = %q", lines[0])
	}
	if want := "2025-07-27,1,2025-07-27T17:30:00.000Z,OUT,1,1,10.0.0.5"; lines[2] != want {
		t.Errorf("line 2 = %q, want %q", lines[2], want)
	}
	if !strings.HasPrefix(lines[4], `2025-07-27,"3,x",`) {
		t.Errorf("user id with comma not quoted: %q", lines[4])
	}
}

func TestPrintJSONSkipsFailedDates(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, sampleRange()); err != nil {
		t.Fatal(err)
	}
	var batches []model.DayBatch
	if err := json.Unmarshal(buf.Bytes(), &batches); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if batches[0].Date != "2025-07-27" || batches[0].BatchID != "b-1" || len(batches[0].Punches) != 4 {
		t.Errorf("batch = %+v", batches[0])
	}
}

func TestPrintList(t *testing.T) {
	var buf bytes.Buffer
	printList(&buf, sampleRange())
	want := "## 2025-07-27\n\n" +
		"- user 1: IN 09:00:00 OUT 17:30:00\n" +
		"- user 2: IN 08:15:00\n" +
		"- user 3,x: IN 10:00:00\n\n"
	if buf.String() != want {
		t.Errorf("printList =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	printList(&buf, syncer.RangeReport{})
	if buf.String() != "No punches found.\n" {
		t.Errorf("empty printList = %q", buf.String())
	}
}
