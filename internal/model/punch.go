// Package model holds the punch and batch types shared across the pipeline.
package model

import "time"

// Direction is the derived direction of a classified punch.
type Direction string

const (
	In  Direction = "IN"
	Out Direction = "OUT"
)

// RawPunch is a single attendance record as reported by the device.
// Status and Punch are the device's own codes; they are forwarded but never
// decide the direction.
type RawPunch struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Punch     int    `json:"punch"`
	UID       string `json:"uid,omitempty"`
	DeviceID  string `json:"device_id"`
}

// ClassifiedPunch is a RawPunch with a parsed timestamp and a derived direction.
type ClassifiedPunch struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Status    int       `json:"status"`
	Punch     int       `json:"punch"`
	UID       string    `json:"uid,omitempty"`
	DeviceID  string    `json:"device_id"`
}

// BatchResult holds the counters of one classification pass.
// Total always equals Emitted + SkippedDuplicate + SkippedComplete + len(Errors).
type BatchResult struct {
	Total            int      `json:"total"`
	Emitted          int      `json:"emitted"`
	SkippedDuplicate int      `json:"skipped_duplicate"`
	SkippedComplete  int      `json:"skipped_complete"`
	Errors           []string `json:"errors,omitempty"`
}

// Consistent reports whether the counters add up to Total.
func (r BatchResult) Consistent() bool {
	return r.Total == r.Emitted+r.SkippedDuplicate+r.SkippedComplete+len(r.Errors)
}

// Outcome is the attendance API's answer to a bulk registration request.
type Outcome struct {
	Message           string   `json:"message"`
	TotalRecords      int      `json:"totalRecords"`
	ProcessedRecords  int      `json:"processedRecords"`
	SkippedDuplicates int      `json:"skippedDuplicates"`
	SkippedComplete   int      `json:"skippedComplete"`
	Errors            []string `json:"errors,omitempty"`
}

// DayBatch is the classified output for one calendar date, as written by
// `punchsync classify --out`.
type DayBatch struct {
	Date    string            `json:"date"`
	BatchID string            `json:"batch_id"`
	Punches []ClassifiedPunch `json:"punches"`
	Result  BatchResult       `json:"result"`
}
