// Package sender delivers classified punch batches.
package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

// ErrSend marks a batch that could not be delivered. Failed batches are not
// retried or kept.
var ErrSend = errors.New("send attendance")

// StatusError is returned when the attendance API answers with anything but
// 201 Created.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("attendance API error %d: %s", e.StatusCode, e.Body)
}

// Sender transmits one day's classified punches. Sending an empty batch is a
// no-op that returns a zero Outcome.
type Sender interface {
	Send(ctx context.Context, batchID string, punches []model.ClassifiedPunch) (model.Outcome, error)
}

// Record is the wire shape of one punch in a bulk registration request.
type Record struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Status    int    `json:"status"`
	Punch     int    `json:"punch"`
	UID       string `json:"uid,omitempty"`
	DeviceID  string `json:"device_id"`
}

// Batch is the bulk registration request body.
type Batch struct {
	Records []Record `json:"records"`
}

// NewRecord converts a classified punch to its wire shape.
func NewRecord(p model.ClassifiedPunch) Record {
	return Record{
		UserID:    p.UserID,
		Timestamp: timecalc.FormatWire(p.Timestamp),
		Direction: string(p.Direction),
		Status:    p.Status,
		Punch:     p.Punch,
		UID:       p.UID,
		DeviceID:  p.DeviceID,
	}
}

// NewBatch converts classified punches to a request body.
func NewBatch(punches []model.ClassifiedPunch) Batch {
	b := Batch{Records: make([]Record, 0, len(punches))}
	for _, p := range punches {
		b.Records = append(b.Records, NewRecord(p))
	}
	return b
}
