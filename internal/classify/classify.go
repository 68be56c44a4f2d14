// Package classify turns one day's raw device punches into at most one IN and
// one OUT per user.
//
// Direction is derived from timestamp order alone. Per user the classifier
// walks a small state machine:
//
//	stateNone --first record--> stateIn --later record--> stateComplete
//
// with self-loops for records whose timestamp equals the last emitted one
// (duplicates) and, in stateComplete, for any further record (skipped
// because the day is complete).
package classify

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/timecalc"
)

type dayState int

const (
	stateNone dayState = iota
	stateIn
	stateComplete
)

func (s dayState) String() string {
	switch s {
	case stateNone:
		return "none"
	case stateIn:
		return "in"
	case stateComplete:
		return "complete"
	}
	return fmt.Sprintf("dayState(%d)", int(s))
}

// Outcome is what the state machine decided for a single record.
type Outcome int

const (
	EmitIn Outcome = iota
	EmitOut
	SkipDuplicate
	SkipComplete
)

func (o Outcome) String() string {
	switch o {
	case EmitIn:
		return "emit-in"
	case EmitOut:
		return "emit-out"
	case SkipDuplicate:
		return "skip-duplicate"
	case SkipComplete:
		return "skip-complete"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// userDay is the classification state of one user for the day being classified.
type userDay struct {
	state dayState
	in    time.Time
	out   time.Time
}

// step applies one record's timestamp to the user's state.
func step(d userDay, ts time.Time) (userDay, Outcome) {
	switch d.state {
	case stateNone:
		d.state, d.in = stateIn, ts
		return d, EmitIn
	case stateIn:
		if ts.Equal(d.in) {
			return d, SkipDuplicate
		}
		d.state, d.out = stateComplete, ts
		return d, EmitOut
	default:
		if ts.Equal(d.out) {
			return d, SkipDuplicate
		}
		return d, SkipComplete
	}
}

// Classifier interprets naive device timestamps in Location.
type Classifier struct {
	Location *time.Location
}

// New returns a Classifier for timestamps recorded in loc (nil means time.Local).
func New(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{Location: loc}
}

type parsed struct {
	raw model.RawPunch
	ts  time.Time
}

// Classify maps one day's raw punches to classified punches plus counters.
// It does no I/O and keeps no state between calls. The output is ordered by
// user id, then timestamp.
func (c *Classifier) Classify(punches []model.RawPunch) ([]model.ClassifiedPunch, model.BatchResult) {
	result := model.BatchResult{Total: len(punches)}

	valid := make([]parsed, 0, len(punches))
	for _, p := range punches {
		if strings.TrimSpace(p.UserID) == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Missing user id for record at %q", p.Timestamp))
			continue
		}
		ts, err := timecalc.ParseTimestamp(p.Timestamp, c.Location)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Invalid timestamp for user %s: %q", p.UserID, p.Timestamp))
			continue
		}
		valid = append(valid, parsed{raw: p, ts: ts})
	}

	// Stable, so simultaneous records keep their arrival order.
	slices.SortStableFunc(valid, func(a, b parsed) int {
		if n := cmp.Compare(a.raw.UserID, b.raw.UserID); n != 0 {
			return n
		}
		return a.ts.Compare(b.ts)
	})

	days := make(map[string]userDay)
	var out []model.ClassifiedPunch
	for _, p := range valid {
		next, outcome := step(days[p.raw.UserID], p.ts)
		days[p.raw.UserID] = next

		switch outcome {
		case EmitIn:
			out = append(out, classified(p, model.In))
			result.Emitted++
		case EmitOut:
			out = append(out, classified(p, model.Out))
			result.Emitted++
		case SkipDuplicate:
			result.SkippedDuplicate++
		case SkipComplete:
			result.SkippedComplete++
		}
	}
	return out, result
}

func classified(p parsed, dir model.Direction) model.ClassifiedPunch {
	return model.ClassifiedPunch{
		UserID:    p.raw.UserID,
		Timestamp: p.ts,
		Direction: dir,
		Status:    p.raw.Status,
		Punch:     p.raw.Punch,
		UID:       p.raw.UID,
		DeviceID:  p.raw.DeviceID,
	}
}
