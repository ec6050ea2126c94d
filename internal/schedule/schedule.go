// Package schedule defines the Timing and Schedule entities the resolver,
// queue, and dispatch loop all operate on.
package schedule

import (
	"github.com/google/uuid"

	"github.com/inful/stitchcron/internal/frequency"
	"github.com/inful/stitchcron/internal/timestamp"
)

// Priority orders schedules when deadlines tie. Smaller values sort first
// (High before Medium before Low) so the zero value is the most urgent.
type Priority int

const (
	High Priority = iota
	Medium
	Low
)

func (p Priority) String() string {
	switch p {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// Timing bundles a schedule's timezone, its wall-clock anchor, the UTC
// instant that anchor localises to, and the next firing deadline.
// Invariant: once refreshed, Anchor <= Deadline.
type Timing struct {
	Timezone    string
	NaiveAnchor string // ISO-8601 local date-time, no offset
	Anchor      timestamp.Timestamp
	Deadline    timestamp.Timestamp
}

// NewTiming builds a Timing whose deadline starts out equal to its anchor.
func NewTiming(timezone, naiveAnchor string, anchor timestamp.Timestamp) Timing {
	return Timing{
		Timezone:    timezone,
		NaiveAnchor: naiveAnchor,
		Anchor:      anchor,
		Deadline:    anchor,
	}
}

// WithDeadline returns a copy of t with its deadline advanced.
func (t Timing) WithDeadline(deadline timestamp.Timestamp) Timing {
	t.Deadline = deadline
	return t
}

// Schedule is a single recurring (or one-shot) event. Identity and equality
// are both on ID alone.
type Schedule struct {
	ID        string
	Timing    Timing
	Priority  Priority
	Frequency *frequency.Frequency // nil means "fires once, never repeats"
}

// New constructs a Schedule. An empty id is replaced with a generated
// UUID, so callers may omit it. Priority is stored exactly as given; New
// applies no default (the zero value of Priority is High).
func New(id string, timing Timing, priority Priority, freq *frequency.Frequency) Schedule {
	if id == "" {
		id = uuid.NewString()
	}
	return Schedule{ID: id, Timing: timing, Priority: priority, Frequency: freq}
}

// Less orders schedules by deadline ascending, then by priority ascending
// on ties (High sorts before Low). This is the comparator the priority
// queue is instantiated with.
func Less(a, b Schedule) bool {
	if a.Timing.Deadline != b.Timing.Deadline {
		return a.Timing.Deadline.Before(b.Timing.Deadline)
	}
	return a.Priority < b.Priority
}
