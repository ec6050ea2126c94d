package schedule

import (
	"testing"

	"github.com/inful/stitchcron/internal/timestamp"
)

func TestNewGeneratesIDWhenEmpty(t *testing.T) {
	now := timestamp.Now()
	timing := NewTiming("UTC", "2026-01-01T00:00:00", now)

	s := New("", timing, Medium, nil)
	if s.ID == "" {
		t.Fatal("expected a generated id, got empty string")
	}

	other := New("", timing, Medium, nil)
	if other.ID == s.ID {
		t.Errorf("expected distinct generated ids, got the same value twice: %s", s.ID)
	}
}

func TestNewKeepsExplicitID(t *testing.T) {
	now := timestamp.Now()
	timing := NewTiming("UTC", "2026-01-01T00:00:00", now)

	s := New("explicit-id", timing, High, nil)
	if s.ID != "explicit-id" {
		t.Errorf("expected explicit id to be preserved, got %q", s.ID)
	}
}

func TestLessOrdersByDeadlineThenPriority(t *testing.T) {
	now := timestamp.Now()
	later := now.Add(timestamp.FromHours(1))

	earlier := Schedule{Timing: Timing{Deadline: now}, Priority: Low}
	laterSched := Schedule{Timing: Timing{Deadline: later}, Priority: High}
	if !Less(earlier, laterSched) {
		t.Error("expected the earlier deadline to sort first regardless of priority")
	}

	high := Schedule{Timing: Timing{Deadline: now}, Priority: High}
	medium := Schedule{Timing: Timing{Deadline: now}, Priority: Medium}
	if !Less(high, medium) {
		t.Error("expected High to sort before Medium on a tied deadline")
	}
}

func TestTimingWithDeadlineDoesNotMutateReceiver(t *testing.T) {
	now := timestamp.Now()
	later := now.Add(timestamp.FromHours(1))

	original := NewTiming("UTC", "2026-01-01T00:00:00", now)
	advanced := original.WithDeadline(later)

	if original.Deadline != now {
		t.Errorf("expected original timing to be unchanged, got deadline %v", original.Deadline)
	}
	if advanced.Deadline != later {
		t.Errorf("expected advanced timing to carry the new deadline, got %v", advanced.Deadline)
	}
}

func TestPriorityString(t *testing.T) {
	cases := map[Priority]string{High: "High", Medium: "Medium", Low: "Low", Priority(99): "Unknown"}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Priority(%d).String() = %q, want %q", p, got, want)
		}
	}
}
