package tzoracle

import (
	"testing"
	"time"

	"github.com/inful/stitchcron/internal/oracle"
)

func TestLocalizeUnambiguous(t *testing.T) {
	o := New()
	naive := time.Date(2026, time.July, 30, 9, 0, 0, 0, time.UTC)

	got, outcome := o.Localize(naive, "America/New_York")
	if outcome != oracle.LocalizeOK {
		t.Fatalf("expected LocalizeOK, got %v", outcome)
	}

	want := time.Date(2026, time.July, 30, 13, 0, 0, 0, time.UTC) // EDT is UTC-4
	if got.ToUTC() != want {
		t.Errorf("expected %v, got %v", want, got.ToUTC())
	}
}

func TestLocalizeUnknownZone(t *testing.T) {
	o := New()
	naive := time.Date(2026, time.July, 30, 9, 0, 0, 0, time.UTC)

	_, outcome := o.Localize(naive, "Not/A_Zone")
	if outcome != oracle.LocalizeUnknownZone {
		t.Fatalf("expected LocalizeUnknownZone, got %v", outcome)
	}
}

func TestLocalizeGap(t *testing.T) {
	o := New()
	// US spring-forward 2026: clocks jump from 01:59:59 to 03:00:00 on
	// March 8. 02:30 never occurs.
	naive := time.Date(2026, time.March, 8, 2, 30, 0, 0, time.UTC)

	_, outcome := o.Localize(naive, "America/New_York")
	if outcome != oracle.LocalizeGap {
		t.Fatalf("expected LocalizeGap, got %v", outcome)
	}
}

func TestLocalizeAmbiguousChoosesLater(t *testing.T) {
	o := New()
	// US fall-back 2026: clocks repeat 01:00..01:59 on November 1.
	naive := time.Date(2026, time.November, 1, 1, 30, 0, 0, time.UTC)

	got, outcome := o.Localize(naive, "America/New_York")
	if outcome != oracle.LocalizeAmbiguous {
		t.Fatalf("expected LocalizeAmbiguous, got %v", outcome)
	}

	// The later instant uses the post-transition (standard, UTC-5) offset.
	want := time.Date(2026, time.November, 1, 6, 30, 0, 0, time.UTC)
	if got.ToUTC() != want {
		t.Errorf("expected %v, got %v", want, got.ToUTC())
	}
}
