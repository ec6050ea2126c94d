package resolver

import (
	"errors"
	"testing"
	"time"

	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/frequency"
	"github.com/inful/stitchcron/internal/schedule"
	"github.com/inful/stitchcron/internal/timestamp"
)

func ts(year int, month time.Month, day, hour, min, sec int) timestamp.Timestamp {
	return timestamp.FromTime(time.Date(year, month, day, hour, min, sec, 0, time.UTC))
}

func timingAt(anchor timestamp.Timestamp) schedule.Timing {
	return schedule.Timing{Timezone: "UTC", Anchor: anchor, Deadline: anchor}
}

func TestRefreshIdentityWhenDeadlineInFuture(t *testing.T) {
	r := New(nil)
	future := ts(2030, time.January, 1, 0, 0, 0)
	timing := schedule.Timing{Anchor: ts(2020, time.January, 1, 0, 0, 0), Deadline: future}
	freq := frequency.NewRegular(frequency.NewDaily(1), nil)

	got, err := r.Refresh("s1", timing, &freq, ts(2025, time.June, 1, 0, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Deadline != future {
		t.Errorf("expected identity, got deadline %v", got.Deadline.ToUTC())
	}
}

func TestRefreshHourlyPhasePreservation(t *testing.T) {
	r := New(nil)
	anchor := ts(2024, time.October, 21, 14, 19, 0)
	timing := timingAt(anchor)
	freq := frequency.NewRegular(frequency.NewHourly(4), nil)

	now := ts(2024, time.October, 21, 20, 0, 0)
	got, err := r.Refresh("s1", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2024, time.October, 21, 22, 19, 0)
	if got.Deadline != want {
		t.Errorf("expected %v, got %v", want.ToUTC(), got.Deadline.ToUTC())
	}
}

func TestRefreshMonthlyLastFriday(t *testing.T) {
	r := New(nil)
	anchor := ts(2025, time.January, 3, 9, 0, 0) // anchor day irrelevant to the ordinal search
	timing := timingAt(anchor)
	freq := frequency.NewRegular(frequency.NewMonthlyOnThe(1, frequency.Last, time.Friday), nil)

	now := ts(2025, time.January, 10, 0, 0, 0)
	got, err := r.Refresh("s3", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2025, time.January, 31, 9, 0, 0)
	if got.Deadline != want {
		t.Errorf("expected %v, got %v", want.ToUTC(), got.Deadline.ToUTC())
	}
	if got.Deadline.ToUTC().Weekday() != time.Friday {
		t.Errorf("expected Friday, got %v", got.Deadline.ToUTC().Weekday())
	}
}

func TestRefreshYearlyFirstWeekend(t *testing.T) {
	r := New(nil)
	anchor := ts(2025, time.January, 1, 8, 0, 0)
	timing := timingAt(anchor)
	on := frequency.OrdinalRule{Ordinal: frequency.First, Weekday: frequency.VarWeekdaySelector(frequency.VarWeekend)}
	freq := frequency.NewRegular(frequency.NewYearly(1, []int{1}, &on), nil)

	now := ts(2025, time.January, 1, 8, 0, 0)
	got, err := r.Refresh("s4", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2025, time.January, 4, 8, 0, 0)
	if got.Deadline != want {
		t.Errorf("expected %v, got %v", want.ToUTC(), got.Deadline.ToUTC())
	}
}

func TestRefreshFrequencyExpired(t *testing.T) {
	r := New(nil)
	anchor := ts(2024, time.January, 1, 0, 0, 0)
	timing := timingAt(anchor)
	until := ts(2024, time.January, 1, 0, 0, 0)
	freq := frequency.NewRegular(frequency.NewDaily(1), &until)

	now := ts(2025, time.January, 1, 0, 0, 0)
	_, err := r.Refresh("s6", timing, &freq, now)

	var classified *schederrors.ClassifiedError
	if !errors.As(err, &classified) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if classified.Category() != schederrors.CategoryFrequencyExpired {
		t.Errorf("expected CategoryFrequencyExpired, got %v", classified.Category())
	}
}

func TestRefreshMissingExpressionForNilFrequency(t *testing.T) {
	r := New(nil)
	anchor := ts(2024, time.January, 1, 0, 0, 0)
	timing := timingAt(anchor)

	_, err := r.Refresh("s0", timing, nil, ts(2025, time.January, 1, 0, 0, 0))

	var classified *schederrors.ClassifiedError
	if !errors.As(err, &classified) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if classified.Category() != schederrors.CategoryMissingExpression {
		t.Errorf("expected CategoryMissingExpression, got %v", classified.Category())
	}
}

func TestRefreshWeeklyWeekdayFilterYieldsOnlyFilteredDays(t *testing.T) {
	r := New(nil)
	anchor := ts(2026, time.July, 30, 9, 0, 0) // Thursday
	timing := timingAt(anchor)
	freq := frequency.NewRegular(frequency.NewWeekly(1, []int{1, 3}), nil) // Mon, Wed

	now := ts(2026, time.July, 30, 10, 0, 0)
	got, err := r.Refresh("s2", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wd := got.Deadline.ToUTC().Weekday()
	if wd != time.Monday && wd != time.Wednesday {
		t.Errorf("expected Monday or Wednesday, got %v", wd)
	}
	if !got.Deadline.After(now) {
		t.Errorf("expected deadline strictly after now, got %v", got.Deadline.ToUTC())
	}
}

func TestRefreshMonthlyOnDays(t *testing.T) {
	r := New(nil)
	anchor := ts(2026, time.February, 10, 6, 0, 0)
	timing := timingAt(anchor)
	freq := frequency.NewRegular(frequency.NewMonthlyOnDays(1, []int{15, 28, 30}), nil)

	// February 2026 has 28 days: day 30 never qualifies that month.
	now := ts(2026, time.February, 20, 0, 0, 0)
	got, err := r.Refresh("s5", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2026, time.February, 28, 6, 0, 0)
	if got.Deadline != want {
		t.Errorf("expected %v, got %v", want.ToUTC(), got.Deadline.ToUTC())
	}
}

// TestRefreshMonthlyOnDaysRetryAdvancesByOneMonthNotByEvery exercises a
// bimonthly (Every=2) OnDays rule whose forwarded month (February) has no
// day 30. The retry must advance by one month to March — which does have
// a 30th — rather than by Every, which would skip March entirely and jump
// straight to April.
func TestRefreshMonthlyOnDaysRetryAdvancesByOneMonthNotByEvery(t *testing.T) {
	r := New(nil)
	anchor := ts(2026, time.December, 5, 6, 0, 0)
	timing := timingAt(anchor)
	freq := frequency.NewRegular(frequency.NewMonthlyOnDays(2, []int{30}), nil)

	// forwardMonths lands the first candidate month on February 2027,
	// which has 28 days: day 30 never qualifies there.
	now := ts(2027, time.January, 1, 0, 0, 0)
	got, err := r.Refresh("s7", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2027, time.March, 30, 6, 0, 0)
	if got.Deadline != want {
		t.Errorf("expected the retry to land on March 30, 2027, got %v", got.Deadline.ToUTC())
	}
}

// TestRefreshYearlyRetryAdvancesByOneYearNotByEvery exercises a biennial
// (Every=2) "fifth Tuesday of February" rule. A fifth Tuesday only exists
// in a leap-year February (29 days); stepping by Every=2 from an odd
// forwarded year never lands on an even (potentially leap) year again, so
// the old Every-sized retry would exhaust its budget and fail. Stepping
// by one reaches the next leap year and resolves correctly.
func TestRefreshYearlyRetryAdvancesByOneYearNotByEvery(t *testing.T) {
	r := New(nil)
	anchor := ts(2025, time.January, 1, 0, 0, 0)
	timing := timingAt(anchor)
	on := frequency.OrdinalRule{Ordinal: frequency.Fifth, Weekday: frequency.ConstWeekday(time.Tuesday)}
	freq := frequency.NewRegular(frequency.NewYearly(2, []int{2}, &on), nil)

	// forwardYears lands the first candidate year on 2027, a non-leap
	// year with no fifth Tuesday in February; 2028 is a leap year whose
	// February opens on a Tuesday, giving it exactly five.
	now := ts(2026, time.June, 1, 0, 0, 0)
	got, err := r.Refresh("s8", timing, &freq, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ts(2028, time.February, 29, 0, 0, 0)
	if got.Deadline != want {
		t.Errorf("expected the retry to land on Feb 29, 2028, got %v", got.Deadline.ToUTC())
	}
}
