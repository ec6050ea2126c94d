// Package resolver implements the recurrence resolver: given a schedule's
// current Timing and Frequency, compute the next firing instant strictly
// after a reference time.
package resolver

import (
	"time"

	"github.com/inful/stitchcron/internal/calendar"
	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/frequency"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/schedule"
	"github.com/inful/stitchcron/internal/timestamp"
)

// maxOrdinalRetries bounds how many period-aligned months/years the
// resolver will scan before giving up on an ordinal rule.
const maxOrdinalRetries = 100

// Resolver computes the next firing Timing for a schedule's Frequency.
type Resolver struct {
	cron oracle.CronOracle
}

// New builds a Resolver consulting cron for Custom frequencies.
func New(cron oracle.CronOracle) *Resolver {
	return &Resolver{cron: cron}
}

// Refresh advances timing to the next instant strictly after now, per the
// schedule's frequency. If timing.Deadline already lies in the future, it
// is returned unchanged. A nil frequency means the schedule never repeats
// and always yields MissingExpression once its one deadline has passed.
func (r *Resolver) Refresh(scheduleID string, t schedule.Timing, freq *frequency.Frequency, now timestamp.Timestamp) (schedule.Timing, error) {
	if t.Deadline.After(now) {
		return t, nil
	}

	if freq == nil {
		return schedule.Timing{}, schederrors.MissingExpressionError("schedule has no frequency to refresh").
			WithContext("schedule_id", scheduleID).
			Build()
	}

	var next timestamp.Timestamp
	var err error

	if freq.Tag == frequency.TagCustom {
		next, err = r.refreshCustom(scheduleID, t, *freq, now)
	} else {
		next, err = r.refreshRegular(scheduleID, t, *freq, now)
	}
	if err != nil {
		return schedule.Timing{}, err
	}

	if freq.Expired(next) {
		return schedule.Timing{}, schederrors.FrequencyExpiredError("next occurrence is at or past the frequency's until bound").
			WithContext("schedule_id", scheduleID).
			Build()
	}

	return t.WithDeadline(next), nil
}

func (r *Resolver) refreshRegular(scheduleID string, t schedule.Timing, freq frequency.Frequency, now timestamp.Timestamp) (timestamp.Timestamp, error) {
	switch freq.Expr.Kind {
	case frequency.KindHourly, frequency.KindDaily:
		period := freq.Expr.PeriodDuration()
		return phaseAdvance(t.Anchor, period, now), nil
	case frequency.KindWeekly:
		return r.refreshWeekly(t, freq.Expr, now), nil
	case frequency.KindMonthly:
		return r.refreshMonthly(scheduleID, t, freq.Expr, now)
	case frequency.KindYearly:
		return r.refreshYearly(scheduleID, t, freq.Expr, now)
	default:
		return timestamp.Timestamp(0), schederrors.MissingExpressionError("unrecognized frequency kind").
			WithContext("schedule_id", scheduleID).
			Build()
	}
}

// phaseAdvance computes the smallest instant strictly after now that is
// anchor plus a whole multiple of period, preserving the anchor's phase.
func phaseAdvance(anchor, period, now timestamp.Timestamp) timestamp.Timestamp {
	anchorMs, periodMs, nowMs := anchor.AsMillis(), period.AsMillis(), now.AsMillis()

	if anchorMs >= nowMs {
		return timestamp.FromMillis(anchorMs + periodMs)
	}

	k := (nowMs-anchorMs)/periodMs + 1
	return timestamp.FromMillis(anchorMs + k*periodMs)
}

func (r *Resolver) refreshWeekly(t schedule.Timing, expr frequency.Expression, now timestamp.Timestamp) timestamp.Timestamp {
	period := timestamp.FromWeeks(int64(expr.Every))
	weekdays := expr.SortedWeekdays()

	if len(weekdays) == 0 {
		return phaseAdvance(t.Anchor, period, now)
	}

	var best timestamp.Timestamp
	haveBest := false
	for _, wd := range weekdays {
		shiftedAnchor := calendar.SetDayOfWeek(t.Anchor, wd)
		candidate := phaseAdvance(shiftedAnchor, period, now)
		if !haveBest || candidate.Before(best) {
			best = candidate
			haveBest = true
		}
	}
	return best
}

func (r *Resolver) refreshMonthly(scheduleID string, t schedule.Timing, expr frequency.Expression, now timestamp.Timestamp) (timestamp.Timestamp, error) {
	forwarded := forwardMonths(t.Anchor, expr.Every, now)

	for attempt := 0; attempt < maxOrdinalRetries; attempt++ {
		year, month := forwarded.ToUTC().Year(), int(forwarded.ToUTC().Month())-1

		var candidate timestamp.Timestamp
		var ok bool

		switch expr.MonthlyKind {
		case frequency.MonthlyOnDays:
			candidate, ok = bestOnDaysCandidate(forwarded, year, month, expr.SortedOnDays(), now)
		case frequency.MonthlyOnThe:
			candidate, ok = onTheCandidate(forwarded, year, month, expr.OnThe)
			if ok && !candidate.After(now) {
				ok = false
			}
		}

		if ok {
			return candidate, nil
		}

		// OnThe is period-aligned: a miss (e.g. no fifth Friday) skips the
		// whole period. OnDays is not — a miss (e.g. no day 30 in February)
		// only skips that one month, so the retry advances by one month
		// regardless of Every.
		if expr.MonthlyKind == frequency.MonthlyOnThe {
			forwarded = calendar.AddMonths(forwarded, expr.Every)
		} else {
			forwarded = calendar.AddMonths(forwarded, 1)
		}
	}

	return timestamp.Timestamp(0), schederrors.NonDeterministicError("monthly ordinal rule exhausted its retry budget").
		WithContext("schedule_id", scheduleID).
		Build()
}

// forwardMonths advances anchor by whole periods of every months until its
// (year, month) is at-or-after now's month. elapsed=0 (anchor already in
// now's month) requires no advance at all; otherwise the anchor steps
// forward in units of every until it catches up.
func forwardMonths(anchor timestamp.Timestamp, every int, now timestamp.Timestamp) timestamp.Timestamp {
	elapsed := calendar.MonthsBetween(anchor, now)
	if elapsed < 0 {
		return calendar.AddMonths(anchor, every)
	}
	monthsToAdd := elapsed + (every-elapsed%every)%every
	return calendar.AddMonths(anchor, monthsToAdd)
}

func bestOnDaysCandidate(ref timestamp.Timestamp, year, month int, days []int, now timestamp.Timestamp) (timestamp.Timestamp, bool) {
	monthLen := calendar.DaysInMonth(year, month)
	first := calendar.FirstOfMonth(ref, year, month)

	var best timestamp.Timestamp
	haveBest := false
	for _, d := range days {
		if d > monthLen {
			continue
		}
		candidate := calendar.WithDay(first, d)
		if !candidate.After(now) {
			continue
		}
		if !haveBest || candidate.Before(best) {
			best = candidate
			haveBest = true
		}
	}
	return best, haveBest
}

func onTheCandidate(ref timestamp.Timestamp, year, month int, rule frequency.OrdinalRule) (timestamp.Timestamp, bool) {
	monthLen := calendar.DaysInMonth(year, month)

	if rule.Ordinal == frequency.Last {
		last := calendar.LastOfMonth(ref, year, month)
		lastWd := last.ToUTC().Weekday()
		back := calendar.RevDowOffset(lastWd, rule.Weekday.Const)
		return calendar.ShiftDays(last, -back), true
	}

	first := calendar.FirstOfMonth(ref, year, month)
	firstWd := first.ToUTC().Weekday()
	offsetDays := 7*rule.Ordinal.Value() + calendar.DowOffset(firstWd, rule.Weekday.Const)

	if offsetDays+1 > monthLen {
		return timestamp.Timestamp(0), false
	}
	return calendar.ShiftDays(first, offsetDays), true
}

func (r *Resolver) refreshYearly(scheduleID string, t schedule.Timing, expr frequency.Expression, now timestamp.Timestamp) (timestamp.Timestamp, error) {
	months := expr.SortedMonths()
	if len(months) == 0 {
		return timestamp.Timestamp(0), schederrors.MissingExpressionError("yearly frequency has no months").
			WithContext("schedule_id", scheduleID).
			Build()
	}

	forwarded := forwardYears(t.Anchor, expr.Every, now)

	var firstErr error
	for attempt := 0; attempt < maxOrdinalRetries; attempt++ {
		year := forwarded.ToUTC().Year()

		var best timestamp.Timestamp
		haveBest := false

		for _, m := range months {
			monthIdx := int(m) - 1
			candidate, ok, err := yearlyMonthCandidate(forwarded, year, monthIdx, expr.On)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !ok || !candidate.After(now) {
				continue
			}
			if !haveBest || candidate.Before(best) {
				best = candidate
				haveBest = true
			}
		}

		if haveBest {
			return best, nil
		}
		// A miss (e.g. no 30th-of-February equivalent in a given year)
		// only skips that one year, so the retry advances by one year
		// regardless of Every.
		forwarded = calendar.AddYears(forwarded, 1)
	}

	if firstErr != nil {
		return timestamp.Timestamp(0), firstErr
	}
	return timestamp.Timestamp(0), schederrors.NonDeterministicError("yearly ordinal rule exhausted its retry budget").
		WithContext("schedule_id", scheduleID).
		Build()
}

func forwardYears(anchor timestamp.Timestamp, every int, now timestamp.Timestamp) timestamp.Timestamp {
	elapsed := calendar.YearsBetween(anchor, now)
	if elapsed < 0 {
		return calendar.AddYears(anchor, every)
	}
	yearsToAdd := elapsed + (every-elapsed%every)%every
	return calendar.AddYears(anchor, yearsToAdd)
}

func yearlyMonthCandidate(ref timestamp.Timestamp, year, month int, on *frequency.OrdinalRule) (timestamp.Timestamp, bool, error) {
	monthLen := calendar.DaysInMonth(year, month)

	if on == nil {
		return calendar.LastOfMonth(ref, year, month), true, nil
	}

	if on.Ordinal == frequency.Last {
		return yearlyLastOrdinal(ref, year, month, on.Weekday)
	}

	if on.Weekday.IsConst {
		first := calendar.FirstOfMonth(ref, year, month)
		firstWd := first.ToUTC().Weekday()
		offsetDays := 7*on.Ordinal.Value() + calendar.DowOffset(firstWd, on.Weekday.Const)
		if offsetDays+1 > monthLen {
			return timestamp.Timestamp(0), false, nil
		}
		return calendar.ShiftDays(first, offsetDays), true, nil
	}

	switch on.Weekday.Var {
	case frequency.VarDay:
		day := 1 + on.Ordinal.Value()
		if day > monthLen {
			return timestamp.Timestamp(0), false, nil
		}
		return calendar.WithDay(calendar.FirstOfMonth(ref, year, month), day), true, nil

	case frequency.VarWeekday:
		return yearlyVarWeekday(ref, year, month, on.Ordinal)

	case frequency.VarWeekend:
		return yearlyVarWeekend(ref, year, month, on.Ordinal)

	default:
		return timestamp.Timestamp(0), false, nil
	}
}

var businessWeekdays = [5]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func yearlyVarWeekday(ref timestamp.Timestamp, year, month int, ordinal frequency.Ordinal) (timestamp.Timestamp, bool, error) {
	first := calendar.FirstOfMonth(ref, year, month)
	firstWd := first.ToUTC().Weekday()

	idx := indexOfWeekday(businessWeekdays[:], firstWd)
	var chosen time.Weekday
	if idx >= 0 {
		chosen = businessWeekdays[(idx+ordinal.Value())%5]
	} else {
		chosen = businessWeekdays[ordinal.Value()%5]
	}

	offsetDays := calendar.DowOffset(firstWd, chosen)
	monthLen := calendar.DaysInMonth(year, month)
	if offsetDays+1 > monthLen {
		return timestamp.Timestamp(0), false, nil
	}
	return calendar.ShiftDays(first, offsetDays), true, nil
}

func yearlyVarWeekend(ref timestamp.Timestamp, year, month int, ordinal frequency.Ordinal) (timestamp.Timestamp, bool, error) {
	monthLen := calendar.DaysInMonth(year, month)
	first := calendar.FirstOfMonth(ref, year, month)

	weekendDays := make([]timestamp.Timestamp, 0, monthLen/3+1)
	for d := 1; d <= monthLen; d++ {
		candidate := calendar.WithDay(first, d)
		wd := candidate.ToUTC().Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			weekendDays = append(weekendDays, candidate)
		}
	}

	idx := ordinal.Value()
	if idx >= len(weekendDays) {
		return timestamp.Timestamp(0), false, nil
	}
	return weekendDays[idx], true, nil
}

func yearlyLastOrdinal(ref timestamp.Timestamp, year, month int, wd frequency.WeekdaySelector) (timestamp.Timestamp, bool, error) {
	last := calendar.LastOfMonth(ref, year, month)
	lastWd := last.ToUTC().Weekday()

	if wd.IsConst {
		back := calendar.RevDowOffset(lastWd, wd.Const)
		return calendar.ShiftDays(last, -back), true, nil
	}

	switch wd.Var {
	case frequency.VarDay:
		return last, true, nil

	case frequency.VarWeekday:
		switch lastWd {
		case time.Saturday:
			return calendar.ShiftDays(last, -1), true, nil
		case time.Sunday:
			return calendar.ShiftDays(last, -2), true, nil
		default:
			return last, true, nil
		}

	case frequency.VarWeekend:
		toSun := calendar.RevDowOffset(lastWd, time.Sunday)
		toSat := calendar.RevDowOffset(lastWd, time.Saturday)
		back := toSun
		if toSat < back {
			back = toSat
		}
		return calendar.ShiftDays(last, -back), true, nil

	default:
		return timestamp.Timestamp(0), false, nil
	}
}

func indexOfWeekday(list []time.Weekday, wd time.Weekday) int {
	for i, w := range list {
		if w == wd {
			return i
		}
	}
	return -1
}

func (r *Resolver) refreshCustom(scheduleID string, t schedule.Timing, freq frequency.Frequency, now timestamp.Timestamp) (timestamp.Timestamp, error) {
	exprs := freq.ResolvableCronExpressions()
	if len(exprs) == 0 {
		return timestamp.Timestamp(0), schederrors.MissingExpressionError("custom frequency has no cron expressions").
			WithContext("schedule_id", scheduleID).
			Build()
	}

	start := t.Anchor
	if now.After(start) {
		start = now
	}

	var best timestamp.Timestamp
	haveBest := false
	for _, expr := range exprs {
		next, err := r.cron.NextAfter(expr, start, t.Timezone)
		if err != nil {
			return timestamp.Timestamp(0), schederrors.ParseError("cron expression could not be parsed").
				WithContext("schedule_id", scheduleID).
				WithContext("expression", expr).
				Build()
		}
		if !haveBest || next.Before(best) {
			best = next
			haveBest = true
		}
	}
	return best, nil
}
