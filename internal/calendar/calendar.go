// Package calendar provides the Gregorian-calendar arithmetic the recurrence
// resolver builds on: leap years, month lengths, and the weekday offset
// helpers used to locate "the Nth weekday" within a month.
package calendar

import (
	"time"

	"github.com/inful/stitchcron/internal/timestamp"
)

// Weekday mirrors time.Weekday (Sunday = 0 .. Saturday = 6) so calendar math
// stays in terms of plain integers rather than re-deriving a weekday type.
type Weekday = time.Weekday

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month of year.
// month is 0-based (January = 0), matching the calendar's internal
// month-index convention.
func DaysInMonth(year int, month int) int {
	const (
		jan = iota
		feb
		mar
		apr
		may
		jun
		jul
		aug
		sep
		oct
		nov
		dec
	)
	switch month {
	case jan, mar, may, jul, aug, oct, dec:
		return 31
	case apr, jun, sep, nov:
		return 30
	case feb:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		panic("calendar: month index out of range [0,11]")
	}
}

// DowOffset returns the number of days forward from refWd to the next
// occurrence of targetWd, in [0,6]. Zero when the two weekdays coincide.
func DowOffset(refWd, targetWd Weekday) int {
	return (int(7-refWd) + int(targetWd)) % 7
}

// RevDowOffset returns the number of days backward from refWd to the most
// recent occurrence of targetWd, in [0,6].
func RevDowOffset(refWd, targetWd Weekday) int {
	return (7 - DowOffset(refWd, targetWd)) % 7
}

// SetDayOfWeek shifts ts backward within its Sun..Sat week so its weekday
// becomes targetWd, preserving time-of-day.
func SetDayOfWeek(ts timestamp.Timestamp, targetWd Weekday) timestamp.Timestamp {
	t := ts.ToUTC()
	back := RevDowOffset(t.Weekday(), targetWd)
	shifted := t.AddDate(0, 0, -back)
	return timestamp.FromTime(shifted)
}

// Align rounds x2 so that (x2 - x1) snaps to the nearest whole day boundary,
// preserving x1's time-of-day component.
func Align(x2, x1 timestamp.Timestamp) timestamp.Timestamp {
	t1 := x1.ToUTC()
	t2 := x2.ToUTC()

	days := t2.Sub(t1).Hours() / 24
	rounded := int(days + 0.5)
	if days < 0 {
		rounded = int(days - 0.5)
	}

	aligned := time.Date(t1.Year(), t1.Month(), t1.Day(), t1.Hour(), t1.Minute(), t1.Second(), t1.Nanosecond(), time.UTC)
	aligned = aligned.AddDate(0, 0, rounded)
	return timestamp.FromTime(aligned)
}

// AddMonths advances ts by n months, clamping the day-of-month to the
// length of the resulting month (so Jan 31 + 1 month lands on Feb 28/29,
// not March 3).
func AddMonths(ts timestamp.Timestamp, n int) timestamp.Timestamp {
	t := ts.ToUTC()
	year, month, day := t.Year(), int(t.Month())-1, t.Day()

	total := year*12 + month + n
	newYear := total / 12
	newMonth := total % 12
	if newMonth < 0 {
		newMonth += 12
		newYear--
	}

	maxDay := DaysInMonth(newYear, newMonth)
	if day > maxDay {
		day = maxDay
	}

	shifted := time.Date(newYear, time.Month(newMonth+1), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return timestamp.FromTime(shifted)
}

// AddYears advances ts by n years, clamping Feb 29 to Feb 28 in non-leap
// target years.
func AddYears(ts timestamp.Timestamp, n int) timestamp.Timestamp {
	return AddMonths(ts, n*12)
}

// MonthsBetween returns the number of whole calendar months from a to b
// (b's month-index minus a's, plus 12 per year of difference). Negative
// when b precedes a.
func MonthsBetween(a, b timestamp.Timestamp) int {
	ta, tb := a.ToUTC(), b.ToUTC()
	return (tb.Year()-ta.Year())*12 + int(tb.Month()-ta.Month())
}

// YearsBetween returns the number of whole calendar years from a to b.
func YearsBetween(a, b timestamp.Timestamp) int {
	return b.ToUTC().Year() - a.ToUTC().Year()
}

// FirstOfMonth returns the instant at day 1 of the given year/month
// (0-based), preserving the time-of-day from ref.
func FirstOfMonth(ref timestamp.Timestamp, year, month int) timestamp.Timestamp {
	t := ref.ToUTC()
	d := time.Date(year, time.Month(month+1), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return timestamp.FromTime(d)
}

// LastOfMonth returns the instant at the last day of the given year/month
// (0-based), preserving the time-of-day from ref.
func LastOfMonth(ref timestamp.Timestamp, year, month int) timestamp.Timestamp {
	t := ref.ToUTC()
	d := time.Date(year, time.Month(month+1), DaysInMonth(year, month), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return timestamp.FromTime(d)
}

// WithDay returns ts shifted to the given day-of-month within the same
// year/month, preserving time-of-day.
func WithDay(ts timestamp.Timestamp, day int) timestamp.Timestamp {
	t := ts.ToUTC()
	d := time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return timestamp.FromTime(d)
}

// ShiftDays returns ts shifted forward (or backward, for negative n) by n
// calendar days, preserving time-of-day.
func ShiftDays(ts timestamp.Timestamp, n int) timestamp.Timestamp {
	t := ts.ToUTC()
	return timestamp.FromTime(t.AddDate(0, 0, n))
}
