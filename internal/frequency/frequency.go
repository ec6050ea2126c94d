// Package frequency models the recurrence rule algebra a schedule may carry:
// hourly/daily/weekly/monthly/yearly expressions and a cron fallback. Types
// are plain tagged structs rather than an interface hierarchy — the resolver
// switches on the Kind tag directly, matching the nested sum-type shape the
// rules were specified with.
package frequency

import (
	"sort"
	"time"

	"github.com/inful/stitchcron/internal/timestamp"
	"github.com/inful/stitchcron/internal/util/sets"
)

// Month is a 1-based calendar month (January = 1), matching the numeric
// mapping callers give the Yearly expression.
type Month int

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// MonthFromValue maps an arbitrary integer onto a Month via modulo 12. The
// upstream reference implementation's equivalent conversion routine
// collapsed every input to January; this one keeps the obvious mapping
// (value % 12 -> month).
func MonthFromValue(value int) Month {
	m := value % 12
	if m < 0 {
		m += 12
	}
	return Month(m + 1)
}

func (m Month) String() string {
	names := [...]string{
		"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	}
	if m < January || m > December {
		return "Invalid"
	}
	return names[m-1]
}

// Ordinal selects a position within a month: first through fifth, or the
// last qualifying occurrence.
type Ordinal int

const (
	First Ordinal = iota
	Second
	Third
	Fourth
	Fifth
	Last
)

// Value returns the ordinal's numeric offset, used directly by the resolver
// to compute "the Nth weekday" (7 * Value days from the first of the month).
func (o Ordinal) Value() int {
	return int(o)
}

func (o Ordinal) String() string {
	names := [...]string{"First", "Second", "Third", "Fourth", "Fifth", "Last"}
	if o < First || o > Last {
		return "Invalid"
	}
	return names[o]
}

// VariableWeekdayKind names the "Day" / "Weekday" / "Weekend" variable forms
// a yearly ordinal rule may select instead of a fixed weekday.
type VariableWeekdayKind int

const (
	VarDay VariableWeekdayKind = iota
	VarWeekday
	VarWeekend
)

// WeekdaySelector is either a fixed weekday (Const) or one of the variable
// forms (Var) used by yearly ordinal rules.
type WeekdaySelector struct {
	IsConst bool
	Const   time.Weekday
	Var     VariableWeekdayKind
}

// ConstWeekday builds a fixed-weekday selector.
func ConstWeekday(wd time.Weekday) WeekdaySelector {
	return WeekdaySelector{IsConst: true, Const: wd}
}

// VarWeekdaySelector builds a variable-form selector.
func VarWeekdaySelector(kind VariableWeekdayKind) WeekdaySelector {
	return WeekdaySelector{IsConst: false, Var: kind}
}

// OrdinalRule pairs an Ordinal with the weekday it qualifies, used by both
// monthly OnThe and yearly On clauses.
type OrdinalRule struct {
	Ordinal Ordinal
	Weekday WeekdaySelector
}

// Kind tags which variant of Expression is populated.
type Kind int

const (
	KindHourly Kind = iota
	KindDaily
	KindWeekly
	KindMonthly
	KindYearly
)

func (k Kind) String() string {
	names := [...]string{"Hourly", "Daily", "Weekly", "Monthly", "Yearly"}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// MonthlyKind tags whether a Monthly expression specifies explicit
// days-of-month or an ordinal weekday rule.
type MonthlyKind int

const (
	MonthlyOnDays MonthlyKind = iota
	MonthlyOnThe
)

// Expression is the tagged union of recurrence rules. Exactly the fields
// relevant to Kind are meaningful; constructors below enforce this.
type Expression struct {
	Kind Kind

	Every int // repetition multiplier, always >= 1 after normalization

	// Weekly
	Weekdays sets.Set[time.Weekday]

	// Monthly
	MonthlyKind MonthlyKind
	OnDays      sets.Set[int]
	OnThe       OrdinalRule

	// Yearly
	Months sets.Set[Month]
	On     *OrdinalRule // nil means "no ordinal clause"
}

func normalizedEvery(every int) int {
	if every < 1 {
		return 1
	}
	return every
}

// NewHourly builds a normalized Hourly expression.
func NewHourly(every int) Expression {
	return Expression{Kind: KindHourly, Every: normalizedEvery(every)}
}

// NewDaily builds a normalized Daily expression.
func NewDaily(every int) Expression {
	return Expression{Kind: KindDaily, Every: normalizedEvery(every)}
}

// NewWeekly builds a normalized Weekly expression. Weekdays are deduplicated
// and reduced modulo 7; only the first seven distinct values are retained
// (there cannot be more than seven weekdays anyway).
func NewWeekly(every int, weekdays []int) Expression {
	wds := sets.New[time.Weekday]()
	for _, raw := range weekdays {
		wd := raw % 7
		if wd < 0 {
			wd += 7
		}
		wds.Add(time.Weekday(wd))
		if wds.Len() == 7 {
			break
		}
	}
	return Expression{Kind: KindWeekly, Every: normalizedEvery(every), Weekdays: wds}
}

// NewMonthlyOnDays builds a normalized Monthly/OnDays expression. Days are
// deduplicated and filtered to the valid [1,31] range.
func NewMonthlyOnDays(every int, days []int) Expression {
	ds := sets.New[int]()
	for _, d := range days {
		if d >= 1 && d <= 31 {
			ds.Add(d)
		}
	}
	return Expression{
		Kind:        KindMonthly,
		Every:       normalizedEvery(every),
		MonthlyKind: MonthlyOnDays,
		OnDays:      ds,
	}
}

// NewMonthlyOnThe builds a normalized Monthly/OnThe expression.
func NewMonthlyOnThe(every int, ordinal Ordinal, weekday time.Weekday) Expression {
	return Expression{
		Kind:        KindMonthly,
		Every:       normalizedEvery(every),
		MonthlyKind: MonthlyOnThe,
		OnThe:       OrdinalRule{Ordinal: ordinal, Weekday: ConstWeekday(weekday)},
	}
}

// NewYearly builds a normalized Yearly expression. Months are deduplicated
// and reduced modulo 12; on is nil for "no ordinal clause".
func NewYearly(every int, months []int, on *OrdinalRule) Expression {
	ms := sets.New[Month]()
	for _, raw := range months {
		ms.Add(MonthFromValue(raw - 1))
	}
	return Expression{
		Kind:   KindYearly,
		Every:  normalizedEvery(every),
		Months: ms,
		On:     on,
	}
}

// SortedWeekdays returns the weekday filter in ascending order, used by the
// resolver to produce deterministic candidate search order.
func (e Expression) SortedWeekdays() []time.Weekday {
	if e.Weekdays == nil {
		return nil
	}
	out := e.Weekdays.Slice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedOnDays returns the day-of-month filter in ascending order.
func (e Expression) SortedOnDays() []int {
	if e.OnDays == nil {
		return nil
	}
	out := e.OnDays.Slice()
	sort.Ints(out)
	return out
}

// SortedMonths returns the month filter in ascending order.
func (e Expression) SortedMonths() []Month {
	if e.Months == nil {
		return nil
	}
	out := e.Months.Slice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PeriodDuration returns the fixed-length period for Hourly/Daily/Weekly
// expressions as a Timestamp offset. It panics for Monthly/Yearly, whose
// periods are calendar-relative rather than millisecond-fixed.
func (e Expression) PeriodDuration() timestamp.Timestamp {
	switch e.Kind {
	case KindHourly:
		return timestamp.FromHours(int64(e.Every))
	case KindDaily:
		return timestamp.FromDays(int64(e.Every))
	case KindWeekly:
		return timestamp.FromWeeks(int64(e.Every))
	default:
		panic("frequency: PeriodDuration is only defined for Hourly/Daily/Weekly")
	}
}

// FrequencyTag distinguishes a Regular, rule-based frequency from a Custom,
// cron-driven one.
type FrequencyTag int

const (
	TagRegular FrequencyTag = iota
	TagCustom
)

// maxCronExpressions bounds how many cron expressions the resolver consults;
// extras are accepted by the constructor but ignored at resolution time.
const maxCronExpressions = 3

// Frequency is either a Regular rule-based expression or a Custom list of
// cron expressions, each optionally bounded by an expiry instant.
type Frequency struct {
	Tag FrequencyTag

	Until *timestamp.Timestamp // nil means "never expires"

	// Regular
	Expr Expression

	// Custom
	CronExpressions []string
}

// NewRegular builds a Regular frequency.
func NewRegular(expr Expression, until *timestamp.Timestamp) Frequency {
	return Frequency{Tag: TagRegular, Expr: expr, Until: until}
}

// NewCustom builds a Custom, cron-driven frequency. All supplied
// expressions are retained verbatim; ResolvableCronExpressions trims to the
// first three when the resolver consults them.
func NewCustom(cronExpressions []string, until *timestamp.Timestamp) Frequency {
	return Frequency{Tag: TagCustom, CronExpressions: cronExpressions, Until: until}
}

// ResolvableCronExpressions returns at most the first three cron
// expressions; the rest are ignored by the resolver.
func (f Frequency) ResolvableCronExpressions() []string {
	if len(f.CronExpressions) <= maxCronExpressions {
		return f.CronExpressions
	}
	return f.CronExpressions[:maxCronExpressions]
}

// Expired reports whether candidate is at-or-after the frequency's until
// bound. The bound is treated as exclusive: the frequency remains valid
// while candidate < until.
func (f Frequency) Expired(candidate timestamp.Timestamp) bool {
	if f.Until == nil {
		return false
	}
	return !candidate.Before(*f.Until)
}
