package config

import (
	"fmt"
	"strings"
	"time"

	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/foundation/normalization"
	"github.com/inful/stitchcron/internal/frequency"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/schedule"
	"github.com/inful/stitchcron/internal/timestamp"
)

// naiveAnchorLayout is the ISO-8601 local date-time format (no offset)
// schedules.yaml anchors are written in.
const naiveAnchorLayout = "2006-01-02T15:04:05"

var ordinalNormalizer = normalization.NewEnumNormalizer("ordinal", map[string]frequency.Ordinal{
	"first":  frequency.First,
	"second": frequency.Second,
	"third":  frequency.Third,
	"fourth": frequency.Fourth,
	"fifth":  frequency.Fifth,
	"last":   frequency.Last,
}, frequency.Ordinal(0))

var weekdayNormalizer = normalization.NewEnumNormalizer("weekday", map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}, time.Sunday)

var priorityNormalizer = normalization.NewEnumNormalizer("priority", map[string]schedule.Priority{
	"high":   schedule.High,
	"medium": schedule.Medium,
	"low":    schedule.Low,
}, schedule.Medium)

// ParsePriority maps a schedules.yaml priority string onto schedule.Priority,
// defaulting to Medium for an empty or unrecognized value.
func ParsePriority(s string) schedule.Priority {
	return priorityNormalizer.Normalize(s)
}

func parseWeekdaySelector(s string) (frequency.WeekdaySelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return frequency.VarWeekdaySelector(frequency.VarDay), nil
	case "weekday":
		return frequency.VarWeekdaySelector(frequency.VarWeekday), nil
	case "weekend":
		return frequency.VarWeekdaySelector(frequency.VarWeekend), nil
	}
	if wd, err := weekdayNormalizer.NormalizeWithValidation(s); err == nil {
		return frequency.ConstWeekday(wd), nil
	}
	return frequency.WeekdaySelector{}, fmt.Errorf("unrecognized weekday %q", s)
}

func parseOrdinal(s string) (frequency.Ordinal, error) {
	return ordinalNormalizer.NormalizeWithValidation(s)
}

// ToFrequency builds a frequency.Frequency from its on-disk descriptor. A
// nil descriptor yields a nil Frequency (a schedule that never repeats).
func ToFrequency(fd *FrequencyDescriptor) (*frequency.Frequency, error) {
	if fd == nil {
		return nil, nil
	}

	var until *timestamp.Timestamp
	if fd.Until != "" {
		t, err := time.Parse(time.RFC3339, fd.Until)
		if err != nil {
			return nil, schederrors.ParseError("malformed until timestamp").
				WithContext("until", fd.Until).
				Build()
		}
		u := timestamp.FromTime(t)
		until = &u
	}

	if strings.EqualFold(fd.Kind, "custom") {
		freq := frequency.NewCustom(fd.CronExpressions, until)
		return &freq, nil
	}

	expr, err := toExpression(fd)
	if err != nil {
		return nil, err
	}
	freq := frequency.NewRegular(expr, until)
	return &freq, nil
}

func toExpression(fd *FrequencyDescriptor) (frequency.Expression, error) {
	switch strings.ToLower(fd.Kind) {
	case "hourly":
		return frequency.NewHourly(fd.Every), nil
	case "daily":
		return frequency.NewDaily(fd.Every), nil
	case "weekly":
		return frequency.NewWeekly(fd.Every, fd.Weekdays), nil
	case "monthly":
		if fd.Ordinal != "" {
			ord, err := parseOrdinal(fd.Ordinal)
			if err != nil {
				return frequency.Expression{}, schederrors.ParseError(err.Error()).Build()
			}
			sel, err := parseWeekdaySelector(fd.Weekday)
			if err != nil || !sel.IsConst {
				return frequency.Expression{}, schederrors.ParseError(
					"monthly OnThe requires a fixed weekday, not a variable selector").Build()
			}
			return frequency.NewMonthlyOnThe(fd.Every, ord, sel.Const), nil
		}
		return frequency.NewMonthlyOnDays(fd.Every, fd.OnDays), nil
	case "yearly":
		var on *frequency.OrdinalRule
		if fd.Ordinal != "" {
			ord, err := parseOrdinal(fd.Ordinal)
			if err != nil {
				return frequency.Expression{}, schederrors.ParseError(err.Error()).Build()
			}
			sel, err := parseWeekdaySelector(fd.Weekday)
			if err != nil {
				return frequency.Expression{}, schederrors.ParseError(err.Error()).Build()
			}
			on = &frequency.OrdinalRule{Ordinal: ord, Weekday: sel}
		}
		return frequency.NewYearly(fd.Every, fd.Months, on), nil
	default:
		return frequency.Expression{}, schederrors.ParseError(
			fmt.Sprintf("unrecognized frequency kind %q", fd.Kind)).Build()
	}
}

// ToSchedule builds a schedule.Schedule from its on-disk descriptor,
// localizing the naive anchor against its IANA zone via tz.
func ToSchedule(sd ScheduleDescriptor, tz oracle.TimezoneOracle) (schedule.Schedule, error) {
	naive, err := time.Parse(naiveAnchorLayout, sd.NaiveAnchor)
	if err != nil {
		return schedule.Schedule{}, schederrors.ParseError("malformed anchor date-time").
			WithContext("schedule_id", sd.ID).
			WithContext("anchor", sd.NaiveAnchor).
			Build()
	}

	anchor, outcome := tz.Localize(naive, sd.Timezone)
	switch outcome {
	case oracle.LocalizeGap:
		return schedule.Schedule{}, schederrors.ResolutionFailedError("anchor falls in a DST gap").
			WithContext("schedule_id", sd.ID).
			WithContext("timezone", sd.Timezone).
			Build()
	case oracle.LocalizeUnknownZone:
		return schedule.Schedule{}, schederrors.ResolutionFailedError("unknown IANA timezone").
			WithContext("schedule_id", sd.ID).
			WithContext("timezone", sd.Timezone).
			Build()
	}

	freq, err := ToFrequency(sd.Frequency)
	if err != nil {
		return schedule.Schedule{}, err
	}

	timing := schedule.NewTiming(sd.Timezone, sd.NaiveAnchor, anchor)
	return schedule.New(sd.ID, timing, ParsePriority(sd.Priority), freq), nil
}
