// Package oracle declares the external collaborator interfaces the
// recurrence resolver and dispatch loop depend on but never implement
// themselves: the wall clock, IANA timezone localisation, and cron
// expression evaluation. Concrete implementations live in tzoracle and
// cronoracle; tests substitute fakes satisfying these same interfaces.
package oracle

import (
	"time"

	"github.com/inful/stitchcron/internal/timestamp"
)

// TimeOracle returns the current UTC instant. Implementations must be
// monotonic enough that two successive calls land within a few
// milliseconds of real time.
type TimeOracle interface {
	Now() timestamp.Timestamp
}

// LocalizeOutcome tags how a naive local date-time resolved against a
// timezone's DST transitions.
type LocalizeOutcome int

const (
	// LocalizeOK means the naive time mapped unambiguously to a single
	// UTC instant.
	LocalizeOK LocalizeOutcome = iota
	// LocalizeAmbiguous means the naive time occurs twice (a repeated
	// wall-clock hour during a fall-back transition). The oracle resolves
	// this itself, always choosing the later of the two instants.
	LocalizeAmbiguous
	// LocalizeGap means the naive time never occurs (a skipped wall-clock
	// hour during a spring-forward transition).
	LocalizeGap
	// LocalizeUnknownZone means the IANA zone name could not be loaded.
	LocalizeUnknownZone
)

// TimezoneOracle localises a naive local date-time against an IANA zone.
type TimezoneOracle interface {
	// Localize returns the UTC instant a naive wall-clock date-time
	// denotes within ianaZone. On ambiguity the later instant is chosen
	// and outcome is LocalizeAmbiguous; on gap or unknown zone instant is
	// the zero value and outcome reports which failure occurred.
	Localize(naive time.Time, ianaZone string) (instant timestamp.Timestamp, outcome LocalizeOutcome)
}

// CronOracle answers "what is the next instant, strictly after start, that
// expression fires in zone", so the resolver never has to parse cron
// syntax or juggle timezone offsets itself.
type CronOracle interface {
	NextAfter(expression string, start timestamp.Timestamp, ianaZone string) (timestamp.Timestamp, error)
}

// Subscriber is invoked once, synchronously, each time a schedule fires.
// Any panic raised by the subscriber is the subscriber's concern; the
// dispatcher does not retry or suppress it.
type Subscriber func(scheduleID string)
