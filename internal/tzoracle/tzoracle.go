// Package tzoracle implements oracle.TimezoneOracle against the IANA
// database bundled with the Go toolchain (time.LoadLocation), detecting DST
// ambiguity and gaps by re-deriving the wall-clock components of the
// candidate instant and comparing them back against the naive input.
package tzoracle

import (
	"sync"
	"time"

	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/timestamp"
)

// IANAOracle localises naive date-times using the standard library's tzdata
// support, caching loaded *time.Location values by zone name.
type IANAOracle struct {
	mu    sync.Mutex
	cache map[string]*time.Location
}

// New builds an IANAOracle with an empty location cache.
func New() *IANAOracle {
	return &IANAOracle{cache: make(map[string]*time.Location)}
}

func (o *IANAOracle) location(zone string) (*time.Location, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if loc, ok := o.cache[zone]; ok {
		return loc, true
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, false
	}
	o.cache[zone] = loc
	return loc, true
}

// Localize resolves naive within ianaZone. Ambiguous wall-clock times
// (fall-back transitions) always resolve to the later of the two candidate
// instants; wall-clock times that never occur (spring-forward gaps) report
// LocalizeGap.
func (o *IANAOracle) Localize(naive time.Time, ianaZone string) (timestamp.Timestamp, oracle.LocalizeOutcome) {
	loc, ok := o.location(ianaZone)
	if !ok {
		return timestamp.Timestamp(0), oracle.LocalizeUnknownZone
	}

	asUTC := time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(),
		time.UTC,
	)

	// A DST transition, if any affects this wall clock, lies within a day
	// either side of it. Sampling the zone offset a day before and a day
	// after is enough to discover both candidate offsets.
	_, offBefore := asUTC.Add(-24 * time.Hour).In(loc).Zone()
	_, offAfter := asUTC.Add(24 * time.Hour).In(loc).Zone()

	candidates := make([]time.Time, 0, 2)
	seen := make(map[int]bool, 2)
	for _, off := range [2]int{offBefore, offAfter} {
		if seen[off] {
			continue
		}
		seen[off] = true

		instant := asUTC.Add(-time.Duration(off) * time.Second)
		if wallClockEqual(instant.In(loc), naive) {
			candidates = append(candidates, instant)
		}
	}

	switch len(candidates) {
	case 0:
		return timestamp.Timestamp(0), oracle.LocalizeGap
	case 1:
		return timestamp.FromTime(candidates[0]), oracle.LocalizeOK
	default:
		later := candidates[0]
		for _, c := range candidates[1:] {
			if c.After(later) {
				later = c
			}
		}
		return timestamp.FromTime(later), oracle.LocalizeAmbiguous
	}
}

func wallClockEqual(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
