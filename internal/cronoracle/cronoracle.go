// Package cronoracle implements oracle.CronOracle on top of robfig/cron/v3's
// standard five-field parser, interpreting the start instant in the
// schedule's own timezone rather than the host's.
package cronoracle

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/timestamp"
)

// RobfigOracle answers next-fire queries by parsing each expression with
// cron.ParseStandard and caching the resulting cron.Schedule by expression
// text, since the same expression is typically consulted on every refresh
// of a given schedule.
type RobfigOracle struct {
	mu        sync.Mutex
	parsed    map[string]cron.Schedule
	locations map[string]*time.Location
}

// New builds an empty RobfigOracle.
func New() *RobfigOracle {
	return &RobfigOracle{
		parsed:    make(map[string]cron.Schedule),
		locations: make(map[string]*time.Location),
	}
}

// NextAfter parses expression (standard five-field cron syntax) and returns
// the minimum instant strictly after start, as observed in ianaZone.
func (o *RobfigOracle) NextAfter(expression string, start timestamp.Timestamp, ianaZone string) (timestamp.Timestamp, error) {
	sched, err := o.schedule(expression)
	if err != nil {
		return timestamp.Timestamp(0), fmt.Errorf("cronoracle: parsing %q: %w", expression, err)
	}

	loc, err := o.location(ianaZone)
	if err != nil {
		return timestamp.Timestamp(0), fmt.Errorf("cronoracle: loading zone %q: %w", ianaZone, err)
	}

	startLocal := start.ToUTC().In(loc)
	next := sched.Next(startLocal)
	return timestamp.FromTime(next.UTC()), nil
}

func (o *RobfigOracle) schedule(expression string) (cron.Schedule, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sched, ok := o.parsed[expression]; ok {
		return sched, nil
	}

	sched, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, err
	}
	o.parsed[expression] = sched
	return sched, nil
}

func (o *RobfigOracle) location(zone string) (*time.Location, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if loc, ok := o.locations[zone]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	o.locations[zone] = loc
	return loc, nil
}

var _ oracle.CronOracle = (*RobfigOracle)(nil)
