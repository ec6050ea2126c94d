package oracle

import "github.com/inful/stitchcron/internal/timestamp"

// SystemTimeOracle reads the current instant from the host clock.
type SystemTimeOracle struct{}

// Now returns the current UTC instant.
func (SystemTimeOracle) Now() timestamp.Timestamp {
	return timestamp.Now()
}
