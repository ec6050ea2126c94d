package metrics

import "time"

// Recorder defines the dispatcher's observability hooks. All methods must be
// safe to call on a nil-valued concrete type so NoopRecorder requires no
// allocation and no nil checks at call sites.
type Recorder interface {
	SetQueueDepth(n int)
	IncFired(scheduleID string)
	IncResolverError(category string)
	ObserveDispatchLatency(d time.Duration)
	SetDispatcherState(state string)
}

// NoopRecorder is the default Recorder: every method does nothing.
type NoopRecorder struct{}

func (NoopRecorder) SetQueueDepth(int)                    {}
func (NoopRecorder) IncFired(string)                      {}
func (NoopRecorder) IncResolverError(string)              {}
func (NoopRecorder) ObserveDispatchLatency(time.Duration) {}
func (NoopRecorder) SetDispatcherState(string)            {}
