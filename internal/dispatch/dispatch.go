// Package dispatch implements the scheduler core's dispatch loop: a
// priority queue of schedules drained by a poll task and mutated by a
// control task, the two contending for a single mutex per spec §5's
// single-threaded cooperative model. Go has no cooperative executor, so
// the two "tasks" are goroutines and the "suspension points" are the
// lock, a channel receive, and time.Sleep — the discipline spec §5
// demands (never sleep or invoke the subscriber while holding the lock)
// is preserved exactly.
package dispatch

import (
	"log/slog"
	"sync"
	"time"

	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/metrics"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/queue"
	"github.com/inful/stitchcron/internal/resolver"
	"github.com/inful/stitchcron/internal/schedule"
)

// State is the dispatcher's lifecycle state.
type State int

const (
	Created State = iota
	Running
	Suspended
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Suspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// idleInterval is how long the poll task sleeps when the queue is empty.
const idleInterval = 1000 * time.Millisecond

type msgKind int

const (
	msgAdd msgKind = iota
	msgUpdate
	msgRemove
	msgAbort
)

type controlMsg struct {
	kind  msgKind
	sched schedule.Schedule
	id    string
}

func idOf(s schedule.Schedule) string { return s.ID }

// Dispatcher owns the schedule queue, the subscriber, and the suspended
// flag described in spec §4.6, guarded by a single mutex shared by the
// poll task and the control task.
type Dispatcher struct {
	mu         sync.Mutex
	queue      *queue.Queue[schedule.Schedule]
	subscriber oracle.Subscriber
	suspended  bool
	state      State

	control chan controlMsg
	done    chan struct{}

	resolver *resolver.Resolver
	clock    oracle.TimeOracle
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New builds a Dispatcher in the Created state. It owns no goroutines
// until Start is called.
func New(res *resolver.Resolver, clock oracle.TimeOracle, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:     queue.New(schedule.Less, idOf),
		suspended: true,
		state:     Created,
		control:   make(chan controlMsg, 16),
		done:      make(chan struct{}),
		resolver:  res,
		clock:     clock,
		logger:    logger,
		recorder:  metrics.NoopRecorder{},
	}
}

// Subscribe registers the callback invoked once per firing. Per spec §5's
// "shared resources" note, the subscriber is immutable after registration
// and must be set before Start.
func (d *Dispatcher) Subscribe(sub oracle.Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscriber = sub
}

// SetRecorder installs the metrics recorder used for the queue-depth gauge,
// the fires counter, and the resolver-errors-by-category counter. Must be
// called before Start; defaults to metrics.NoopRecorder.
func (d *Dispatcher) SetRecorder(r metrics.Recorder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorder = r
}

// State reports the dispatcher's current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Len reports the number of schedules currently queued. Exposed for tests
// and for the queue-depth gauge the metrics package records.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Start launches the poll task and control task. Per spec §4.6, starting
// from any state other than Created or Suspended is an error — in
// particular, starting an already-Running dispatcher is fatal.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.state == Running {
		d.mu.Unlock()
		return schederrors.ConflictError("dispatcher is already running").Build()
	}
	d.state = Running
	d.suspended = false
	d.mu.Unlock()

	d.recorder.SetDispatcherState("running")
	go d.controlTask()
	go d.pollTask()
	return nil
}

// Add enqueues sched, consulting the resolver first if its deadline has
// already passed. A schedule that is expired or has no resolvable next
// occurrence is dropped rather than enqueued.
func (d *Dispatcher) Add(sched schedule.Schedule) {
	d.control <- controlMsg{kind: msgAdd, sched: sched}
}

// Update replaces the schedule with the same id, re-running Add's
// expiry/resolution logic. A no-op if no such id is queued.
func (d *Dispatcher) Update(sched schedule.Schedule) {
	d.control <- controlMsg{kind: msgUpdate, sched: sched}
}

// Remove deletes the schedule with the given id from the queue, if present.
func (d *Dispatcher) Remove(id string) {
	d.control <- controlMsg{kind: msgRemove, id: id}
}

// Abort suspends the dispatcher: the poll task exits at its next
// iteration and no further schedules fire. Per spec §5's cancellation
// note, the control channel is closed only after the Abort message is
// delivered, so no message sent before Abort is lost.
func (d *Dispatcher) Abort() {
	d.control <- controlMsg{kind: msgAbort}
	close(d.control)
}

// Done returns a channel closed once the poll task has exited following
// an Abort.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// controlTask applies queued control messages one at a time under the
// lock, per spec §4.6.1. It is the only writer of d.suspended besides
// Start, and the only place that mutates the queue outside the poll
// task's fire-and-reenqueue step.
func (d *Dispatcher) controlTask() {
	for msg := range d.control {
		switch msg.kind {
		case msgAdd:
			d.applyAdd(msg.sched)
		case msgUpdate:
			d.applyUpdate(msg.sched)
		case msgRemove:
			d.mu.Lock()
			d.queue.Remove(msg.id)
			depth := d.queue.Len()
			d.mu.Unlock()
			d.recorder.SetQueueDepth(depth)
		case msgAbort:
			d.mu.Lock()
			d.suspended = true
			d.state = Suspended
			d.mu.Unlock()
			d.recorder.SetDispatcherState("suspended")
		}
	}
}

// applyAdd implements the Add control message: if sched's deadline has
// already passed, ask the resolver for the next occurrence before
// enqueuing; a resolution failure (expired frequency, missing
// expression, non-deterministic ordinal) drops the schedule silently,
// logged at info level since it is an expected, non-fatal outcome.
func (d *Dispatcher) applyAdd(sched schedule.Schedule) {
	now := d.clock.Now()
	if !sched.Timing.Deadline.After(now) {
		refreshed, err := d.resolver.Refresh(sched.ID, sched.Timing, sched.Frequency, now)
		if err != nil {
			d.logger.Info("dropping schedule: no resolvable next occurrence",
				"schedule_id", sched.ID, "error", err)
			d.recorder.IncResolverError(string(schederrors.GetCategory(err)))
			return
		}
		sched.Timing = refreshed
	}

	d.mu.Lock()
	d.queue.Enqueue(sched)
	depth := d.queue.Len()
	d.mu.Unlock()
	d.recorder.SetQueueDepth(depth)
}

// applyUpdate implements the Update control message: remove then re-Add,
// a no-op when the id was not queued.
func (d *Dispatcher) applyUpdate(sched schedule.Schedule) {
	d.mu.Lock()
	_, existed := d.queue.Find(sched.ID)
	if existed {
		d.queue.Remove(sched.ID)
	}
	d.mu.Unlock()

	if existed {
		d.applyAdd(sched)
	}
}

// pollTask is the loop described in spec §4.6.2: peek the head, idle
// until it is due, then fire and re-add it. The lock is never held
// across a sleep or the subscriber invocation.
func (d *Dispatcher) pollTask() {
	defer close(d.done)

	for {
		d.mu.Lock()
		if d.suspended {
			d.mu.Unlock()
			return
		}
		head, ok := d.queue.Peek()
		d.mu.Unlock()

		if !ok {
			time.Sleep(idleInterval)
			continue
		}

		now := d.clock.Now()
		delta := head.Timing.Deadline.Sub(now)
		if delta > 0 {
			time.Sleep(delta.Duration())
			continue
		}

		d.fireHead()
	}
}

// fireHead dequeues the head (re-peeking under lock to guard against a
// concurrent Remove/Update racing the poll task between the Peek above
// and here), invokes the subscriber outside the lock, then re-Adds the
// fired schedule so the resolver computes its next occurrence.
func (d *Dispatcher) fireHead() {
	d.mu.Lock()
	head, ok := d.queue.Peek()
	if !ok || head.Timing.Deadline.After(d.clock.Now()) {
		d.mu.Unlock()
		return
	}
	fired, _ := d.queue.Dequeue()
	depth := d.queue.Len()
	d.mu.Unlock()
	d.recorder.SetQueueDepth(depth)

	if d.subscriber != nil {
		d.subscriber(fired.ID)
	}
	d.recorder.IncFired(fired.ID)

	d.applyAdd(fired)
}
