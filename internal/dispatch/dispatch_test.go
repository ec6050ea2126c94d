package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"

	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
	"github.com/inful/stitchcron/internal/oracle"
	"github.com/inful/stitchcron/internal/resolver"
	"github.com/inful/stitchcron/internal/schedule"
	"github.com/inful/stitchcron/internal/timestamp"
)

type fakeRecorder struct {
	mu         sync.Mutex
	queueDepth int
	fires      int
	states     []string
}

func (f *fakeRecorder) SetQueueDepth(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueDepth = n
}
func (f *fakeRecorder) IncFired(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fires++
}
func (f *fakeRecorder) IncResolverError(string)              {}
func (f *fakeRecorder) ObserveDispatchLatency(time.Duration) {}
func (f *fakeRecorder) SetDispatcherState(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}
func (f *fakeRecorder) fireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fires
}

func newTestDispatcher() *Dispatcher {
	return New(resolver.New(nil), oracle.SystemTimeOracle{}, nil)
}

func TestDispatcherFiresDueSchedule(t *testing.T) {
	d := newTestDispatcher()
	fired := make(chan string, 1)
	d.Subscribe(func(id string) { fired <- id })

	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Abort()

	now := timestamp.Now()
	sched := schedule.Schedule{
		ID:       "s1",
		Timing:   schedule.Timing{Timezone: "UTC", Anchor: now, Deadline: now.Add(timestamp.FromMillis(20))},
		Priority: schedule.Medium,
	}
	d.Add(sched)

	select {
	case id := <-fired:
		if id != "s1" {
			t.Errorf("expected s1, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("schedule never fired")
	}
}

func TestAddDropsAlreadyExpiredOneShot(t *testing.T) {
	d := newTestDispatcher()
	d.Subscribe(func(id string) { t.Errorf("subscriber invoked unexpectedly for %s", id) })

	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Abort()

	now := timestamp.Now()
	past := now.Sub(timestamp.FromHours(1))
	sched := schedule.Schedule{
		ID:     "expired",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: past, Deadline: past},
	}
	d.Add(sched)

	time.Sleep(50 * time.Millisecond)
	if got := d.Len(); got != 0 {
		t.Errorf("expected the expired one-shot to be dropped, queue has %d entries", got)
	}
}

func TestStartTwiceIsConflict(t *testing.T) {
	d := newTestDispatcher()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error on first start: %v", err)
	}
	defer d.Abort()

	err := d.Start()
	if err == nil {
		t.Fatal("expected an error starting an already-running dispatcher")
	}

	var classified *schederrors.ClassifiedError
	if !errors.As(err, &classified) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if classified.Category() != schederrors.CategoryConflict {
		t.Errorf("expected CategoryConflict, got %v", classified.Category())
	}
}

func TestRemoveBeforeFiring(t *testing.T) {
	d := newTestDispatcher()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Abort()

	now := timestamp.Now()
	future := now.Add(timestamp.FromHours(1))
	d.Add(schedule.Schedule{
		ID:     "rbf",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: future, Deadline: future},
	})
	d.Remove("rbf")

	time.Sleep(50 * time.Millisecond)
	if got := d.Len(); got != 0 {
		t.Errorf("expected removed schedule to be gone, queue has %d entries", got)
	}
}

func TestUpdateReplacesExistingSchedule(t *testing.T) {
	d := newTestDispatcher()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Abort()

	now := timestamp.Now()
	future := now.Add(timestamp.FromHours(1))
	d.Add(schedule.Schedule{
		ID:     "u1",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: future, Deadline: future},
	})
	time.Sleep(50 * time.Millisecond)
	if got := d.Len(); got != 1 {
		t.Fatalf("expected 1 queued entry before update, got %d", got)
	}

	later := future.Add(timestamp.FromHours(1))
	d.Update(schedule.Schedule{
		ID:     "u1",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: later, Deadline: later},
	})

	time.Sleep(50 * time.Millisecond)
	if got := d.Len(); got != 1 {
		t.Errorf("expected update to replace rather than duplicate, queue has %d entries", got)
	}
}

func TestUpdateOfUnknownIDIsNoop(t *testing.T) {
	d := newTestDispatcher()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Abort()

	now := timestamp.Now()
	d.Update(schedule.Schedule{
		ID:     "ghost",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: now, Deadline: now},
	})

	time.Sleep(50 * time.Millisecond)
	if got := d.Len(); got != 0 {
		t.Errorf("expected update of an unqueued id to be a no-op, queue has %d entries", got)
	}
}

func TestAbortSuspendsDispatcherAndStopsPolling(t *testing.T) {
	d := newTestDispatcher()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Abort()

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poll task never exited after Abort")
	}

	if got := d.State(); got != Suspended {
		t.Errorf("expected Suspended, got %v", got)
	}
}

func TestRecorderObservesFiresAndState(t *testing.T) {
	d := newTestDispatcher()
	rec := &fakeRecorder{}
	d.SetRecorder(rec)

	fired := make(chan string, 1)
	d.Subscribe(func(id string) { fired <- id })

	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := timestamp.Now()
	d.Add(schedule.Schedule{
		ID:     "s1",
		Timing: schedule.Timing{Timezone: "UTC", Anchor: now, Deadline: now.Add(timestamp.FromMillis(20))},
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if rec.fireCount() != 1 {
		t.Errorf("expected 1 recorded fire, got %d", rec.fireCount())
	}

	d.Abort()
	<-d.Done()

	if len(rec.states) == 0 || rec.states[0] != "running" {
		t.Errorf("expected first recorded state to be running, got %v", rec.states)
	}
	if rec.states[len(rec.states)-1] != "suspended" {
		t.Errorf("expected last recorded state to be suspended, got %v", rec.states)
	}
}
