// Package natssink provides a sample oracle.Subscriber that publishes a
// fire event to a NATS subject for each schedule that fires. It exists to
// demonstrate the out-of-scope notification transport (spec §1 lists
// delivery/transport as out of scope for the core) without pulling NATS
// into the dispatch package itself.
package natssink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// FireEvent is the payload published for each schedule fire.
type FireEvent struct {
	ScheduleID string    `json:"schedule_id"`
	FiredAt    time.Time `json:"fired_at"`
}

// Sink publishes fire events to a NATS subject. New fails if the initial
// connection cannot be made; after a later disconnect the client reconnects
// automatically. While disconnected, Publish returns an error and
// Subscriber logs it at error level.
type Sink struct {
	conn    *nats.Conn
	subject string
	mu      sync.RWMutex
	logger  *slog.Logger
}

// New connects to natsURL and returns a Sink that publishes to subject.
func New(natsURL, subject string, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{subject: subject, logger: logger}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("natssink: disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("natssink: reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("natssink: failed to connect to %s: %w", natsURL, err)
	}
	s.conn = conn
	return s, nil
}

// Subscriber adapts Publish to the oracle.Subscriber signature for
// registration with a dispatcher.
func (s *Sink) Subscriber(scheduleID string) {
	if err := s.Publish(scheduleID); err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("natssink: failed to publish fire event", "schedule_id", scheduleID, "error", err)
	}
}

// Publish sends a FireEvent for scheduleID to the configured subject.
func (s *Sink) Publish(scheduleID string) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("natssink: not connected")
	}

	data, err := json.Marshal(FireEvent{ScheduleID: scheduleID, FiredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("natssink: marshal event: %w", err)
	}

	if err := conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("natssink: publish: %w", err)
	}
	return nil
}

// Close closes the underlying NATS connection without draining it.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
