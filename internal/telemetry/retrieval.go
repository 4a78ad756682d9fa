// Package telemetry records per-fetch retrieval metrics for the blob store.
// Events are ephemeral: they exist only as long as the sink that received
// them, and are never persisted by the store itself.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/tearleads/rapidvault/internal/logging"
)

// Outcome classifies how a retrieval ended.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeDecryptionFailed Outcome = "decryption_failed"
	OutcomeError            Outcome = "error"
)

// Event describes a single retrieval attempt.
type Event struct {
	Path     string
	Duration time.Duration
	Outcome  Outcome
}

// Sink receives retrieval events. Implementations must be safe for
// concurrent use; the store emits events from arbitrary goroutines.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(ctx context.Context, ev Event) {
	if ev.Outcome == OutcomeSuccess {
		s.log.Debug(ctx, "blob retrieved",
			"path", ev.Path, "duration_ms", ev.Duration.Milliseconds())
		return
	}
	s.log.Warn(ctx, "blob retrieval failed",
		"path", ev.Path, "duration_ms", ev.Duration.Milliseconds(), "outcome", string(ev.Outcome))
}

// MemorySink buffers events in memory, most recent last. It keeps at most
// cap events, dropping the oldest. Used by the stats surface and by tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewMemorySink creates a sink holding up to limit events. A non-positive
// limit defaults to 1024.
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 1024
	}
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Record(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
}

// Events returns a copy of the buffered events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// MultiSink fans each event out to every child sink.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Record(ctx, ev)
	}
}
