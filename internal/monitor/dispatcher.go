package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
)

// Config bounds the dispatcher's observation queue and per-subscription
// stream buffers.
type Config struct {
	ObservationQueueCapacity int
	StreamCapacity           int
}

// DefaultConfig mirrors the conservative bounded-queue defaults used
// across the module's other worker pools.
func DefaultConfig() Config {
	return Config{ObservationQueueCapacity: 4096, StreamCapacity: 256}
}

// Registration records a live trigger-to-stream binding. ExpiresAt is
// nil for a subscription with no expiry; otherwise the dispatcher tears
// the subscription down the first time it observes now after ExpiresAt
// (spec §4.7).
type Registration struct {
	TriggerID      TriggerID
	SubscriptionID SubscriptionID
	Trigger        Trigger
	ExpiresAt      *time.Time
}

// ErrClosed is returned by ObserveAssert and Subscribe once the system
// has been closed.
var ErrClosed = errors.New("monitor: system is closed")

// ErrObservationQueueFull is returned by ObserveAssert when the bounded
// observation queue has no room; the caller's ASSERT has already
// committed, so this only means the monitor will miss this observation.
var ErrObservationQueueFull = errors.New("monitor: observation queue is full")

// System is the MONITOR subsystem: a single background goroutine
// consumes a bounded queue of committed-ASSERT observations, evaluates
// every registered trigger against each one, and publishes matches to
// the owning subscription's Stream. Grounded on the single-goroutine,
// bounded-channel, atomic-guarded-lifecycle shape of akashi's
// internal/service/trace/buffer.go; dispatcher.rs itself was not present
// in the retrieval pack.
type System struct {
	matcher          *Matcher
	observations     chan AssertObservation
	defaultStreamCap int
	logger           *slog.Logger

	mu   sync.RWMutex
	regs map[SubscriptionID]Registration
	subs map[SubscriptionID]*Stream

	started       atomic.Bool
	closed        atomic.Bool
	done          chan struct{}
	dropped       atomic.Int64
	droppedEvents atomic.Int64
}

// New builds a System over beliefs (used by the matcher for prior-state
// lookups).
func New(beliefs belief.Store, cfg Config, logger *slog.Logger) *System {
	if cfg.ObservationQueueCapacity < 1 {
		cfg.ObservationQueueCapacity = 1
	}
	if cfg.StreamCapacity < 1 {
		cfg.StreamCapacity = DefaultConfig().StreamCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		matcher:          NewMatcher(beliefs),
		observations:     make(chan AssertObservation, cfg.ObservationQueueCapacity),
		defaultStreamCap: cfg.StreamCapacity,
		logger:           logger,
		regs:             make(map[SubscriptionID]Registration),
		subs:             make(map[SubscriptionID]*Stream),
		done:             make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine. Safe to call only once;
// subsequent calls are no-ops.
func (s *System) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.dispatchLoop()
}

func (s *System) dispatchLoop() {
	defer close(s.done)
	for obs := range s.observations {
		s.dispatch(obs)
	}
}

// sweepExpired removes every registration whose ExpiresAt has passed and
// disconnects its stream. Checked lazily at the top of each dispatch
// rather than on a separate ticker, since dispatch already runs on every
// committed ASSERT and an expired subscription only needs to disappear
// before the next event it would otherwise have received.
func (s *System) sweepExpired() {
	now := time.Now()

	s.mu.RLock()
	var expired []SubscriptionID
	for id, r := range s.regs {
		if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	s.mu.Lock()
	streams := make([]*Stream, 0, len(expired))
	for _, id := range expired {
		if stream, ok := s.subs[id]; ok {
			streams = append(streams, stream)
		}
		delete(s.regs, id)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, stream := range streams {
		stream.closeDisconnected()
	}
}

func (s *System) dispatch(obs AssertObservation) {
	s.sweepExpired()

	s.mu.RLock()
	regs := make([]Registration, 0, len(s.regs))
	for _, r := range s.regs {
		regs = append(regs, r)
	}
	s.mu.RUnlock()

	for _, r := range regs {
		result, err := s.matcher.Evaluate(context.Background(), r.Trigger, obs)
		if err != nil {
			s.logger.Warn("monitor: trigger evaluation failed", "trigger_id", r.TriggerID, "error", err)
			continue
		}
		if !result.Matched {
			continue
		}

		ev, err := NewMonitorEvent(r.TriggerID, r.Trigger, result.Payload)
		if err != nil {
			s.logger.Warn("monitor: constructed event rejected", "trigger_id", r.TriggerID, "error", err)
			continue
		}

		s.mu.RLock()
		stream, ok := s.subs[r.SubscriptionID]
		s.mu.RUnlock()
		if ok && stream.send(ev) {
			s.droppedEvents.Add(1)
		}
	}
}

// ObserveAssert submits a committed-ASSERT observation for trigger
// evaluation. Non-blocking: a full queue returns ErrObservationQueueFull
// rather than stalling the caller's ASSERT path.
func (s *System) ObserveAssert(obs AssertObservation) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.observations <- obs:
		return nil
	default:
		s.dropped.Add(1)
		return ErrObservationQueueFull
	}
}

// DroppedObservations reports how many ObserveAssert calls have been
// rejected with ErrObservationQueueFull since the system was created.
func (s *System) DroppedObservations() int64 {
	return s.dropped.Load()
}

// DroppedEvents reports how many matched events were dropped across all
// streams because a subscriber's buffer was full, aggregated system-wide
// (spec §4.7's dropped_events counter). Distinct from DroppedObservations,
// which counts ObserveAssert calls rejected at the ingress queue.
func (s *System) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// QueueDepth reports how many observations are currently buffered,
// waiting for the dispatcher goroutine.
func (s *System) QueueDepth() int {
	return len(s.observations)
}

// Subscribe registers trigger and returns its Registration plus the
// Stream fired events will be published to, bounded to capacity (falls
// back to DefaultConfig's StreamCapacity when capacity <= 0). expiresAt
// is optional (spec §4.7); when non-nil, the subscription is torn down
// and its stream disconnected the first time dispatch runs after that
// instant.
func (s *System) Subscribe(trigger Trigger, capacity int, expiresAt *time.Time) (Registration, *Stream, error) {
	if s.closed.Load() {
		return Registration{}, nil, ErrClosed
	}
	if capacity <= 0 {
		capacity = s.defaultStreamCap
	}

	subID := NewSubscriptionID()
	reg := Registration{TriggerID: NewTriggerID(), SubscriptionID: subID, Trigger: trigger, ExpiresAt: expiresAt}
	stream := newStream(subID, capacity)

	s.mu.Lock()
	s.regs[subID] = reg
	s.subs[subID] = stream
	s.mu.Unlock()

	return reg, stream, nil
}

// Unsubscribe removes a registration and closes its stream.
func (s *System) Unsubscribe(subID SubscriptionID) error {
	s.mu.Lock()
	stream, ok := s.subs[subID]
	if ok {
		delete(s.subs, subID)
		delete(s.regs, subID)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("monitor: no subscription %s", subID)
	}
	stream.close()
	return nil
}

// Close stops accepting observations, waits for the dispatcher goroutine
// to drain whatever was already queued, and closes every live stream.
// Idempotent.
func (s *System) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.observations)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, stream := range s.subs {
		stream.close()
		delete(s.subs, id)
		delete(s.regs, id)
	}
}
