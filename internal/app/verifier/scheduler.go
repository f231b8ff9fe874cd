package verifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/dsa"
)

// Resolver applies a verdict. It returns false when the action was not Pending.
type Resolver interface {
	ResolveVerification(actionID string, outcome domain.VerificationStatus, note string) bool
}

// Observer receives scheduler events, e.g. for metrics.
type Observer interface {
	VerificationScheduled(delay time.Duration)
	VerificationResolved(outcome domain.VerificationStatus, latency time.Duration, applied bool)
}

// Config controls review timing.
type Config struct {
	MinDelay     time.Duration // inclusive lower bound (default: 3s)
	MaxDelay     time.Duration // exclusive upper bound (default: 5s)
	ApprovalRate float64       // share approved (default: 0.8)
}

// DefaultConfig returns the mobile client's review timing.
func DefaultConfig() Config {
	return Config{
		MinDelay:     3 * time.Second,
		MaxDelay:     5 * time.Second,
		ApprovalRate: DefaultApprovalRate,
	}
}

// ErrNoResolver is returned by Run when Bind was never called.
var ErrNoResolver = errors.New("verifier: no resolver bound")

// Scheduler fires one resolution per scheduled action after its delay.
// Scheduled reviews cannot be cancelled.
type Scheduler struct {
	mu       sync.RWMutex
	config   Config
	oracle   *Oracle
	queue    *dsa.DeadlineQueue
	resolver Resolver
	observer Observer
	logger   *slog.Logger
	wake     chan struct{}

	scheduled int64
	approved  int64
	rejected  int64
	stale     int64
}

// NewScheduler creates a scheduler. A nil oracle gets a wall-clock seeded one.
func NewScheduler(cfg Config, oracle *Oracle, logger *slog.Logger) *Scheduler {
	if oracle == nil {
		oracle = NewOracle(cfg.ApprovalRate, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		config: cfg,
		oracle: oracle,
		queue:  dsa.NewDeadlineQueue(),
		logger: logger.With("component", "verifier"),
		wake:   make(chan struct{}, 1),
	}
}

// Bind sets the resolver. Call before Run.
func (s *Scheduler) Bind(r Resolver) {
	s.mu.Lock()
	s.resolver = r
	s.mu.Unlock()
}

// SetObserver sets the metrics observer.
func (s *Scheduler) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Schedule queues one review of actionID. Returns immediately.
func (s *Scheduler) Schedule(actionID string) {
	delay := s.oracle.Delay(s.config.MinDelay, s.config.MaxDelay)
	now := time.Now()
	s.queue.Push(dsa.HeapItem{
		Key:   actionID,
		DueAt: now.Add(delay),
		Value: now,
	})

	s.mu.Lock()
	s.scheduled++
	obs := s.observer
	s.mu.Unlock()
	if obs != nil {
		obs.VerificationScheduled(delay)
	}

	s.logger.Debug("review scheduled", "action_id", actionID, "delay", delay)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run delivers due reviews until ctx is cancelled. Reviews still queued at
// that point are logged and dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver == nil {
		return ErrNoResolver
	}

	for {
		for _, item := range s.queue.PopDue(time.Now()) {
			s.fire(resolver, item)
		}

		wait := time.Hour
		if next, ok := s.queue.Peek(); ok {
			wait = time.Until(next.DueAt)
			if wait < 0 {
				wait = 0
			}
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			if left := s.queue.Len(); left > 0 {
				s.logger.Warn("shutting down with reviews outstanding", "pending", left)
			}
			return nil
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// fire draws a verdict and posts it.
func (s *Scheduler) fire(r Resolver, item dsa.HeapItem) {
	outcome, note := s.oracle.Decide()
	applied := r.ResolveVerification(item.Key, outcome, note)

	var latency time.Duration
	if at, ok := item.Value.(time.Time); ok {
		latency = time.Since(at)
	}

	s.mu.Lock()
	switch {
	case !applied:
		s.stale++
	case outcome == domain.StatusApproved:
		s.approved++
	default:
		s.rejected++
	}
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs.VerificationResolved(outcome, latency, applied)
	}
	if !applied {
		s.logger.Debug("review had nothing to resolve", "action_id", item.Key)
	}
}

// Stats is a point-in-time view of scheduler counters.
type Stats struct {
	Scheduled int64 `json:"scheduled"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Stale     int64 `json:"stale"`
	Queued    int   `json:"queued"`
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Scheduled: s.scheduled,
		Approved:  s.approved,
		Rejected:  s.rejected,
		Stale:     s.stale,
		Queued:    s.queue.Len(),
	}
}

// QueuedCount returns how many reviews are waiting.
func (s *Scheduler) QueuedCount() int {
	return s.queue.Len()
}
