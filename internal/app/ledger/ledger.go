// Package ledger owns the token balance, action history and redeemed-reward
// set, and is the only code allowed to mutate them.
//
// Lifecycle of an action:
//  1. SubmitAction validates against the catalog and prepends the action
//  2. Without proof, tokens are credited immediately
//  3. With proof, the action waits in Pending and one resolution is scheduled
//  4. ResolveVerification moves Pending → Approved | Rejected exactly once,
//     crediting tokens only on approval
//
// Every mutation runs under a single mutex. Committed events are handed to the
// journal and sinks after the lock is released, in commit order.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/greencred/greencred/internal/domain"
)

// Scheduler arranges for ResolveVerification to be called once per action.
type Scheduler interface {
	Schedule(actionID string)
}

// SubmitRequest is the input to SubmitAction. Media is nil when no proof is attached.
type SubmitRequest struct {
	Category    string
	Description string
	TokenValue  int
	Media       *domain.Media
}

// Ledger is the aggregate root. Create with New.
type Ledger struct {
	mu        sync.Mutex
	tokens    int
	actions   []*domain.Action // newest first
	byID      map[string]*domain.Action
	redeemed  map[string]struct{}
	redeemSeq []string // redemption order
	seq       int64
	outbox    []domain.Event

	dispatchMu sync.Mutex

	catalog   domain.Catalog
	scheduler Scheduler
	journal   domain.EventJournal
	sinks     []domain.EventSink
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithScheduler sets the resolution scheduler. Without one, proof-bearing
// actions stay Pending until ResolveVerification is called.
func WithScheduler(s Scheduler) Option { return func(l *Ledger) { l.scheduler = s } }

// WithJournal records every committed event.
func WithJournal(j domain.EventJournal) Option { return func(l *Ledger) { l.journal = j } }

// WithSink adds an event subscriber.
func WithSink(s domain.EventSink) Option {
	return func(l *Ledger) { l.sinks = append(l.sinks, s) }
}

// WithLogger sets the structured logger.
func WithLogger(lg *slog.Logger) Option { return func(l *Ledger) { l.logger = lg } }

// WithClock injects a clock for testing.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithIDGenerator injects an ID source for testing.
func WithIDGenerator(f func() string) Option { return func(l *Ledger) { l.newID = f } }

// WithSeed loads an opening state.
func WithSeed(s domain.Seed) Option {
	return func(l *Ledger) {
		l.tokens = s.OpeningBalance
		for i := range s.Actions {
			a := s.Actions[i].Clone()
			if a.Credited() {
				l.tokens += a.TokenValue
			}
			l.actions = append(l.actions, &a)
			l.byID[a.ID] = &a
		}
		for _, id := range s.Redeemed {
			if _, ok := l.redeemed[id]; !ok {
				l.redeemed[id] = struct{}{}
				l.redeemSeq = append(l.redeemSeq, id)
			}
		}
	}
}

// New creates a ledger. A nil catalog disables re-validation of token values.
// Seeded actions that are still Pending are handed to the scheduler.
func New(cat domain.Catalog, opts ...Option) *Ledger {
	l := &Ledger{
		byID:     make(map[string]*domain.Action),
		redeemed: make(map[string]struct{}),
		catalog:  cat,
		logger:   slog.Default(),
		tracer:   otel.Tracer("greencred/ledger"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("component", "ledger")

	if l.scheduler != nil {
		for _, a := range l.actions {
			if a.Status() == domain.StatusPending {
				l.scheduler.Schedule(a.ID)
			}
		}
	}
	return l
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// SubmitAction logs a new action and returns its ID.
// The token value must match the catalog entry for (category, description).
func (l *Ledger) SubmitAction(ctx context.Context, req SubmitRequest) (string, error) {
	_, span := l.tracer.Start(ctx, "ledger.SubmitAction", trace.WithAttributes(
		attribute.String("category", req.Category),
		attribute.Int("tokens", req.TokenValue),
		attribute.Bool("proof", req.Media != nil),
	))
	defer span.End()

	action, err := l.validate(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	l.mu.Lock()
	action.ID = l.newID()
	action.CreatedAt = l.now()
	if req.Media != nil {
		action.Verification = &domain.Verification{
			Status:    domain.StatusPending,
			MediaKind: domain.MediaKindFromMIME(req.Media.MIMEType),
			MediaRef:  req.Media.Ref,
		}
	} else {
		l.tokens += action.TokenValue
	}
	stored := action
	l.actions = append([]*domain.Action{&stored}, l.actions...)
	l.byID[stored.ID] = &stored

	amount := 0
	if stored.Verification == nil {
		amount = stored.TokenValue
	}
	l.emit(domain.Event{
		Type:     domain.EventActionSubmitted,
		At:       stored.CreatedAt,
		ActionID: stored.ID,
		Category: stored.Category,
		Amount:   amount,
		Balance:  l.tokens,
		Status:   stored.Status(),
	})
	l.mu.Unlock()
	l.flush()

	span.SetAttributes(attribute.String("action_id", stored.ID))
	l.logger.Info("action submitted",
		"action_id", stored.ID,
		"category", stored.Category,
		"tokens", stored.TokenValue,
		"proof", stored.Verification != nil,
	)

	if stored.Verification != nil && l.scheduler != nil {
		l.scheduler.Schedule(stored.ID)
	}
	return stored.ID, nil
}

// validate checks a request against the catalog without touching state.
func (l *Ledger) validate(req SubmitRequest) (domain.Action, error) {
	desc := strings.TrimSpace(req.Description)
	if strings.TrimSpace(req.Category) == "" || desc == "" {
		return domain.Action{}, domain.ErrInvalidAction
	}
	if req.TokenValue <= 0 {
		return domain.Action{}, fmt.Errorf("%w: got %d", domain.ErrInvalidTokenValue, req.TokenValue)
	}
	cat, err := domain.ParseCategory(req.Category)
	if err != nil {
		return domain.Action{}, err
	}
	if l.catalog != nil {
		entry, ok := l.catalog.Activity(cat, desc)
		if !ok {
			return domain.Action{}, fmt.Errorf("%w: %s / %q", domain.ErrUnknownActivity, cat, desc)
		}
		if entry.Tokens != req.TokenValue {
			return domain.Action{}, fmt.Errorf("%w: %q is worth %d, got %d",
				domain.ErrTokenMismatch, desc, entry.Tokens, req.TokenValue)
		}
		desc = entry.Name
	}
	return domain.Action{Category: cat, Description: desc, TokenValue: req.TokenValue}, nil
}

// ResolveVerification settles a Pending verification. It is called by the
// scheduler and reports whether anything changed: unknown IDs and actions
// that are not Pending are silent no-ops.
func (l *Ledger) ResolveVerification(actionID string, outcome domain.VerificationStatus, note string) bool {
	if !outcome.IsTerminal() {
		return false
	}

	l.mu.Lock()
	a, ok := l.byID[actionID]
	if !ok || a.Verification == nil || !a.Verification.Status.CanTransition(outcome) {
		l.mu.Unlock()
		l.logger.Debug("stale resolution ignored", "action_id", actionID)
		return false
	}

	at := l.now()
	// Copy-on-write so snapshots handed out earlier keep their view.
	v := *a.Verification
	v.Status = outcome
	v.AnalysisNote = note
	v.ResolvedAt = &at
	a.Verification = &v

	amount := 0
	if outcome == domain.StatusApproved {
		amount = a.TokenValue
		l.tokens += amount
	}
	l.emit(domain.Event{
		Type:     domain.EventVerificationResolved,
		At:       at,
		ActionID: a.ID,
		Category: a.Category,
		Amount:   amount,
		Balance:  l.tokens,
		Status:   outcome,
		Note:     note,
	})
	l.mu.Unlock()
	l.flush()

	l.logger.Info("verification resolved",
		"action_id", actionID,
		"status", outcome,
		"credited", amount,
	)
	return true
}

// RedeemReward spends cost tokens on rewardID. Each reward can be redeemed
// once. The membership check, balance check and debit are one critical section.
func (l *Ledger) RedeemReward(ctx context.Context, rewardID string, cost int) error {
	_, span := l.tracer.Start(ctx, "ledger.RedeemReward", trace.WithAttributes(
		attribute.String("reward_id", rewardID),
		attribute.Int("cost", cost),
	))
	defer span.End()

	if cost < 0 {
		span.SetStatus(codes.Error, domain.ErrInvalidCost.Error())
		return domain.ErrInvalidCost
	}

	l.mu.Lock()
	if _, done := l.redeemed[rewardID]; done {
		l.mu.Unlock()
		span.SetStatus(codes.Error, domain.ErrAlreadyRedeemed.Error())
		return fmt.Errorf("%w: %s", domain.ErrAlreadyRedeemed, rewardID)
	}
	if l.tokens < cost {
		have := l.tokens
		l.mu.Unlock()
		span.SetStatus(codes.Error, domain.ErrInsufficientBalance.Error())
		return fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientBalance, cost, have)
	}
	l.tokens -= cost
	l.redeemed[rewardID] = struct{}{}
	l.redeemSeq = append(l.redeemSeq, rewardID)
	l.emit(domain.Event{
		Type:     domain.EventRewardRedeemed,
		At:       l.now(),
		RewardID: rewardID,
		Amount:   -cost,
		Balance:  l.tokens,
	})
	l.mu.Unlock()
	l.flush()

	l.logger.Info("reward redeemed", "reward_id", rewardID, "cost", cost)
	return nil
}

// RedeemCatalogReward redeems a reward at its catalog price.
func (l *Ledger) RedeemCatalogReward(ctx context.Context, rewardID string) error {
	if l.catalog == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownReward, rewardID)
	}
	r, ok := l.catalog.Reward(rewardID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownReward, rewardID)
	}
	return l.RedeemReward(ctx, r.ID, r.Cost)
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := domain.Snapshot{
		TotalTokens:       l.tokens,
		Level:             domain.Level(l.tokens),
		Actions:           make([]domain.Action, len(l.actions)),
		RedeemedRewardIDs: make([]string, len(l.redeemSeq)),
		TakenAt:           l.now(),
	}
	for i, a := range l.actions {
		s.Actions[i] = a.Clone()
	}
	copy(s.RedeemedRewardIDs, l.redeemSeq)
	return s
}

// Action returns a copy of one action.
func (l *Ledger) Action(id string) (domain.Action, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.byID[id]
	if !ok {
		return domain.Action{}, false
	}
	return a.Clone(), true
}

// Balance returns the current token balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

// PendingCount returns how many verifications are still Pending.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, a := range l.actions {
		if a.Status() == domain.StatusPending {
			n++
		}
	}
	return n
}

// ─── Event Dispatch ─────────────────────────────────────────────────────────

// emit queues an event. Requires l.mu held.
func (l *Ledger) emit(e domain.Event) {
	l.seq++
	e.Seq = l.seq
	l.outbox = append(l.outbox, e)
}

// flush delivers queued events in sequence order. dispatchMu keeps two
// flushers from interleaving.
func (l *Ledger) flush() {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()

	l.mu.Lock()
	batch := l.outbox
	l.outbox = nil
	l.mu.Unlock()

	for _, e := range batch {
		if l.journal != nil {
			if err := l.journal.Append(e); err != nil {
				l.logger.Warn("journal append failed", "seq", e.Seq, "type", e.Type, "error", err)
			}
		}
		for _, s := range l.sinks {
			s.Publish(e)
		}
	}
}
