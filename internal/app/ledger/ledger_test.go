package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// manualScheduler records scheduled IDs; tests resolve them by hand.
type manualScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (m *manualScheduler) Schedule(id string) {
	m.mu.Lock()
	m.ids = append(m.ids, id)
	m.mu.Unlock()
}

func (m *manualScheduler) scheduled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Publish(e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) Append(e domain.Event) error {
	r.Publish(e)
	return nil
}

func newTestLedger(t *testing.T, opening int, opts ...Option) (*Ledger, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	n := 0
	base := []Option{
		WithScheduler(sched),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("act-%d", n) }),
		WithSeed(domain.Seed{OpeningBalance: opening}),
	}
	return New(catalog.Default(), append(base, opts...)...), sched
}

func photo() *domain.Media {
	return &domain.Media{Ref: "blob-1", MIMEType: "image/jpeg"}
}

func assertLevel(t *testing.T, s domain.Snapshot) {
	t.Helper()
	if want := s.TotalTokens/100 + 1; s.Level != want {
		t.Errorf("level = %d with %d tokens, want %d", s.Level, s.TotalTokens, want)
	}
}

// ─── Submit Tests ───────────────────────────────────────────────────────────

func TestSubmitAction_NoMediaCreditsImmediately(t *testing.T) {
	l, sched := newTestLedger(t, 150)

	id, err := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Transport", Description: "Walked to work", TokenValue: 25,
	})
	if err != nil {
		t.Fatalf("SubmitAction() error: %v", err)
	}

	s := l.Snapshot()
	if s.TotalTokens != 175 {
		t.Errorf("balance = %d, want 175", s.TotalTokens)
	}
	if s.Level != 2 {
		t.Errorf("level = %d, want 2", s.Level)
	}
	if len(s.Actions) != 1 || s.Actions[0].ID != id {
		t.Fatalf("actions = %+v", s.Actions)
	}
	a := s.Actions[0]
	if a.Verification != nil {
		t.Error("action without media should have no verification")
	}
	if !a.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, testNow)
	}
	if len(sched.scheduled()) != 0 {
		t.Error("no review should be scheduled without media")
	}
}

func TestSubmitAction_SequenceKeepsLevelInSync(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()

	before := l.Snapshot().TotalTokens
	for i := 0; i < 12; i++ {
		if _, err := l.SubmitAction(ctx, SubmitRequest{Category: "Nature", Description: "Planted a tree", TokenValue: 50}); err != nil {
			t.Fatal(err)
		}
		s := l.Snapshot()
		if s.TotalTokens != before+50 {
			t.Fatalf("balance = %d, want %d", s.TotalTokens, before+50)
		}
		assertLevel(t, s)
		before = s.TotalTokens
	}
}

func TestSubmitAction_WithMediaStaysPending(t *testing.T) {
	l, sched := newTestLedger(t, 150)

	id, err := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Waste", Description: "Recycled plastic bottles", TokenValue: 20, Media: photo(),
	})
	if err != nil {
		t.Fatalf("SubmitAction() error: %v", err)
	}

	s := l.Snapshot()
	if s.TotalTokens != 150 {
		t.Errorf("balance = %d, want unchanged 150", s.TotalTokens)
	}
	v := s.Actions[0].Verification
	if v == nil || v.Status != domain.StatusPending {
		t.Fatalf("verification = %+v, want pending", v)
	}
	if v.MediaKind != domain.MediaPhoto || v.MediaRef != "blob-1" {
		t.Errorf("media = %s/%s", v.MediaKind, v.MediaRef)
	}
	if v.AnalysisNote != "" || v.ResolvedAt != nil {
		t.Error("pending verification should have no note or resolution time")
	}
	if got := sched.scheduled(); len(got) != 1 || got[0] != id {
		t.Errorf("scheduled = %v, want [%s]", got, id)
	}
	if l.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", l.PendingCount())
	}
}

func TestSubmitAction_VideoMedia(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	id, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Nature", Description: "Planted a tree", TokenValue: 50,
		Media: &domain.Media{Ref: "v", MIMEType: "video/mp4"},
	})
	a, _ := l.Action(id)
	if a.Verification.MediaKind != domain.MediaVideo {
		t.Errorf("MediaKind = %s, want video", a.Verification.MediaKind)
	}
}

func TestSubmitAction_NewestFirst(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	first, _ := l.SubmitAction(ctx, SubmitRequest{Category: "Water", Description: "Collected rainwater", TokenValue: 20})
	second, _ := l.SubmitAction(ctx, SubmitRequest{Category: "Transport", Description: "Carpooled", TokenValue: 15})

	s := l.Snapshot()
	if s.Actions[0].ID != second || s.Actions[1].ID != first {
		t.Errorf("order = %s,%s, want %s,%s", s.Actions[0].ID, s.Actions[1].ID, second, first)
	}
}

func TestSubmitAction_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr error
	}{
		{"empty category", SubmitRequest{Description: "Walked to work", TokenValue: 25}, domain.ErrInvalidAction},
		{"empty description", SubmitRequest{Category: "Transport", Description: "  ", TokenValue: 25}, domain.ErrInvalidAction},
		{"zero tokens", SubmitRequest{Category: "Transport", Description: "Walked to work"}, domain.ErrInvalidTokenValue},
		{"negative tokens", SubmitRequest{Category: "Transport", Description: "Walked to work", TokenValue: -5}, domain.ErrInvalidTokenValue},
		{"unknown category", SubmitRequest{Category: "Space", Description: "Orbit", TokenValue: 5}, domain.ErrUnknownCategory},
		{"unknown activity", SubmitRequest{Category: "Transport", Description: "Teleported", TokenValue: 5}, domain.ErrUnknownActivity},
		{"wrong category", SubmitRequest{Category: "Energy", Description: "Carpooled", TokenValue: 15}, domain.ErrUnknownActivity},
		{"inflated tokens", SubmitRequest{Category: "Transport", Description: "Walked to work", TokenValue: 500}, domain.ErrTokenMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, sched := newTestLedger(t, 100)
			_, err := l.SubmitAction(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			s := l.Snapshot()
			if s.TotalTokens != 100 || len(s.Actions) != 0 || len(sched.scheduled()) != 0 {
				t.Error("failed submission must not mutate the ledger")
			}
		})
	}
}

func TestSubmitAction_NilCatalogTrustsCaller(t *testing.T) {
	l := New(nil)
	if _, err := l.SubmitAction(context.Background(), SubmitRequest{Category: "Water", Description: "Anything", TokenValue: 7}); err != nil {
		t.Fatalf("SubmitAction() error: %v", err)
	}
	if l.Balance() != 7 {
		t.Errorf("balance = %d, want 7", l.Balance())
	}
}

// ─── Resolution Tests ───────────────────────────────────────────────────────

func TestResolve_ApprovedCredits(t *testing.T) {
	l, _ := newTestLedger(t, 150)
	id, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Waste", Description: "Recycled plastic bottles", TokenValue: 20, Media: photo(),
	})

	if !l.ResolveVerification(id, domain.StatusApproved, "ok") {
		t.Fatal("ResolveVerification() = false, want true")
	}
	s := l.Snapshot()
	if s.TotalTokens != 170 {
		t.Errorf("balance = %d, want 170", s.TotalTokens)
	}
	assertLevel(t, s)
	v := s.Actions[0].Verification
	if v.Status != domain.StatusApproved || v.AnalysisNote != "ok" {
		t.Errorf("verification = %+v", v)
	}
	if v.ResolvedAt == nil || !v.ResolvedAt.Equal(testNow) {
		t.Errorf("ResolvedAt = %v, want %v", v.ResolvedAt, testNow)
	}
}

func TestResolve_RejectedLeavesBalance(t *testing.T) {
	l, _ := newTestLedger(t, 150)
	id, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Waste", Description: "Recycled plastic bottles", TokenValue: 20, Media: photo(),
	})

	l.ResolveVerification(id, domain.StatusRejected, "Photo unclear")
	s := l.Snapshot()
	if s.TotalTokens != 150 {
		t.Errorf("balance = %d, want 150", s.TotalTokens)
	}
	if s.Actions[0].Verification.Status != domain.StatusRejected {
		t.Errorf("status = %s, want rejected", s.Actions[0].Verification.Status)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	id, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Nature", Description: "Planted a tree", TokenValue: 50, Media: photo(),
	})
	l.ResolveVerification(id, domain.StatusApproved, "first")
	before := l.Snapshot()

	for _, outcome := range []domain.VerificationStatus{domain.StatusApproved, domain.StatusRejected} {
		if l.ResolveVerification(id, outcome, "again") {
			t.Errorf("second resolution (%s) reported a change", outcome)
		}
	}

	after := l.Snapshot()
	if after.TotalTokens != before.TotalTokens {
		t.Errorf("balance changed %d → %d", before.TotalTokens, after.TotalTokens)
	}
	if after.Actions[0].Verification.AnalysisNote != "first" {
		t.Error("verification changed on second resolution")
	}
}

func TestResolve_NoOps(t *testing.T) {
	l, _ := newTestLedger(t, 10)
	plain, _ := l.SubmitAction(context.Background(), SubmitRequest{Category: "Water", Description: "Collected rainwater", TokenValue: 20})
	pending, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Water", Description: "Collected rainwater", TokenValue: 20, Media: photo(),
	})

	if l.ResolveVerification("missing", domain.StatusApproved, "") {
		t.Error("unknown id should be a no-op")
	}
	if l.ResolveVerification(plain, domain.StatusApproved, "") {
		t.Error("action without verification should be a no-op")
	}
	if l.ResolveVerification(pending, domain.StatusPending, "") {
		t.Error("Pending is not a legal outcome")
	}
	if l.Balance() != 30 {
		t.Errorf("balance = %d, want 30", l.Balance())
	}
}

func TestResolve_SnapshotIsolation(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	id, _ := l.SubmitAction(context.Background(), SubmitRequest{
		Category: "Nature", Description: "Planted a tree", TokenValue: 50, Media: photo(),
	})
	old := l.Snapshot()
	l.ResolveVerification(id, domain.StatusApproved, "ok")

	if old.Actions[0].Verification.Status != domain.StatusPending {
		t.Error("earlier snapshot should still read Pending")
	}
}

// ─── Redemption Tests ───────────────────────────────────────────────────────

func TestRedeemReward(t *testing.T) {
	l, _ := newTestLedger(t, 150)
	ctx := context.Background()

	if err := l.RedeemReward(ctx, "coffee-discount", 50); err != nil {
		t.Fatalf("RedeemReward() error: %v", err)
	}
	s := l.Snapshot()
	if s.TotalTokens != 100 {
		t.Errorf("balance = %d, want 100", s.TotalTokens)
	}
	if !s.HasRedeemed("coffee-discount") {
		t.Error("coffee-discount should be recorded")
	}

	err := l.RedeemReward(ctx, "coffee-discount", 50)
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Errorf("second redeem error = %v, want ErrAlreadyRedeemed", err)
	}
	if l.Balance() != 100 {
		t.Errorf("balance after failed redeem = %d, want 100", l.Balance())
	}
}

func TestRedeemReward_Insufficient(t *testing.T) {
	l, _ := newTestLedger(t, 40)
	err := l.RedeemReward(context.Background(), "coffee-discount", 50)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("error = %v, want ErrInsufficientBalance", err)
	}
	s := l.Snapshot()
	if s.TotalTokens != 40 || len(s.RedeemedRewardIDs) != 0 {
		t.Errorf("state changed: %+v", s)
	}
}

func TestRedeemReward_ExactBalanceAndZeroCost(t *testing.T) {
	l, _ := newTestLedger(t, 50)
	ctx := context.Background()
	if err := l.RedeemReward(ctx, "coffee-discount", 50); err != nil {
		t.Fatalf("exact balance redeem: %v", err)
	}
	if err := l.RedeemReward(ctx, "freebie", 0); err != nil {
		t.Fatalf("zero cost redeem: %v", err)
	}
	if err := l.RedeemReward(ctx, "bad", -1); !errors.Is(err, domain.ErrInvalidCost) {
		t.Errorf("negative cost error = %v, want ErrInvalidCost", err)
	}
	if l.Balance() != 0 {
		t.Errorf("balance = %d, want 0", l.Balance())
	}
}

func TestRedeemCatalogReward(t *testing.T) {
	l, _ := newTestLedger(t, 130)
	ctx := context.Background()
	if err := l.RedeemCatalogReward(ctx, "plant-kit"); err != nil {
		t.Fatalf("RedeemCatalogReward() error: %v", err)
	}
	if l.Balance() != 10 {
		t.Errorf("balance = %d, want 10", l.Balance())
	}
	if err := l.RedeemCatalogReward(ctx, "yacht"); !errors.Is(err, domain.ErrUnknownReward) {
		t.Errorf("error = %v, want ErrUnknownReward", err)
	}
}

func TestRedeemReward_ConcurrentSameReward(t *testing.T) {
	l, _ := newTestLedger(t, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.RedeemReward(ctx, "tree-planting", 200); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("reward redeemed %d times, want 1", wins)
	}
	if l.Balance() != 800 {
		t.Errorf("balance = %d, want 800", l.Balance())
	}
}

// ─── Event Tests ────────────────────────────────────────────────────────────

func TestEvents_CommitOrder(t *testing.T) {
	rec := &eventRecorder{}
	journal := &eventRecorder{}
	l, _ := newTestLedger(t, 100, WithSink(rec), WithJournal(journal))
	ctx := context.Background()

	id, _ := l.SubmitAction(ctx, SubmitRequest{Category: "Nature", Description: "Planted a tree", TokenValue: 50, Media: photo()})
	l.ResolveVerification(id, domain.StatusApproved, "ok")
	l.RedeemReward(ctx, "coffee-discount", 50)
	l.RedeemReward(ctx, "coffee-discount", 50) // fails, no event

	want := []struct {
		typ     domain.EventType
		amount  int
		balance int
	}{
		{domain.EventActionSubmitted, 0, 100},
		{domain.EventVerificationResolved, 50, 150},
		{domain.EventRewardRedeemed, -50, 100},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(rec.events), len(want))
	}
	for i, w := range want {
		e := rec.events[i]
		if e.Seq != int64(i+1) || e.Type != w.typ || e.Amount != w.amount || e.Balance != w.balance {
			t.Errorf("event %d = %+v, want %+v", i, e, w)
		}
	}
	if len(journal.events) != len(want) {
		t.Errorf("journal got %d events, want %d", len(journal.events), len(want))
	}
}

func TestEvents_ConcurrentSeqOrder(t *testing.T) {
	rec := &eventRecorder{}
	l, _ := newTestLedger(t, 0, WithSink(rec))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.SubmitAction(ctx, SubmitRequest{Category: "Water", Description: "Collected rainwater", TokenValue: 20})
		}()
	}
	wg.Wait()

	if len(rec.events) != 40 {
		t.Fatalf("got %d events, want 40", len(rec.events))
	}
	for i, e := range rec.events {
		if e.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d: delivered out of order", i, e.Seq)
		}
	}
	if l.Balance() != 800 {
		t.Errorf("balance = %d, want 800", l.Balance())
	}
}

// ─── Seed Tests ─────────────────────────────────────────────────────────────

func TestDemoSeed(t *testing.T) {
	sched := &manualScheduler{}
	l := New(catalog.Default(), WithSeed(DemoSeed(testNow)), WithScheduler(sched))

	s := l.Snapshot()
	if s.TotalTokens != DemoOpeningBalance {
		t.Errorf("balance = %d, want %d", s.TotalTokens, DemoOpeningBalance)
	}
	if s.Level != 2 {
		t.Errorf("level = %d, want 2 (derived from 150)", s.Level)
	}
	if len(s.Actions) != 5 {
		t.Fatalf("actions = %d, want 5", len(s.Actions))
	}
	if got := sched.scheduled(); len(got) != 1 || got[0] != "4" {
		t.Errorf("scheduled = %v, want the seeded pending action", got)
	}

	l.ResolveVerification("4", domain.StatusApproved, "ok")
	if l.Balance() != 170 {
		t.Errorf("balance after seeded approval = %d, want 170", l.Balance())
	}
}

func TestDemoSeed_ActionsAreCatalogued(t *testing.T) {
	c := catalog.Default()
	for _, a := range DemoSeed(testNow).Actions {
		entry, ok := c.Activity(a.Category, a.Description)
		if !ok {
			t.Errorf("seed action %q not in catalog", a.Description)
			continue
		}
		if entry.Tokens != a.TokenValue {
			t.Errorf("seed action %q tokens = %d, catalog says %d", a.Description, a.TokenValue, entry.Tokens)
		}
	}
}
