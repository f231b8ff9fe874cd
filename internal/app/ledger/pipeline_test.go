package ledger

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/greencred/greencred/internal/app/verifier"
	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
)

// TestPipeline_EveryProofResolvesOnce drives real scheduled reviews through
// the ledger and checks the balance matches the approved set.
func TestPipeline_EveryProofResolvesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	sched := verifier.NewScheduler(
		verifier.Config{MinDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, ApprovalRate: verifier.DefaultApprovalRate},
		verifier.NewOracle(verifier.DefaultApprovalRate, rand.NewPCG(11, 13)),
		nil,
	)
	l := New(catalog.Default(), WithScheduler(sched))
	sched.Bind(l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	const n = 30
	for i := 0; i < n; i++ {
		_, err := l.SubmitAction(ctx, SubmitRequest{
			Category: "Nature", Description: "Planted a tree", TokenValue: 50,
			Media: &domain.Media{Ref: "r", MIMEType: "image/png"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for l.PendingCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	s := l.Snapshot()
	approved := 0
	for _, a := range s.Actions {
		switch a.Status() {
		case domain.StatusApproved:
			approved++
			if !contains(verifier.ApprovedMessages[:], a.Verification.AnalysisNote) {
				t.Errorf("unexpected approval note %q", a.Verification.AnalysisNote)
			}
		case domain.StatusRejected:
			if !contains(verifier.RejectedMessages[:], a.Verification.AnalysisNote) {
				t.Errorf("unexpected rejection note %q", a.Verification.AnalysisNote)
			}
		default:
			t.Fatalf("action %s still %s after shutdown", a.ID, a.Status())
		}
	}
	if s.TotalTokens != approved*50 {
		t.Errorf("balance = %d, want %d for %d approvals", s.TotalTokens, approved*50, approved)
	}
	if st := sched.Stats(); st.Approved+st.Rejected != n || st.Stale != 0 {
		t.Errorf("scheduler stats = %+v", st)
	}
}

func contains(pool []string, s string) bool {
	for _, p := range pool {
		if p == s {
			return true
		}
	}
	return false
}
