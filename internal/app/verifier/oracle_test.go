package verifier

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/greencred/greencred/internal/domain"
)

func inPool(pool []string, msg string) bool {
	for _, m := range pool {
		if m == msg {
			return true
		}
	}
	return false
}

func TestOracle_ApprovalSplit(t *testing.T) {
	o := NewOracle(DefaultApprovalRate, rand.NewPCG(42, 7))

	const draws = 10_000
	approved := 0
	for i := 0; i < draws; i++ {
		status, note := o.Decide()
		switch status {
		case domain.StatusApproved:
			approved++
			if !inPool(ApprovedMessages[:], note) {
				t.Fatalf("approval note %q not in pool", note)
			}
		case domain.StatusRejected:
			if !inPool(RejectedMessages[:], note) {
				t.Fatalf("rejection note %q not in pool", note)
			}
		default:
			t.Fatalf("Decide() returned non-terminal status %q", status)
		}
	}

	share := float64(approved) / draws
	if share < 0.77 || share > 0.83 {
		t.Errorf("approval share = %.3f, want ≈0.80", share)
	}
}

func TestOracle_UsesEveryMessage(t *testing.T) {
	o := NewOracle(0.5, rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for i := 0; i < 2000; i++ {
		_, note := o.Decide()
		seen[note] = true
	}
	if len(seen) != len(ApprovedMessages)+len(RejectedMessages) {
		t.Errorf("saw %d distinct notes, want %d", len(seen), len(ApprovedMessages)+len(RejectedMessages))
	}
}

func TestOracle_ExtremeRates(t *testing.T) {
	always := NewOracle(1.5, rand.NewPCG(3, 4))
	never := NewOracle(-1, rand.NewPCG(3, 4))
	for i := 0; i < 100; i++ {
		if s, _ := always.Decide(); s != domain.StatusApproved {
			t.Fatal("rate ≥ 1 should always approve")
		}
		if s, _ := never.Decide(); s != domain.StatusRejected {
			t.Fatal("rate ≤ 0 should always reject")
		}
	}
}

func TestOracle_DelayRange(t *testing.T) {
	o := NewOracle(DefaultApprovalRate, rand.NewPCG(9, 9))
	lo, hi := 3*time.Second, 5*time.Second
	for i := 0; i < 1000; i++ {
		d := o.Delay(lo, hi)
		if d < lo || d >= hi {
			t.Fatalf("Delay() = %v, want in [%v, %v)", d, lo, hi)
		}
	}
	if d := o.Delay(time.Second, time.Second); d != time.Second {
		t.Errorf("Delay(equal bounds) = %v, want 1s", d)
	}
}
