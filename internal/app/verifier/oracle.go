// Package verifier simulates the AI proof review.
//
// The Oracle draws a verdict; the Scheduler holds each pending review until
// its randomized delay elapses and then posts the verdict to the ledger.
// Verdicts are not cryptographically meaningful.
package verifier

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/greencred/greencred/internal/domain"
)

// DefaultApprovalRate is the share of reviews that come back Approved.
const DefaultApprovalRate = 0.8

// ApprovedMessages is the analysis-note pool for approvals.
var ApprovedMessages = [...]string{
	"Photo verified: Eco-friendly action confirmed through image analysis.",
	"Video analysis complete: Sustainable behavior detected and validated.",
	"AI verification successful: Action matches environmental criteria.",
	"Image recognition confirmed: Valid eco-friendly activity identified.",
	"Visual verification complete: Action aligns with sustainability standards.",
}

// RejectedMessages is the analysis-note pool for rejections.
var RejectedMessages = [...]string{
	"Photo unclear: Unable to verify eco-friendly action. Please retake.",
	"Image analysis inconclusive: Action not clearly visible in media.",
	"Verification failed: Media does not match claimed eco-friendly activity.",
	"AI analysis incomplete: Please provide clearer documentation.",
	"Visual verification unsuccessful: Action cannot be confirmed.",
}

// Oracle draws simulated verdicts. Safe for concurrent use.
type Oracle struct {
	mu           sync.Mutex
	rng          *rand.Rand
	approvalRate float64
}

// NewOracle creates an oracle. A nil source seeds from the wall clock.
func NewOracle(approvalRate float64, src rand.Source) *Oracle {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>17|1)
	}
	if approvalRate < 0 {
		approvalRate = 0
	}
	if approvalRate > 1 {
		approvalRate = 1
	}
	return &Oracle{rng: rand.New(src), approvalRate: approvalRate}
}

// Decide returns a terminal status and an analysis note drawn uniformly from
// that status's pool.
func (o *Oracle) Decide() (domain.VerificationStatus, string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rng.Float64() < o.approvalRate {
		return domain.StatusApproved, ApprovedMessages[o.rng.IntN(len(ApprovedMessages))]
	}
	return domain.StatusRejected, RejectedMessages[o.rng.IntN(len(RejectedMessages))]
}

// Delay returns a duration uniform in [lo, hi). If hi <= lo it returns lo.
func (o *Oracle) Delay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return lo + time.Duration(o.rng.Int64N(int64(hi-lo)))
}
