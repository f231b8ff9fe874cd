package domain

import "time"

// ─── Ledger Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.

// TokensPerLevel is the width of one level band.
const TokensPerLevel = 100

// Level derives the display tier from a balance: floor(tokens/100) + 1.
// It is never stored, so it cannot drift from the balance.
func Level(totalTokens int) int {
	if totalTokens < 0 {
		return 1
	}
	return totalTokens/TokensPerLevel + 1
}

// Snapshot is a torn-free copy of the ledger at one instant.
type Snapshot struct {
	TotalTokens       int       `json:"total_tokens"`
	Level             int       `json:"level"`
	Actions           []Action  `json:"actions"` // newest first
	RedeemedRewardIDs []string  `json:"redeemed_rewards"`
	TakenAt           time.Time `json:"taken_at"`
}

// HasRedeemed reports whether rewardID is in the redeemed set.
func (s Snapshot) HasRedeemed(rewardID string) bool {
	for _, id := range s.RedeemedRewardIDs {
		if id == rewardID {
			return true
		}
	}
	return false
}

// Seed is the opening state of a ledger. OpeningBalance covers history that
// predates the seeded actions.
type Seed struct {
	OpeningBalance int
	Actions        []Action // newest first
	Redeemed       []string
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType is the business reason for a ledger mutation.
type EventType string

const (
	EventActionSubmitted      EventType = "action_submitted"
	EventVerificationResolved EventType = "verification_resolved"
	EventRewardRedeemed       EventType = "reward_redeemed"
)

// Event is emitted once per committed mutation, in commit order.
type Event struct {
	Seq      int64              `json:"seq"`
	Type     EventType          `json:"type"`
	At       time.Time          `json:"at"`
	ActionID string             `json:"action_id,omitempty"`
	RewardID string             `json:"reward_id,omitempty"`
	Category Category           `json:"category,omitempty"`
	Amount   int                `json:"amount"`  // tokens credited (+) or spent (−)
	Balance  int                `json:"balance"` // balance after the mutation
	Status   VerificationStatus `json:"status,omitempty"`
	Note     string             `json:"note,omitempty"`
}
