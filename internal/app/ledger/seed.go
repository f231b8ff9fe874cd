package ledger

import (
	"time"

	"github.com/greencred/greencred/internal/domain"
)

// DemoOpeningBalance is the balance the demo account shows on first launch.
const DemoOpeningBalance = 150

// DemoSeed returns the demo account: five recent actions (three approved, one
// pending, one rejected) and a 150 token balance. The mobile client labelled
// this account level 3; level is derived here, so it reads 2.
//
// Only the approved actions are credited, which covers 60 of the 150 tokens.
// The remaining 90 are carried as opening balance.
func DemoSeed(now time.Time) domain.Seed {
	at := func(ago time.Duration) time.Time { return now.Add(-ago) }
	resolved := func(ago, after time.Duration) *time.Time {
		t := now.Add(-ago + after)
		return &t
	}

	actions := []domain.Action{
		{
			ID:          "1",
			Category:    domain.CategoryTransport,
			Description: "Walked to work",
			TokenValue:  25,
			CreatedAt:   at(2 * time.Hour),
			Verification: &domain.Verification{
				Status:       domain.StatusApproved,
				MediaKind:    domain.MediaPhoto,
				AnalysisNote: "Photo verified: Person walking outdoors on pedestrian path. Action confirmed.",
				ResolvedAt:   resolved(2*time.Hour, 5*time.Minute),
			},
		},
		{
			ID:          "2",
			Category:    domain.CategoryEnergy,
			Description: "Used LED lights all day",
			TokenValue:  15,
			CreatedAt:   at(4 * time.Hour),
			Verification: &domain.Verification{
				Status:       domain.StatusApproved,
				MediaKind:    domain.MediaPhoto,
				AnalysisNote: "Photo verified: LED light bulbs detected in use. Energy-efficient lighting confirmed.",
				ResolvedAt:   resolved(4*time.Hour, 3*time.Minute),
			},
		},
		{
			ID:          "3",
			Category:    domain.CategoryWaste,
			Description: "Recycled plastic bottles",
			TokenValue:  20,
			CreatedAt:   at(6 * time.Hour),
			Verification: &domain.Verification{
				Status:       domain.StatusApproved,
				MediaKind:    domain.MediaPhoto,
				AnalysisNote: "Photo verified: Multiple plastic bottles placed in recycling bin. Proper recycling confirmed.",
				ResolvedAt:   resolved(6*time.Hour, 2*time.Minute),
			},
		},
		{
			ID:          "4",
			Category:    domain.CategoryTransport,
			Description: "Used public transport",
			TokenValue:  20,
			CreatedAt:   at(30 * time.Minute),
			Verification: &domain.Verification{
				Status:    domain.StatusPending,
				MediaKind: domain.MediaPhoto,
			},
		},
		{
			ID:          "5",
			Category:    domain.CategoryNature,
			Description: "Planted vegetables in garden",
			TokenValue:  35,
			CreatedAt:   at(24 * time.Hour),
			Verification: &domain.Verification{
				Status:       domain.StatusRejected,
				MediaKind:    domain.MediaVideo,
				AnalysisNote: "Video unclear: Unable to clearly identify planting activity. Please provide clearer documentation.",
				ResolvedAt:   resolved(24*time.Hour, 10*time.Minute),
			},
		},
	}

	credited := 0
	for _, a := range actions {
		if a.Credited() {
			credited += a.TokenValue
		}
	}
	return domain.Seed{
		OpeningBalance: DemoOpeningBalance - credited,
		Actions:        actions,
	}
}
