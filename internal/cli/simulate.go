package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/greencred/greencred/internal/app/engagement"
	"github.com/greencred/greencred/internal/app/ledger"
	"github.com/greencred/greencred/internal/app/verifier"
	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Int("actions", 20, "actions to log")
	simulateCmd.Flags().Float64("proof-rate", 0.5, "share of actions submitted with photo proof")
	simulateCmd.Flags().Float64("approval-rate", verifier.DefaultApprovalRate, "share of reviews approved")
	simulateCmd.Flags().Uint64("seed", 1, "random seed")
	simulateCmd.Flags().Bool("redeem", true, "redeem every affordable reward at the end")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an in-process demo of the ledger",
	Long: `Log random catalog actions against a fresh ledger, let the review
scheduler resolve the ones with proof, then print the dashboard summary.
Review delays are shortened to milliseconds.`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	n, _ := cmd.Flags().GetInt("actions")
	proofRate, _ := cmd.Flags().GetFloat64("proof-rate")
	approvalRate, _ := cmd.Flags().GetFloat64("approval-rate")
	seed, _ := cmd.Flags().GetUint64("seed")
	redeem, _ := cmd.Flags().GetBool("redeem")

	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	cat := catalog.Default()
	oracle := verifier.NewOracle(approvalRate, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sched := verifier.NewScheduler(verifier.Config{
		MinDelay:     time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		ApprovalRate: approvalRate,
	}, oracle, logger)

	l := ledger.New(cat, ledger.WithScheduler(sched), ledger.WithLogger(logger))
	sched.Bind(l)

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	rng := rand.New(rand.NewPCG(seed, seed+1))
	activities := cat.Activities()
	for i := 0; i < n; i++ {
		a := activities[rng.IntN(len(activities))]
		req := ledger.SubmitRequest{
			Category:    string(a.Category),
			Description: a.Name,
			TokenValue:  a.Tokens,
		}
		if rng.Float64() < proofRate {
			req.Media = &domain.Media{Ref: fmt.Sprintf("sim-%d", i), MIMEType: "image/jpeg"}
		}
		if _, err := l.SubmitAction(ctx, req); err != nil {
			return fmt.Errorf("submit %q: %w", a.Name, err)
		}
	}

	for l.PendingCount() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("reviews did not finish: %w", ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	out := cmd.OutOrStdout()
	if redeem {
		for _, rw := range cat.Rewards() {
			if err := l.RedeemCatalogReward(context.Background(), rw.ID); err == nil {
				fmt.Fprintf(out, "🎁 redeemed %s (-%d)\n", rw.Title, rw.Cost)
			}
		}
	}

	s := engagement.Summarize(l.Snapshot(), engagement.DefaultWeeklyGoal, time.Now())
	stats := sched.Stats()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Actions:      %d (%d approved, %d rejected, %d without proof)\n",
		s.Status.Total(), stats.Approved, stats.Rejected, s.Status.Unverified)
	fmt.Fprintf(out, "Balance:      %d tokens, level %d (%d to next)\n",
		s.TotalTokens, s.Level.Level, s.Level.ToNext)
	fmt.Fprintf(out, "Verified:     %d%%\n", s.VerifiedPct)
	fmt.Fprintf(out, "Weekly goal:  %d/%d (%d%%)\n", s.WeeklyGoal.Earned, s.WeeklyGoal.Target, s.WeeklyGoal.Percent)
	fmt.Fprintf(out, "Achievements: %d unlocked\n", s.Achievements)
	for _, c := range s.Categories {
		fmt.Fprintf(out, "  %-10s %3d actions  %4d tokens\n", c.Category, c.Actions, c.Tokens)
	}
	return nil
}
