package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/greencred/greencred/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// ActionsSubmitted counts logged actions by category and whether proof was attached.
var ActionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "actions_submitted_total",
	Help:      "Total eco actions logged.",
}, []string{"category", "proof"})

// TokensCredited counts tokens added to the balance by category.
var TokensCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "tokens_credited_total",
	Help:      "Total tokens credited to the balance.",
}, []string{"category"})

// TokenBalance tracks the current balance.
var TokenBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "token_balance",
	Help:      "Current token balance.",
})

// RewardsRedeemed counts successful redemptions by reward.
var RewardsRedeemed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "rewards_redeemed_total",
	Help:      "Total rewards redeemed.",
}, []string{"reward"})

// TokensSpent counts tokens spent on rewards.
var TokensSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "tokens_spent_total",
	Help:      "Total tokens spent on rewards.",
})

// RedemptionsRejected counts refused redemptions by reason.
var RedemptionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "ledger",
	Name:      "redemptions_rejected_total",
	Help:      "Total redemption attempts refused.",
}, []string{"reason"})

// ─── Verification Metrics ───────────────────────────────────────────────────

// VerificationsPending tracks reviews waiting for a verdict.
var VerificationsPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "greencred",
	Subsystem: "verification",
	Name:      "pending",
	Help:      "Number of verifications awaiting a verdict.",
})

// VerificationsResolved counts verdicts by outcome.
var VerificationsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "verification",
	Name:      "resolved_total",
	Help:      "Total verifications resolved by outcome.",
}, []string{"outcome"})

// VerificationsStale counts verdicts that found nothing Pending.
var VerificationsStale = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "verification",
	Name:      "stale_total",
	Help:      "Total verdicts that arrived for an already settled action.",
})

// VerificationDelay tracks the drawn review delay.
var VerificationDelay = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "greencred",
	Subsystem: "verification",
	Name:      "delay_seconds",
	Help:      "Scheduled delay before a verdict.",
	Buckets:   []float64{0.5, 1, 2, 3, 3.5, 4, 4.5, 5, 10},
})

// VerificationLatency tracks time from schedule to verdict.
var VerificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "greencred",
	Subsystem: "verification",
	Name:      "latency_seconds",
	Help:      "Observed time from submission to verdict.",
	Buckets:   []float64{0.5, 1, 2, 3, 4, 5, 6, 10, 30},
})

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greencred",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests.",
}, []string{"method", "route", "code"})

// HTTPDuration tracks request handling time by route.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "greencred",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// SSEClients tracks connected live-feed clients.
var SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "greencred",
	Subsystem: "http",
	Name:      "sse_clients",
	Help:      "Connected live event stream clients.",
})

// ─── Recorder ───────────────────────────────────────────────────────────────

// Recorder turns ledger events and scheduler callbacks into metric updates.
// It is a ledger event sink and a verifier observer.
type Recorder struct{}

// NewRecorder returns a recorder writing to the package metrics.
func NewRecorder() *Recorder { return &Recorder{} }

// Publish implements domain.EventSink.
func (Recorder) Publish(e domain.Event) {
	TokenBalance.Set(float64(e.Balance))

	switch e.Type {
	case domain.EventActionSubmitted:
		proof := "false"
		if e.Status == domain.StatusPending {
			proof = "true"
			VerificationsPending.Inc()
		}
		ActionsSubmitted.WithLabelValues(string(e.Category), proof).Inc()
		if e.Amount > 0 {
			TokensCredited.WithLabelValues(string(e.Category)).Add(float64(e.Amount))
		}
	case domain.EventVerificationResolved:
		VerificationsPending.Dec()
		VerificationsResolved.WithLabelValues(string(e.Status)).Inc()
		if e.Amount > 0 {
			TokensCredited.WithLabelValues(string(e.Category)).Add(float64(e.Amount))
		}
	case domain.EventRewardRedeemed:
		RewardsRedeemed.WithLabelValues(e.RewardID).Inc()
		TokensSpent.Add(float64(-e.Amount))
	}
}

// VerificationScheduled records the drawn delay.
func (Recorder) VerificationScheduled(delay time.Duration) {
	VerificationDelay.Observe(delay.Seconds())
}

// VerificationResolved records verdict latency. Outcome counts come from the
// ledger event so stale verdicts are not double counted.
func (Recorder) VerificationResolved(_ domain.VerificationStatus, latency time.Duration, applied bool) {
	if !applied {
		VerificationsStale.Inc()
		return
	}
	VerificationLatency.Observe(latency.Seconds())
}

// RedemptionRejected records a refused redemption.
func (Recorder) RedemptionRejected(reason string) {
	RedemptionsRejected.WithLabelValues(reason).Inc()
}

// SeedPending primes the pending gauge with verifications that existed before
// the recorder was attached.
func (Recorder) SeedPending(n int) {
	VerificationsPending.Add(float64(n))
}
