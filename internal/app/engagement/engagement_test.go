package engagement

import (
	"testing"
	"time"

	"github.com/greencred/greencred/internal/domain"
)

var now = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func act(cat domain.Category, tokens int, ago time.Duration, status domain.VerificationStatus) domain.Action {
	a := domain.Action{
		ID:          string(cat) + ago.String(),
		Category:    cat,
		Description: "x",
		TokenValue:  tokens,
		CreatedAt:   now.Add(-ago),
	}
	if status != "" {
		a.Verification = &domain.Verification{Status: status}
	}
	return a
}

func history() []domain.Action {
	return []domain.Action{
		act(domain.CategoryTransport, 25, 1*time.Hour, domain.StatusApproved),
		act(domain.CategoryEnergy, 15, 2*time.Hour, ""),
		act(domain.CategoryTransport, 20, 3*time.Hour, domain.StatusPending),
		act(domain.CategoryWaste, 20, 3*24*time.Hour, domain.StatusApproved),
		act(domain.CategoryNature, 35, 10*24*time.Hour, domain.StatusRejected),
		act(domain.CategoryWater, 30, 40*24*time.Hour, ""),
	}
}

// ─── Window Tests ───────────────────────────────────────────────────────────

func TestFilterWindow(t *testing.T) {
	tests := []struct {
		window Window
		want   int
	}{
		{WindowToday, 3},
		{WindowWeek, 4},
		{WindowMonth, 5},
		{WindowAll, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			if got := len(FilterWindow(history(), tt.window, now)); got != tt.want {
				t.Errorf("FilterWindow(%q) = %d actions, want %d", tt.window, got, tt.want)
			}
		})
	}
}

func TestWindowToday_CalendarDate(t *testing.T) {
	// 15:00 today vs 23:00 yesterday: 16h apart but a different date.
	yesterday := now.Add(-16 * time.Hour)
	if WindowToday.Contains(yesterday, now) {
		t.Error("yesterday evening should not count as today")
	}
	if !WindowToday.Contains(now.Add(-14*time.Hour), now) {
		t.Error("01:00 today should count as today")
	}
}

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"", "today", "week", "month"} {
		if _, ok := ParseWindow(s); !ok {
			t.Errorf("ParseWindow(%q) rejected", s)
		}
	}
	if _, ok := ParseWindow("year"); ok {
		t.Error("ParseWindow(year) accepted")
	}
}

// ─── Aggregate Tests ────────────────────────────────────────────────────────

func TestSumTokens_CreditedOnly(t *testing.T) {
	// approved 25 + unverified 15 + approved 20 + unverified 30
	if got := SumTokens(history()); got != 90 {
		t.Errorf("SumTokens() = %d, want 90", got)
	}
}

func TestTokensAndCountsByCategory(t *testing.T) {
	h := history()
	tokens := TokensByCategory(h)
	if tokens[domain.CategoryTransport] != 25 {
		t.Errorf("Transport tokens = %d, want 25 (pending excluded)", tokens[domain.CategoryTransport])
	}
	if tokens[domain.CategoryNature] != 0 {
		t.Errorf("Nature tokens = %d, want 0 (rejected)", tokens[domain.CategoryNature])
	}
	counts := CountsByCategory(h)
	if counts[domain.CategoryTransport] != 2 || len(counts) != 5 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCountByStatus(t *testing.T) {
	c := CountByStatus(history())
	want := StatusCounts{Approved: 2, Pending: 1, Rejected: 1, Unverified: 2}
	if c != want {
		t.Errorf("CountByStatus() = %+v, want %+v", c, want)
	}
	if c.VerificationRate() != 33 {
		t.Errorf("VerificationRate() = %d, want 33", c.VerificationRate())
	}
	if (StatusCounts{}).VerificationRate() != 0 {
		t.Error("empty rate should be 0")
	}
}

func TestTopCategoryAndBreakdown(t *testing.T) {
	cat, n, ok := TopCategory(history())
	if !ok || cat != domain.CategoryTransport || n != 2 {
		t.Errorf("TopCategory() = %s, %d, %v", cat, n, ok)
	}
	if _, _, ok := TopCategory(nil); ok {
		t.Error("TopCategory(nil) should report !ok")
	}

	b := Breakdown(history())
	if len(b) != 5 {
		t.Fatalf("Breakdown() rows = %d, want 5", len(b))
	}
	if b[0].Category != domain.CategoryWater || b[0].Tokens != 30 {
		t.Errorf("first row = %+v, want Water/30", b[0])
	}
	for i := 1; i < len(b); i++ {
		if b[i].Tokens > b[i-1].Tokens {
			t.Errorf("breakdown not sorted at %d", i)
		}
	}
}

// ─── Progress Tests ─────────────────────────────────────────────────────────

func TestProgress(t *testing.T) {
	tests := []struct {
		tokens, level, next, into, toNext int
	}{
		{0, 1, 100, 0, 100},
		{99, 1, 100, 99, 1},
		{100, 2, 200, 0, 100},
		{150, 2, 200, 50, 50},
		{420, 5, 500, 20, 80},
	}
	for _, tt := range tests {
		p := Progress(tt.tokens)
		if p.Level != tt.level || p.NextLevelAt != tt.next || p.Progress != tt.into || p.ToNext != tt.toNext {
			t.Errorf("Progress(%d) = %+v", tt.tokens, p)
		}
	}
}

func TestStreakDays(t *testing.T) {
	day := func(n int) domain.Action {
		return domain.Action{CreatedAt: now.AddDate(0, 0, -n)}
	}
	tests := []struct {
		name    string
		actions []domain.Action
		want    int
	}{
		{"empty", nil, 0},
		{"today only", []domain.Action{day(0)}, 1},
		{"five days", []domain.Action{day(0), day(1), day(2), day(3), day(4)}, 5},
		{"ends yesterday", []domain.Action{day(1), day(2)}, 2},
		{"gap breaks run", []domain.Action{day(0), day(1), day(3)}, 2},
		{"stale", []domain.Action{day(2), day(3)}, 0},
		{"duplicates per day", []domain.Action{day(0), day(0), day(1)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreakDays(tt.actions, now); got != tt.want {
				t.Errorf("StreakDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeeklyGoal(t *testing.T) {
	g := WeeklyGoal(history(), 0, now)
	if g.Target != DefaultWeeklyGoal {
		t.Errorf("Target = %d, want %d", g.Target, DefaultWeeklyGoal)
	}
	if g.Earned != 60 || !g.Achieved || g.Percent != 100 {
		t.Errorf("goal = %+v, want 60 earned, achieved, capped 100%%", g)
	}

	g = WeeklyGoal(history(), 200, now)
	if g.Achieved || g.Percent != 30 {
		t.Errorf("goal(200) = %+v", g)
	}
}

// ─── Achievement Tests ──────────────────────────────────────────────────────

func unlocked(list []Achievement) map[string]bool {
	out := map[string]bool{}
	for _, a := range list {
		out[a.Name] = a.Unlocked
	}
	return out
}

func TestAchievements_Empty(t *testing.T) {
	list := Achievements(domain.Snapshot{}, now)
	if len(list) != 7 {
		t.Fatalf("got %d achievements, want 7", len(list))
	}
	if UnlockedCount(list) != 0 {
		t.Errorf("empty history unlocked %d", UnlockedCount(list))
	}
}

func TestAchievements_History(t *testing.T) {
	s := domain.Snapshot{TotalTokens: 150, Actions: history()}
	got := unlocked(Achievements(s, now))

	want := map[string]bool{
		"First Steps":         true,
		"Green Warrior":       false, // level 2
		"Century Club":        true,
		"Daily Hero":          true, // 3 today
		"Consistent Champion": false,
		"Category Explorer":   true,
		"Eco Master":          false,
	}
	for name, w := range want {
		if got[name] != w {
			t.Errorf("%s unlocked = %v, want %v", name, got[name], w)
		}
	}
}

func TestAchievements_LevelBadges(t *testing.T) {
	got := unlocked(Achievements(domain.Snapshot{TotalTokens: 400}, now))
	if !got["Green Warrior"] || !got["Eco Master"] {
		t.Errorf("400 tokens (level 5) should unlock both level badges: %v", got)
	}
}

// ─── Summary Tests ──────────────────────────────────────────────────────────

func TestSummarize(t *testing.T) {
	s := domain.Snapshot{TotalTokens: 150, Actions: history(), RedeemedRewardIDs: []string{"coffee-discount"}}
	sum := Summarize(s, 50, now)

	if sum.Level.Level != 2 || sum.Level.Progress != 50 {
		t.Errorf("Level = %+v", sum.Level)
	}
	if sum.Today != (WindowTotals{Actions: 3, Tokens: 40}) {
		t.Errorf("Today = %+v", sum.Today)
	}
	if sum.Week != (WindowTotals{Actions: 4, Tokens: 60}) {
		t.Errorf("Week = %+v", sum.Week)
	}
	if sum.Month.Actions != 5 {
		t.Errorf("Month.Actions = %d, want 5", sum.Month.Actions)
	}
	if sum.TopCategory != domain.CategoryTransport {
		t.Errorf("TopCategory = %s", sum.TopCategory)
	}
	if sum.StreakDays != 1 {
		t.Errorf("StreakDays = %d, want 1", sum.StreakDays)
	}
	if sum.Achievements != 4 || sum.Redeemed != 1 {
		t.Errorf("Achievements = %d, Redeemed = %d", sum.Achievements, sum.Redeemed)
	}
}
