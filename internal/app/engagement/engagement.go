// Package engagement computes the dashboard, wallet and profile figures.
//
// Everything here is a pure function of a ledger snapshot and a reference
// time. Nothing is stored: a level, streak or achievement is recomputed from
// the action history on every read, so it can never drift from the balance.
package engagement

import (
	"sort"
	"time"

	"github.com/greencred/greencred/internal/domain"
)

// DefaultWeeklyGoal is the token target shown on the profile.
const DefaultWeeklyGoal = 50

// ─── Windows ────────────────────────────────────────────────────────────────

// Window selects a slice of recent history.
type Window string

const (
	WindowAll   Window = ""
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// ParseWindow accepts today, week, month or the empty string.
func ParseWindow(s string) (Window, bool) {
	switch w := Window(s); w {
	case WindowAll, WindowToday, WindowWeek, WindowMonth:
		return w, true
	}
	return "", false
}

// Contains reports whether t falls inside the window ending at now.
// Today is the calendar date of now in now's location; week and month are
// rolling 7 and 30 day spans.
func (w Window) Contains(t, now time.Time) bool {
	switch w {
	case WindowToday:
		return sameDay(t.In(now.Location()), now)
	case WindowWeek:
		return !t.Before(now.Add(-7 * 24 * time.Hour))
	case WindowMonth:
		return !t.Before(now.Add(-30 * 24 * time.Hour))
	}
	return true
}

// FilterWindow returns the actions inside w, preserving order.
func FilterWindow(actions []domain.Action, w Window, now time.Time) []domain.Action {
	out := make([]domain.Action, 0, len(actions))
	for _, a := range actions {
		if w.Contains(a.CreatedAt, now) {
			out = append(out, a)
		}
	}
	return out
}

// ─── Aggregates ─────────────────────────────────────────────────────────────

// SumTokens totals the tokens actually credited by these actions. Pending and
// rejected submissions contribute nothing.
func SumTokens(actions []domain.Action) int {
	n := 0
	for _, a := range actions {
		if a.Credited() {
			n += a.TokenValue
		}
	}
	return n
}

// TokensByCategory totals credited tokens per category.
func TokensByCategory(actions []domain.Action) map[domain.Category]int {
	out := make(map[domain.Category]int)
	for _, a := range actions {
		if a.Credited() {
			out[a.Category] += a.TokenValue
		}
	}
	return out
}

// CountsByCategory counts actions per category regardless of status.
func CountsByCategory(actions []domain.Action) map[domain.Category]int {
	out := make(map[domain.Category]int)
	for _, a := range actions {
		out[a.Category]++
	}
	return out
}

// StatusCounts breaks actions down by verification state.
type StatusCounts struct {
	Approved   int `json:"approved"`
	Pending    int `json:"pending"`
	Rejected   int `json:"rejected"`
	Unverified int `json:"unverified"`
}

// Total returns the number of actions counted.
func (c StatusCounts) Total() int {
	return c.Approved + c.Pending + c.Rejected + c.Unverified
}

// VerificationRate is the approved share as a whole percentage, rounded.
func (c StatusCounts) VerificationRate() int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return (c.Approved*100 + total/2) / total
}

// CountByStatus tallies actions by verification state.
func CountByStatus(actions []domain.Action) StatusCounts {
	var c StatusCounts
	for _, a := range actions {
		if a.Verification == nil {
			c.Unverified++
			continue
		}
		switch a.Verification.Status {
		case domain.StatusApproved:
			c.Approved++
		case domain.StatusPending:
			c.Pending++
		case domain.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

// CategoryShare is one row of a category breakdown.
type CategoryShare struct {
	Category domain.Category `json:"category"`
	Tokens   int             `json:"tokens"`
	Actions  int             `json:"actions"`
}

// Breakdown returns per-category totals, highest tokens first. Ties keep the
// canonical category order.
func Breakdown(actions []domain.Action) []CategoryShare {
	tokens := TokensByCategory(actions)
	counts := CountsByCategory(actions)

	var out []CategoryShare
	for _, c := range domain.Categories() {
		if counts[c] == 0 {
			continue
		}
		out = append(out, CategoryShare{Category: c, Tokens: tokens[c], Actions: counts[c]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tokens > out[j].Tokens })
	return out
}

// TopCategory returns the category with the most actions. ok is false for an
// empty history.
func TopCategory(actions []domain.Action) (cat domain.Category, count int, ok bool) {
	counts := CountsByCategory(actions)
	for _, c := range domain.Categories() {
		if counts[c] > count {
			cat, count, ok = c, counts[c], true
		}
	}
	return cat, count, ok
}

// ─── Progress ───────────────────────────────────────────────────────────────

// LevelProgress describes the distance to the next level.
type LevelProgress struct {
	Level       int `json:"level"`
	Tokens      int `json:"tokens"`
	NextLevelAt int `json:"next_level_at"`
	Progress    int `json:"progress"`
	ToNext      int `json:"to_next"`
	ProgressPct int `json:"progress_pct"`
}

// Progress computes level progress for a balance.
func Progress(tokens int) LevelProgress {
	if tokens < 0 {
		tokens = 0
	}
	lvl := domain.Level(tokens)
	into := tokens % domain.TokensPerLevel
	return LevelProgress{
		Level:       lvl,
		Tokens:      tokens,
		NextLevelAt: lvl * domain.TokensPerLevel,
		Progress:    into,
		ToNext:      domain.TokensPerLevel - into,
		ProgressPct: into * 100 / domain.TokensPerLevel,
	}
}

// StreakDays counts consecutive calendar days with at least one logged
// action. The run must end today or yesterday, otherwise the streak is 0.
func StreakDays(actions []domain.Action, now time.Time) int {
	days := make(map[string]bool, len(actions))
	for _, a := range actions {
		days[dayKey(a.CreatedAt.In(now.Location()))] = true
	}

	day := now
	if !days[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
		if !days[dayKey(day)] {
			return 0
		}
	}
	n := 0
	for days[dayKey(day)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// Goal is the weekly token target and how far along it is.
type Goal struct {
	Target   int  `json:"target"`
	Earned   int  `json:"earned"`
	Percent  int  `json:"percent"`
	Achieved bool `json:"achieved"`
}

// WeeklyGoal measures credited tokens over the last 7 days against target.
// A non-positive target falls back to DefaultWeeklyGoal.
func WeeklyGoal(actions []domain.Action, target int, now time.Time) Goal {
	if target <= 0 {
		target = DefaultWeeklyGoal
	}
	earned := SumTokens(FilterWindow(actions, WindowWeek, now))
	pct := earned * 100 / target
	if pct > 100 {
		pct = 100
	}
	return Goal{Target: target, Earned: earned, Percent: pct, Achieved: earned >= target}
}

// ─── Achievements ───────────────────────────────────────────────────────────

// Achievement is one badge and whether it has been earned.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

type facts struct {
	actions    int
	today      int
	tokens     int
	level      int
	streak     int
	categories int
}

type achievementDef struct {
	id, name, description, icon string
	unlocked                    func(facts) bool
}

var achievementDefs = []achievementDef{
	{"first-steps", "First Steps", "Logged your first eco action", "🌱", func(f facts) bool { return f.actions > 0 }},
	{"green-warrior", "Green Warrior", "Reached Level 3", "⚡", func(f facts) bool { return f.level >= 3 }},
	{"century-club", "Century Club", "Earned 100+ tokens", "💯", func(f facts) bool { return f.tokens >= 100 }},
	{"daily-hero", "Daily Hero", "Logged 3 actions in one day", "🦸", func(f facts) bool { return f.today >= 3 }},
	{"consistent-champion", "Consistent Champion", "Maintained a 5-day streak", "🔥", func(f facts) bool { return f.streak >= 5 }},
	{"category-explorer", "Category Explorer", "Tried actions from 3+ categories", "🗺️", func(f facts) bool { return f.categories >= 3 }},
	{"eco-master", "Eco Master", "Reached Level 5", "👑", func(f facts) bool { return f.level >= 5 }},
}

// Achievements evaluates every badge against the snapshot.
func Achievements(s domain.Snapshot, now time.Time) []Achievement {
	f := facts{
		actions:    len(s.Actions),
		today:      len(FilterWindow(s.Actions, WindowToday, now)),
		tokens:     s.TotalTokens,
		level:      domain.Level(s.TotalTokens),
		streak:     StreakDays(s.Actions, now),
		categories: len(CountsByCategory(s.Actions)),
	}
	out := make([]Achievement, len(achievementDefs))
	for i, d := range achievementDefs {
		out[i] = Achievement{
			ID:          d.id,
			Name:        d.name,
			Description: d.description,
			Icon:        d.icon,
			Unlocked:    d.unlocked(f),
		}
	}
	return out
}

// UnlockedCount returns how many achievements are earned.
func UnlockedCount(list []Achievement) int {
	n := 0
	for _, a := range list {
		if a.Unlocked {
			n++
		}
	}
	return n
}

// ─── Summary ────────────────────────────────────────────────────────────────

// WindowTotals is the action count and credited tokens for one window.
type WindowTotals struct {
	Actions int `json:"actions"`
	Tokens  int `json:"tokens"`
}

// Summary is the full dashboard view.
type Summary struct {
	TotalTokens  int             `json:"total_tokens"`
	Level        LevelProgress   `json:"level"`
	Today        WindowTotals    `json:"today"`
	Week         WindowTotals    `json:"week"`
	Month        WindowTotals    `json:"month"`
	Status       StatusCounts    `json:"status"`
	VerifiedPct  int             `json:"verification_rate"`
	Categories   []CategoryShare `json:"categories"`
	TopCategory  domain.Category `json:"top_category,omitempty"`
	StreakDays   int             `json:"streak_days"`
	WeeklyGoal   Goal            `json:"weekly_goal"`
	Achievements int             `json:"achievements_unlocked"`
	Redeemed     int             `json:"rewards_redeemed"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Summarize builds the dashboard for a snapshot.
func Summarize(s domain.Snapshot, weeklyGoal int, now time.Time) Summary {
	totals := func(w Window) WindowTotals {
		in := FilterWindow(s.Actions, w, now)
		return WindowTotals{Actions: len(in), Tokens: SumTokens(in)}
	}
	status := CountByStatus(s.Actions)
	top, _, _ := TopCategory(s.Actions)

	return Summary{
		TotalTokens:  s.TotalTokens,
		Level:        Progress(s.TotalTokens),
		Today:        totals(WindowToday),
		Week:         totals(WindowWeek),
		Month:        totals(WindowMonth),
		Status:       status,
		VerifiedPct:  status.VerificationRate(),
		Categories:   Breakdown(s.Actions),
		TopCategory:  top,
		StreakDays:   StreakDays(s.Actions, now),
		WeeklyGoal:   WeeklyGoal(s.Actions, weeklyGoal, now),
		Achievements: UnlockedCount(Achievements(s, now)),
		Redeemed:     len(s.RedeemedRewardIDs),
		GeneratedAt:  now,
	}
}

// ─── Internal ───────────────────────────────────────────────────────────────

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
