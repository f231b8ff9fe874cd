// Package domain contains pure business types with ZERO infrastructure imports.
// It depends on nothing outside the standard library.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Category Types ─────────────────────────────────────────────────────────

// Category groups eco actions. The set is fixed.
type Category string

const (
	CategoryTransport Category = "Transport"
	CategoryEnergy    Category = "Energy"
	CategoryWaste     Category = "Waste"
	CategoryWater     Category = "Water"
	CategoryNature    Category = "Nature"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryTransport,
		CategoryEnergy,
		CategoryWaste,
		CategoryWater,
		CategoryNature,
	}
}

// ParseCategory maps a case-insensitive name onto a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ─── Verification Types ─────────────────────────────────────────────────────

// VerificationStatus is the state of a proof review.
// Pending → Approved | Rejected. Both outcomes are terminal.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s VerificationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether s → next is a legal move.
func (s VerificationStatus) CanTransition(next VerificationStatus) bool {
	return s == StatusPending && next.IsTerminal()
}

// MediaKind is the type of proof attached to an action.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// MediaKindFromMIME derives the kind from a declared MIME type.
// Anything that is not video/* counts as a photo.
func MediaKindFromMIME(mime string) MediaKind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "video/") {
		return MediaVideo
	}
	return MediaPhoto
}

// Media is the proof submitted with an action. The ledger keeps only the
// reference; the bytes belong to whoever uploaded them.
type Media struct {
	Ref      string `json:"ref"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// Verification is the proof-and-review record of an action.
type Verification struct {
	Status       VerificationStatus `json:"status"`
	MediaKind    MediaKind          `json:"media_kind"`
	MediaRef     string             `json:"media_ref,omitempty"`
	AnalysisNote string             `json:"analysis_note,omitempty"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
}

// ─── Action Types ───────────────────────────────────────────────────────────

// Action is one logged eco activity.
type Action struct {
	ID           string        `json:"id"`
	Category     Category      `json:"category"`
	Description  string        `json:"description"`
	TokenValue   int           `json:"tokens"`
	CreatedAt    time.Time     `json:"created_at"`
	Verification *Verification `json:"verification,omitempty"`
}

// Status returns the verification status, or "" for actions logged without proof.
func (a Action) Status() VerificationStatus {
	if a.Verification == nil {
		return ""
	}
	return a.Verification.Status
}

// Credited reports whether the action's tokens count toward the balance.
func (a Action) Credited() bool {
	return a.Verification == nil || a.Verification.Status == StatusApproved
}

// Clone returns a deep copy.
func (a Action) Clone() Action {
	if a.Verification == nil {
		return a
	}
	v := *a.Verification
	if v.ResolvedAt != nil {
		t := *v.ResolvedAt
		v.ResolvedAt = &t
	}
	a.Verification = &v
	return a
}

// ─── Catalog Entries ────────────────────────────────────────────────────────

// Activity is a catalog row: the canonical token value of one action.
type Activity struct {
	Category Category `json:"category" toml:"category"`
	Name     string   `json:"name" toml:"name"`
	Tokens   int      `json:"tokens" toml:"tokens"`
}

// Reward is a redeemable catalog entry.
type Reward struct {
	ID          string `json:"id" toml:"id"`
	Title       string `json:"title" toml:"title"`
	Description string `json:"description" toml:"description"`
	Cost        int    `json:"cost" toml:"cost"`
	Category    string `json:"category" toml:"category"`
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// TimeAgo formats how long ago t was, relative to now ("3h ago", "12m ago").
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	if h := int(d.Hours()); h > 0 {
		return fmt.Sprintf("%dh ago", h)
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
