package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Catalog resolves canonical token values and reward prices.
type Catalog interface {
	// Activity returns the catalog row for (category, name).
	Activity(category Category, name string) (Activity, bool)

	// Activities returns every row, grouped by category in display order.
	Activities() []Activity

	// Reward returns the reward with the given id.
	Reward(id string) (Reward, bool)

	// Rewards returns the full reward catalog.
	Rewards() []Reward
}

// EventJournal records committed ledger events.
type EventJournal interface {
	Append(e Event) error
}

// EventSink receives committed ledger events for fan-out (SSE, metrics).
type EventSink interface {
	Publish(e Event)
}
