package sqlite

import (
	"database/sql"
	"time"

	"github.com/greencred/greencred/internal/domain"
)

// ─── Journal Operations ─────────────────────────────────────────────────────

// Append records one committed ledger event. Implements domain.EventJournal.
func (db *DB) Append(e domain.Event) error {
	_, err := db.db.Exec(`
		INSERT INTO ledger_events (run_id, seq, type, at, action_id, reward_id, category, amount, balance, status, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, db.runID, e.Seq, string(e.Type), e.At.UTC().Format(time.RFC3339Nano),
		nullable(e.ActionID), nullable(e.RewardID), nullable(string(e.Category)),
		e.Amount, e.Balance, nullable(string(e.Status)), nullable(e.Note))
	return err
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	RunID    string
	ActionID string
	Type     domain.EventType
	Limit    int
}

// List returns matching events oldest first.
func (db *DB) List(f Filter) ([]domain.Event, error) {
	q := `SELECT seq, type, at, action_id, reward_id, category, amount, balance, status, note
		FROM ledger_events WHERE 1=1`
	var args []any
	if f.RunID != "" {
		q += ` AND run_id = ?`
		args = append(args, f.RunID)
	}
	if f.ActionID != "" {
		q += ` AND action_id = ?`
		args = append(args, f.ActionID)
	}
	if f.Type != "" {
		q += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			e                                        domain.Event
			typ, at                                  string
			actionID, rewardID, category, status, nt sql.NullString
		)
		if err := rows.Scan(&e.Seq, &typ, &at, &actionID, &rewardID, &category,
			&e.Amount, &e.Balance, &status, &nt); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.ActionID = actionID.String
		e.RewardID = rewardID.String
		e.Category = domain.Category(category.String)
		e.Status = domain.VerificationStatus(status.String)
		e.Note = nt.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByType returns how many events of each type this run has recorded.
func (db *DB) CountByType() (map[domain.EventType]int, error) {
	rows, err := db.db.Query(`
		SELECT type, COUNT(*) FROM ledger_events WHERE run_id = ? GROUP BY type
	`, db.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.EventType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[domain.EventType(typ)] = n
	}
	return out, rows.Err()
}

// TokenFlow sums credited and spent tokens for this run.
func (db *DB) TokenFlow() (credited, spent int, err error) {
	err = db.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount END), 0),
			COALESCE(-SUM(CASE WHEN amount < 0 THEN amount END), 0)
		FROM ledger_events WHERE run_id = ?
	`, db.runID).Scan(&credited, &spent)
	return
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
