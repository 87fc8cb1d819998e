package repository

import (
	"context"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

const entryColumns = `user_id, drop_id, position, priority_score, created_at`

func getEntry(ctx context.Context, q querier, userID, dropID uint64) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries WHERE user_id = ? AND drop_id = ?`,
		userID, dropID).Scan(&e.UserID, &e.DropID, &e.Position, &e.PriorityScore, &e.CreatedAt)
	if err != nil {
		return model.WaitlistEntry{}, notFound(err, store.ErrNotFound)
	}
	return e, nil
}

func listEntries(ctx context.Context, q querier, dropID uint64) ([]model.WaitlistEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries WHERE drop_id = ?`, dropID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.UserID, &e.DropID, &e.Position, &e.PriorityScore, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, classify(rows.Err())
}

func insertEntry(ctx context.Context, q querier, e model.WaitlistEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO waitlist_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.DropID, e.Position, e.PriorityScore, e.CreatedAt)
	return classify(err)
}

func updatePosition(ctx context.Context, q querier, userID, dropID uint64, position int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = ? WHERE user_id = ? AND drop_id = ?`,
		position, userID, dropID)
	return classify(err)
}

func deleteEntry(ctx context.Context, q querier, userID, dropID uint64) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE user_id = ? AND drop_id = ?`, userID, dropID)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func countJoinsSince(ctx context.Context, q querier, userID uint64, since time.Time) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&n)
	return n, classify(err)
}
