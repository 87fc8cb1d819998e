package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

func getClaimCode(ctx context.Context, q querier, userID, dropID uint64) (model.ClaimCode, error) {
	var (
		c      model.ClaimCode
		usedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		`SELECT code, user_id, drop_id, created_at, used, used_at FROM claim_codes WHERE user_id = ? AND drop_id = ?`,
		userID, dropID).Scan(&c.Code, &c.UserID, &c.DropID, &c.CreatedAt, &c.Used, &usedAt)
	if err != nil {
		return model.ClaimCode{}, notFound(err, store.ErrNotFound)
	}
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}
	return c, nil
}

func countClaimCodes(ctx context.Context, q querier, dropID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_codes WHERE drop_id = ?`, dropID).Scan(&n)
	return n, classify(err)
}

func countClaimsSince(ctx context.Context, q querier, userID uint64, since time.Time) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_codes WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&n)
	return n, classify(err)
}

func codeExists(ctx context.Context, q querier, code string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM claim_codes WHERE code = ? LIMIT 1`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

func insertClaimCode(ctx context.Context, q querier, c model.ClaimCode) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO claim_codes (code, user_id, drop_id, created_at, used) VALUES (?, ?, ?, ?, FALSE)`,
		c.Code, c.UserID, c.DropID, c.CreatedAt)
	return classify(err)
}
