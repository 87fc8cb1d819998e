package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

const dropColumns = `d.id, d.title, d.description, d.stock, d.claim_window_start, d.claim_window_end, d.created_at, d.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrop(row rowScanner, extra ...any) (model.Drop, error) {
	var (
		d    model.Drop
		desc sql.NullString
	)
	dest := append([]any{&d.ID, &d.Title, &desc, &d.Stock, &d.ClaimWindowStart, &d.ClaimWindowEnd, &d.CreatedAt, &d.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Drop{}, err
	}
	if desc.Valid {
		d.Description = &desc.String
	}
	return d, nil
}

// getDrop loads a drop by id.  With lock set the row is read FOR UPDATE,
// which is how a transaction takes the drop's exclusive scope.
func getDrop(ctx context.Context, q querier, id uint64, lock bool) (model.Drop, error) {
	query := `SELECT ` + dropColumns + ` FROM drops d WHERE d.id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	d, err := scanDrop(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return model.Drop{}, notFound(err, model.ErrDropNotFound)
	}
	return d, nil
}

var _ store.DropCatalog = (*DropRepo)(nil)

// DropRepo serves the read-only browse queries over drops.  Drop
// creation and editing belong to the admin tooling.
type DropRepo struct {
	db *sql.DB
}

// NewDropRepo returns a new DropRepo bound to the given database.
func NewDropRepo(db *sql.DB) *DropRepo { return &DropRepo{db: db} }

const summarySelect = `SELECT ` + dropColumns + `,
	(SELECT COUNT(*) FROM waitlist_entries w WHERE w.drop_id = d.id),
	(SELECT COUNT(*) FROM claim_codes c WHERE c.drop_id = d.id)
	FROM drops d`

// ListActiveDrops returns drops whose claim window ends after now, newest
// first, together with the total count for pagination.
func (r *DropRepo) ListActiveDrops(ctx context.Context, now time.Time, limit, offset int) ([]model.DropSummary, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drops WHERE claim_window_end > ?`, now).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		summarySelect+` WHERE d.claim_window_end > ? ORDER BY d.created_at DESC, d.id DESC LIMIT ? OFFSET ?`,
		now, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.DropSummary, 0, limit)
	for rows.Next() {
		var s model.DropSummary
		d, err := scanDrop(rows, &s.WaitlistCount, &s.ClaimedCount)
		if err != nil {
			return nil, 0, err
		}
		s.Drop = d
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetDropSummary returns one drop with its live counters.
func (r *DropRepo) GetDropSummary(ctx context.Context, id uint64) (model.DropSummary, error) {
	var s model.DropSummary
	d, err := scanDrop(r.db.QueryRowContext(ctx, summarySelect+` WHERE d.id = ?`, id), &s.WaitlistCount, &s.ClaimedCount)
	if err != nil {
		return model.DropSummary{}, notFound(err, model.ErrDropNotFound)
	}
	s.Drop = d
	return s, nil
}
