package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

// Store implements store.Store on MySQL (InnoDB).  A drop's exclusive
// scope is its row in `drops`, locked with SELECT ... FOR UPDATE at the
// start of every transaction; joins, leaves and claims on the same drop
// therefore queue behind each other while other drops proceed in
// parallel.
type Store struct {
	reader
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{reader: reader{q: db}, db: db}
}

// InDropTx implements store.Store.  The transaction runs at READ
// COMMITTED: once the drop row lock is held no other writer can touch
// the drop's entries or codes, so every subsequent read is current.
func (s *Store) InDropTx(ctx context.Context, dropID uint64, fn func(tx store.Tx, drop model.Drop) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	drop, err := getDrop(ctx, tx, dropID, true)
	if err != nil {
		return err
	}
	if err := fn(&sqlTx{reader: reader{q: tx}}, drop); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// reader implements store.Reader over any querier.
type reader struct {
	q querier
}

func (r reader) GetDrop(ctx context.Context, dropID uint64) (model.Drop, error) {
	return getDrop(ctx, r.q, dropID, false)
}

func (r reader) GetUser(ctx context.Context, userID uint64) (model.User, error) {
	u, err := getUserByID(ctx, r.q, userID)
	if err != nil {
		return model.User{}, notFound(err, model.ErrUserNotFound)
	}
	return u, nil
}

func (r reader) GetEntry(ctx context.Context, userID, dropID uint64) (model.WaitlistEntry, error) {
	return getEntry(ctx, r.q, userID, dropID)
}

func (r reader) GetClaimCode(ctx context.Context, userID, dropID uint64) (model.ClaimCode, error) {
	return getClaimCode(ctx, r.q, userID, dropID)
}

func (r reader) CountJoinsSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	return countJoinsSince(ctx, r.q, userID, since)
}

func (r reader) CountClaimsSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	return countClaimsSince(ctx, r.q, userID, since)
}

// sqlTx implements store.Tx on an open *sql.Tx.
type sqlTx struct {
	reader
}

func (t *sqlTx) ListEntries(ctx context.Context, dropID uint64) ([]model.WaitlistEntry, error) {
	return listEntries(ctx, t.q, dropID)
}

func (t *sqlTx) InsertEntry(ctx context.Context, e model.WaitlistEntry) error {
	return insertEntry(ctx, t.q, e)
}

func (t *sqlTx) UpdatePosition(ctx context.Context, userID, dropID uint64, position int) error {
	return updatePosition(ctx, t.q, userID, dropID, position)
}

func (t *sqlTx) DeleteEntry(ctx context.Context, userID, dropID uint64) error {
	return deleteEntry(ctx, t.q, userID, dropID)
}

func (t *sqlTx) CountClaimCodes(ctx context.Context, dropID uint64) (int, error) {
	return countClaimCodes(ctx, t.q, dropID)
}

func (t *sqlTx) CodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(ctx, t.q, code)
}

func (t *sqlTx) InsertClaimCode(ctx context.Context, c model.ClaimCode) error {
	return insertClaimCode(ctx, t.q, c)
}
