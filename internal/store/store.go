// Package store declares the persistence ports used by the waitlist and
// claim components.  Implementations live in internal/repository (MySQL)
// and internal/memstore (in-memory).  Every read-modify-write on a drop
// happens inside InDropTx, which holds an exclusive scope for that drop
// only; different drops never block each other.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
)

// ErrNotFound is returned by lookups that find no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("store: duplicate key")

// ErrConflict is returned when the engine aborted a transaction because
// of a concurrent write (deadlock, lock wait timeout, serialization
// failure).  It is always safe to retry the whole transaction.
var ErrConflict = errors.New("store: transaction conflict")

// Reader exposes the read accessors available both inside and outside
// a transaction.  GetDrop and GetUser report a missing row as
// model.ErrDropNotFound and model.ErrUserNotFound; GetEntry and
// GetClaimCode report it as ErrNotFound.
type Reader interface {
	GetDrop(ctx context.Context, dropID uint64) (model.Drop, error)
	GetUser(ctx context.Context, userID uint64) (model.User, error)
	GetEntry(ctx context.Context, userID, dropID uint64) (model.WaitlistEntry, error)
	GetClaimCode(ctx context.Context, userID, dropID uint64) (model.ClaimCode, error)

	// CountJoinsSince and CountClaimsSince count rows created by the user
	// at or after since, across all drops.
	CountJoinsSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	CountClaimsSince(ctx context.Context, userID uint64, since time.Time) (int, error)
}

// Tx is the transactional view handed to InDropTx callbacks.
type Tx interface {
	Reader

	// ListEntries returns every waitlist entry of the drop in no
	// particular order.
	ListEntries(ctx context.Context, dropID uint64) ([]model.WaitlistEntry, error)
	InsertEntry(ctx context.Context, e model.WaitlistEntry) error
	UpdatePosition(ctx context.Context, userID, dropID uint64, position int) error
	DeleteEntry(ctx context.Context, userID, dropID uint64) error

	CountClaimCodes(ctx context.Context, dropID uint64) (int, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	InsertClaimCode(ctx context.Context, c model.ClaimCode) error
}

// Store runs transactions and serves non-locking reads.
type Store interface {
	Reader

	// InDropTx runs fn in a single atomic unit holding the exclusive
	// scope of dropID.  If dropID does not exist fn is not called and
	// model.ErrDropNotFound is returned.  Any error returned by fn rolls
	// the unit back and is returned unchanged; so is context
	// cancellation.
	InDropTx(ctx context.Context, dropID uint64, fn func(tx Tx, drop model.Drop) error) error
}

// DropCatalog serves the browse endpoints.
type DropCatalog interface {
	// ListActiveDrops returns drops whose claim window ends after now,
	// newest first, and the total number of such drops.
	ListActiveDrops(ctx context.Context, now time.Time, limit, offset int) ([]model.DropSummary, int, error)
	GetDropSummary(ctx context.Context, dropID uint64) (model.DropSummary, error)
}
