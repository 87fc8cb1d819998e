// Package waitlist maintains the ranked waitlist of each drop.  Joins
// and leaves run inside the drop's exclusive transaction and finish by
// recomputing every position, so readers never observe gaps or
// duplicates.
package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/scoring"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

// Ranker implements join and leave for waitlists.
type Ranker struct {
	store  store.Store
	scorer *scoring.Scorer
}

// NewRanker constructs a Ranker.  Both dependencies must be non-nil.
func NewRanker(s store.Store, scorer *scoring.Scorer) *Ranker {
	if s == nil || scorer == nil {
		panic("nil dependency passed to NewRanker")
	}
	return &Ranker{store: s, scorer: scorer}
}

// JoinResult is the entry after a join and whether this call created it.
type JoinResult struct {
	Entry   model.WaitlistEntry
	Created bool
}

// Join adds the user to the drop's waitlist.  Joining twice returns the
// existing entry unchanged.
func (r *Ranker) Join(ctx context.Context, userID, dropID uint64, now time.Time) (JoinResult, error) {
	var res JoinResult
	err := r.store.InDropTx(ctx, dropID, func(tx store.Tx, drop model.Drop) error {
		if drop.WindowClosed(now) {
			return model.ErrClaimWindowClosed
		}
		existing, err := tx.GetEntry(ctx, userID, dropID)
		if err == nil {
			res = JoinResult{Entry: existing}
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		score, err := r.scorer.Score(ctx, tx, user, drop, now)
		if err != nil {
			return err
		}
		if err := tx.InsertEntry(ctx, model.WaitlistEntry{
			UserID:        userID,
			DropID:        dropID,
			Position:      0,
			PriorityScore: score,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		ranked, err := Recompute(ctx, tx, dropID)
		if err != nil {
			return err
		}
		for _, e := range ranked {
			if e.UserID == userID {
				res = JoinResult{Entry: e, Created: true}
				break
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		// A concurrent join for the same user won the insert.
		entry, gerr := r.store.GetEntry(ctx, userID, dropID)
		if gerr != nil {
			return JoinResult{}, model.ErrTransactionConflict
		}
		return JoinResult{Entry: entry}, nil
	}
	if errors.Is(err, store.ErrConflict) {
		return JoinResult{}, model.ErrTransactionConflict
	}
	if err != nil {
		return JoinResult{}, err
	}
	return res, nil
}

// Leave removes the user from the drop's waitlist and re-ranks the
// remaining entries.  It reports false without error when the user was
// not on the waitlist, which includes a drop that does not exist.  Users
// holding a claim code cannot leave.
func (r *Ranker) Leave(ctx context.Context, userID, dropID uint64) (bool, error) {
	left := false
	err := r.store.InDropTx(ctx, dropID, func(tx store.Tx, _ model.Drop) error {
		if _, err := tx.GetEntry(ctx, userID, dropID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if _, err := tx.GetClaimCode(ctx, userID, dropID); err == nil {
			return model.ErrHasClaimCode
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.DeleteEntry(ctx, userID, dropID); err != nil {
			return err
		}
		if _, err := Recompute(ctx, tx, dropID); err != nil {
			return err
		}
		left = true
		return nil
	})
	switch {
	case errors.Is(err, model.ErrDropNotFound):
		return false, nil
	case errors.Is(err, store.ErrConflict):
		return false, model.ErrTransactionConflict
	case err != nil:
		return false, err
	}
	return left, nil
}
