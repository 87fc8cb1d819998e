// Package claim converts waitlist rank into claim codes.  Codes for a
// drop are issued strictly in waitlist order, one at a time, and never
// beyond the drop's stock.
package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

// Allocator issues claim codes under the drop's exclusive transaction.
type Allocator struct {
	store store.Store
	codes CodeGenerator
}

// NewAllocator constructs an Allocator.  A nil generator selects
// RandomCodes.
func NewAllocator(s store.Store, codes CodeGenerator) *Allocator {
	if s == nil {
		panic("nil store passed to NewAllocator")
	}
	if codes == nil {
		codes = RandomCodes{}
	}
	return &Allocator{store: s, codes: codes}
}

// Result is the user's claim code and whether this call created it.
type Result struct {
	Code    model.ClaimCode
	Created bool
}

// Claim issues the user's claim code for the drop, or returns the one
// already issued.  Checks run in this order, all against the same
// snapshot: window open, existing code, waitlist entry, stock left,
// position within stock, position is next in line.
func (a *Allocator) Claim(ctx context.Context, userID, dropID uint64, now time.Time) (Result, error) {
	var res Result
	err := a.store.InDropTx(ctx, dropID, func(tx store.Tx, drop model.Drop) error {
		if !drop.WindowOpen(now) {
			return model.ErrClaimWindowNotOpen
		}
		existing, err := tx.GetClaimCode(ctx, userID, dropID)
		if err == nil {
			res = Result{Code: existing}
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		entry, err := tx.GetEntry(ctx, userID, dropID)
		if errors.Is(err, store.ErrNotFound) {
			return model.ErrNotOnWaitlist
		}
		if err != nil {
			return err
		}

		claimed, err := tx.CountClaimCodes(ctx, dropID)
		if err != nil {
			return err
		}
		if claimed >= drop.Stock {
			return model.ErrStockExhausted
		}
		if entry.Position > drop.Stock {
			return model.ErrPositionTooHigh
		}
		if entry.Position != claimed+1 {
			return model.ErrNotYourTurn
		}

		code, err := mintUnique(ctx, a.codes, tx)
		if err != nil {
			return fmt.Errorf("mint claim code: %w", err)
		}
		cc := model.ClaimCode{
			Code:      code,
			UserID:    userID,
			DropID:    dropID,
			CreatedAt: now,
		}
		if err := tx.InsertClaimCode(ctx, cc); err != nil {
			return err
		}
		res = Result{Code: cc, Created: true}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		// Lost the insert race for the same (user, drop): hand back the
		// winner's code.
		existing, gerr := a.store.GetClaimCode(ctx, userID, dropID)
		if gerr != nil {
			return Result{}, model.ErrTransactionConflict
		}
		return Result{Code: existing}, nil
	case errors.Is(err, store.ErrConflict):
		return Result{}, model.ErrTransactionConflict
	case err != nil:
		return Result{}, err
	}
	return res, nil
}
