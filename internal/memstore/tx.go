package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

// lockDrop acquires the drop's exclusive scope or gives up when ctx ends.
func (s *Store) lockDrop(ctx context.Context, dropID uint64) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[dropID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[dropID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InDropTx implements store.Store.
func (s *Store) InDropTx(ctx context.Context, dropID uint64, fn func(tx store.Tx, drop model.Drop) error) error {
	unlock, err := s.lockDrop(ctx, dropID)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.RLock()
	drop, ok := s.drops[dropID]
	entries := make(map[uint64]model.WaitlistEntry, len(s.entries[dropID]))
	for k, v := range s.entries[dropID] {
		entries[k] = v
	}
	s.mu.RUnlock()
	if !ok {
		return model.ErrDropNotFound
	}

	t := &tx{s: s, dropID: dropID, entries: entries}
	if err := fn(t, drop); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

// tx holds the private copy of one drop's waitlist plus the claim codes
// inserted so far.
type tx struct {
	s        *Store
	dropID   uint64
	entries  map[uint64]model.WaitlistEntry
	newCodes []model.ClaimCode
}

func (t *tx) checkDrop(dropID uint64) error {
	if dropID != t.dropID {
		return fmt.Errorf("memstore: drop %d accessed inside transaction of drop %d", dropID, t.dropID)
	}
	return nil
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.newCodes {
		if _, taken := t.s.codes[c.Code]; taken {
			return store.ErrDuplicate
		}
		if _, taken := t.s.byHolder[userDrop{c.UserID, c.DropID}]; taken {
			return store.ErrDuplicate
		}
	}
	t.s.entries[t.dropID] = t.entries
	for _, c := range t.newCodes {
		t.s.codes[c.Code] = c
		t.s.byHolder[userDrop{c.UserID, c.DropID}] = c.Code
	}
	return nil
}

func (t *tx) GetDrop(ctx context.Context, dropID uint64) (model.Drop, error) {
	return t.s.GetDrop(ctx, dropID)
}

func (t *tx) GetUser(ctx context.Context, userID uint64) (model.User, error) {
	return t.s.GetUser(ctx, userID)
}

func (t *tx) GetEntry(ctx context.Context, userID, dropID uint64) (model.WaitlistEntry, error) {
	if dropID != t.dropID {
		return t.s.GetEntry(ctx, userID, dropID)
	}
	e, ok := t.entries[userID]
	if !ok {
		return model.WaitlistEntry{}, store.ErrNotFound
	}
	return e, nil
}

func (t *tx) GetClaimCode(ctx context.Context, userID, dropID uint64) (model.ClaimCode, error) {
	for _, c := range t.newCodes {
		if c.UserID == userID && c.DropID == dropID {
			return c, nil
		}
	}
	return t.s.GetClaimCode(ctx, userID, dropID)
}

func (t *tx) CountJoinsSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.countJoinsLocked(userID, since, t.dropID, t.entries), nil
}

func (t *tx) CountClaimsSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	n, err := t.s.CountClaimsSince(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	for _, c := range t.newCodes {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListEntries(_ context.Context, dropID uint64) ([]model.WaitlistEntry, error) {
	if err := t.checkDrop(dropID); err != nil {
		return nil, err
	}
	out := make([]model.WaitlistEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out, nil
}

func (t *tx) InsertEntry(_ context.Context, e model.WaitlistEntry) error {
	if err := t.checkDrop(e.DropID); err != nil {
		return err
	}
	if _, ok := t.entries[e.UserID]; ok {
		return store.ErrDuplicate
	}
	t.entries[e.UserID] = e
	return nil
}

func (t *tx) UpdatePosition(_ context.Context, userID, dropID uint64, position int) error {
	if err := t.checkDrop(dropID); err != nil {
		return err
	}
	e, ok := t.entries[userID]
	if !ok {
		return store.ErrNotFound
	}
	e.Position = position
	t.entries[userID] = e
	return nil
}

func (t *tx) DeleteEntry(_ context.Context, userID, dropID uint64) error {
	if err := t.checkDrop(dropID); err != nil {
		return err
	}
	if _, ok := t.entries[userID]; !ok {
		return store.ErrNotFound
	}
	delete(t.entries, userID)
	return nil
}

func (t *tx) CountClaimCodes(_ context.Context, dropID uint64) (int, error) {
	if err := t.checkDrop(dropID); err != nil {
		return 0, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n := len(t.newCodes)
	for _, c := range t.s.codes {
		if c.DropID == dropID {
			n++
		}
	}
	return n, nil
}

func (t *tx) CodeExists(_ context.Context, code string) (bool, error) {
	for _, c := range t.newCodes {
		if c.Code == code {
			return true, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.codes[code]
	return ok, nil
}

func (t *tx) InsertClaimCode(_ context.Context, c model.ClaimCode) error {
	if err := t.checkDrop(c.DropID); err != nil {
		return err
	}
	for _, nc := range t.newCodes {
		if nc.Code == c.Code || nc.UserID == c.UserID {
			return store.ErrDuplicate
		}
	}
	t.s.mu.RLock()
	_, codeTaken := t.s.codes[c.Code]
	_, holderTaken := t.s.byHolder[userDrop{c.UserID, c.DropID}]
	t.s.mu.RUnlock()
	if codeTaken || holderTaken {
		return store.ErrDuplicate
	}
	t.newCodes = append(t.newCodes, c)
	return nil
}
