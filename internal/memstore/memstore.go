// Package memstore is an in-memory implementation of the store ports.
// Each drop has its own lock; a transaction works on a private copy of
// the drop's waitlist and its new claim codes, and publishes them
// atomically on commit, so other readers never see partial work.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

type userDrop struct {
	userID uint64
	dropID uint64
}

// Store keeps all state in maps guarded by mu.  It is safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	drops    map[uint64]model.Drop
	users    map[uint64]model.User
	entries  map[uint64]map[uint64]model.WaitlistEntry // dropID -> userID -> entry
	codes    map[string]model.ClaimCode
	byHolder map[userDrop]string

	locksMu sync.Mutex
	locks   map[uint64]chan struct{}

	nextDropID uint64
	nextUserID uint64
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.DropCatalog = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		drops:    make(map[uint64]model.Drop),
		users:    make(map[uint64]model.User),
		entries:  make(map[uint64]map[uint64]model.WaitlistEntry),
		codes:    make(map[string]model.ClaimCode),
		byHolder: make(map[userDrop]string),
		locks:    make(map[uint64]chan struct{}),
	}
}

// AddDrop stores d, assigning an ID when d.ID is zero, and returns it.
func (s *Store) AddDrop(d model.Drop) model.Drop {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.nextDropID++
		d.ID = s.nextDropID
	} else if d.ID > s.nextDropID {
		s.nextDropID = d.ID
	}
	s.drops[d.ID] = d
	return d
}

// AddUser stores u, assigning an ID when u.ID is zero, and returns it.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUserID++
		u.ID = s.nextUserID
	} else if u.ID > s.nextUserID {
		s.nextUserID = u.ID
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.users[u.ID] = u
	return u
}

// Entries returns the drop's waitlist ordered by position.
func (s *Store) Entries(dropID uint64) []model.WaitlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WaitlistEntry, 0, len(s.entries[dropID]))
	for _, e := range s.entries[dropID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// ClaimCodes returns every code issued for the drop ordered by issue time.
func (s *Store) ClaimCodes(dropID uint64) []model.ClaimCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ClaimCode
	for _, c := range s.codes {
		if c.DropID == dropID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) GetDrop(_ context.Context, dropID uint64) (model.Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drops[dropID]
	if !ok {
		return model.Drop{}, model.ErrDropNotFound
	}
	return d, nil
}

func (s *Store) GetUser(_ context.Context, userID uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetEntry(_ context.Context, userID, dropID uint64) (model.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[dropID][userID]
	if !ok {
		return model.WaitlistEntry{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetClaimCode(_ context.Context, userID, dropID uint64) (model.ClaimCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.byHolder[userDrop{userID, dropID}]
	if !ok {
		return model.ClaimCode{}, store.ErrNotFound
	}
	return s.codes[code], nil
}

func (s *Store) CountJoinsSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countJoinsLocked(userID, since, 0, nil), nil
}

func (s *Store) CountClaimsSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.codes {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// countJoinsLocked counts the user's entries created at or after since.
// When override is non-nil it replaces the stored entries of dropID.
func (s *Store) countJoinsLocked(userID uint64, since time.Time, dropID uint64, override map[uint64]model.WaitlistEntry) int {
	n := 0
	for id, byUser := range s.entries {
		if override != nil && id == dropID {
			continue
		}
		if e, ok := byUser[userID]; ok && !e.CreatedAt.Before(since) {
			n++
		}
	}
	if e, ok := override[userID]; ok && !e.CreatedAt.Before(since) {
		n++
	}
	return n
}

// ListActiveDrops implements store.DropCatalog.
func (s *Store) ListActiveDrops(_ context.Context, now time.Time, limit, offset int) ([]model.DropSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []model.DropSummary
	for _, d := range s.drops {
		if d.ClaimWindowEnd.After(now) {
			active = append(active, s.summaryLocked(d))
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID > active[j].ID
	})
	total := len(active)
	if offset >= total {
		return []model.DropSummary{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return active[offset:end], total, nil
}

// GetDropSummary implements store.DropCatalog.
func (s *Store) GetDropSummary(_ context.Context, dropID uint64) (model.DropSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drops[dropID]
	if !ok {
		return model.DropSummary{}, model.ErrDropNotFound
	}
	return s.summaryLocked(d), nil
}

func (s *Store) summaryLocked(d model.Drop) model.DropSummary {
	claimed := 0
	for _, c := range s.codes {
		if c.DropID == d.ID {
			claimed++
		}
	}
	return model.DropSummary{Drop: d, WaitlistCount: len(s.entries[d.ID]), ClaimedCount: claimed}
}
