package waitlist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/drop-waitlist/internal/memstore"
	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/scoring"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

var t0 = time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	st     *memstore.Store
	ranker *Ranker
	drop   model.Drop
}

// newFixture builds a ranker whose coefficients are given; A=B=C=1
// makes every score exactly 1000.
func newFixture(t *testing.T, coef scoring.Coefficients) fixture {
	t.Helper()
	st := memstore.New()
	scorer, err := scoring.NewScorer(coef)
	require.NoError(t, err)
	drop := st.AddDrop(model.Drop{
		Title:            "sneaker",
		Stock:            2,
		ClaimWindowStart: t0.Add(time.Hour),
		ClaimWindowEnd:   t0.Add(2 * time.Hour),
		CreatedAt:        t0,
	})
	return fixture{st: st, ranker: NewRanker(st, scorer), drop: drop}
}

func (f fixture) addUsers(n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = f.st.AddUser(model.User{Email: fmt.Sprintf("u%d@example.com", i), CreatedAt: t0.Add(-24 * time.Hour)}).ID
	}
	return ids
}

func positions(entries []model.WaitlistEntry) map[uint64]int {
	out := make(map[uint64]int, len(entries))
	for _, e := range entries {
		out[e.UserID] = e.Position
	}
	return out
}

func TestRank(t *testing.T) {
	entries := []model.WaitlistEntry{
		{UserID: 1, PriorityScore: 1000, CreatedAt: t0.Add(2 * time.Second)},
		{UserID: 2, PriorityScore: 1005, CreatedAt: t0.Add(3 * time.Second)},
		{UserID: 3, PriorityScore: 1000, CreatedAt: t0.Add(time.Second)},
		{UserID: 5, PriorityScore: 1000, CreatedAt: t0.Add(2 * time.Second)},
		{UserID: 4, PriorityScore: 1000, CreatedAt: t0.Add(2 * time.Second)},
	}
	ranked := Rank(entries)
	var order []uint64
	for i, e := range ranked {
		order = append(order, e.UserID)
		assert.Equal(t, i+1, e.Position)
	}
	assert.Equal(t, []uint64{2, 3, 1, 4, 5}, order)
	assert.Empty(t, Rank(nil))
}

func TestJoinAssignsPositionsInJoinOrderOnTies(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 1})
	users := f.addUsers(3)
	ctx := context.Background()

	for i, uid := range users {
		res, err := f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, int64(1000), res.Entry.PriorityScore)
		assert.Equal(t, i+1, res.Entry.Position)
	}
	assert.Equal(t, map[uint64]int{users[0]: 1, users[1]: 2, users[2]: 3}, positions(f.st.Entries(f.drop.ID)))
}

func TestJoinReranksByScore(t *testing.T) {
	// Score is 1000 + signup latency in ms, so later joins rank higher.
	f := newFixture(t, scoring.Coefficients{A: 1 << 40, B: 1, C: 1})
	users := f.addUsers(2)
	ctx := context.Background()

	_, err := f.ranker.Join(ctx, users[0], f.drop.ID, t0.Add(time.Second))
	require.NoError(t, err)
	res, err := f.ranker.Join(ctx, users[1], f.drop.ID, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entry.Position)
	assert.Equal(t, int64(3000), res.Entry.PriorityScore)

	first, err := f.st.GetEntry(ctx, users[0], f.drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Position)
}

func TestJoinIsIdempotent(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1 << 40, B: 1, C: 1})
	uid := f.addUsers(1)[0]
	ctx := context.Background()

	first, err := f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(time.Second))
	require.NoError(t, err)
	again, err := f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, again.Created)
	assert.Equal(t, first.Entry, again.Entry)
	assert.Len(t, f.st.Entries(f.drop.ID), 1)
}

func TestJoinRapidActionsLowerScore(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 100})
	other := f.st.AddDrop(model.Drop{Stock: 1, ClaimWindowStart: t0, ClaimWindowEnd: t0.Add(time.Hour), CreatedAt: t0})
	uid := f.addUsers(1)[0]
	ctx := context.Background()

	res, err := f.ranker.Join(ctx, uid, other.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Entry.PriorityScore)

	// The join one minute earlier counts as a rapid action.
	res, err = f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(999), res.Entry.PriorityScore)
}

func TestJoinErrors(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 1})
	uid := f.addUsers(1)[0]
	ctx := context.Background()

	_, err := f.ranker.Join(ctx, uid, f.drop.ID, f.drop.ClaimWindowEnd.Add(time.Millisecond))
	assert.ErrorIs(t, err, model.ErrClaimWindowClosed)

	_, err = f.ranker.Join(ctx, uid, 999, t0)
	assert.ErrorIs(t, err, model.ErrDropNotFound)

	_, err = f.ranker.Join(ctx, 999, f.drop.ID, t0)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Empty(t, f.st.Entries(f.drop.ID))

	// Joining exactly at the end of the window is still allowed.
	_, err = f.ranker.Join(ctx, uid, f.drop.ID, f.drop.ClaimWindowEnd)
	assert.NoError(t, err)
}

func TestLeaveRecomputesPositions(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 1})
	users := f.addUsers(3)
	ctx := context.Background()
	for i, uid := range users {
		_, err := f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	left, err := f.ranker.Leave(ctx, users[0], f.drop.ID)
	require.NoError(t, err)
	assert.True(t, left)
	assert.Equal(t, map[uint64]int{users[1]: 1, users[2]: 2}, positions(f.st.Entries(f.drop.ID)))

	left, err = f.ranker.Leave(ctx, users[0], f.drop.ID)
	require.NoError(t, err)
	assert.False(t, left)
}

func TestLeaveUnknownDrop(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 1})
	uid := f.addUsers(1)[0]

	left, err := f.ranker.Leave(context.Background(), uid, 999)
	require.NoError(t, err)
	assert.False(t, left)
}

func TestLeaveWithClaimCode(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 1, B: 1, C: 1})
	uid := f.addUsers(1)[0]
	ctx := context.Background()
	_, err := f.ranker.Join(ctx, uid, f.drop.ID, t0)
	require.NoError(t, err)

	require.NoError(t, f.st.InDropTx(ctx, f.drop.ID, func(tx store.Tx, _ model.Drop) error {
		return tx.InsertClaimCode(ctx, model.ClaimCode{Code: "ABCDEF0123456789", UserID: uid, DropID: f.drop.ID, CreatedAt: t0})
	}))

	_, err = f.ranker.Leave(ctx, uid, f.drop.ID)
	assert.ErrorIs(t, err, model.ErrHasClaimCode)
	assert.Len(t, f.st.Entries(f.drop.ID), 1)
}

func TestConcurrentJoinsKeepDensePositions(t *testing.T) {
	f := newFixture(t, scoring.Coefficients{A: 7, B: 13, C: 3})
	users := f.addUsers(40)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid uint64) {
			defer wg.Done()
			_, err := f.ranker.Join(ctx, uid, f.drop.ID, t0.Add(time.Duration(i)*time.Millisecond))
			assert.NoError(t, err)
		}(i, uid)
	}
	wg.Wait()

	entries := f.st.Entries(f.drop.ID)
	require.Len(t, entries, len(users))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
		if i > 0 {
			prev := entries[i-1]
			assert.True(t, prev.PriorityScore > e.PriorityScore ||
				(prev.PriorityScore == e.PriorityScore && !prev.CreatedAt.After(e.CreatedAt)))
		}
	}
}
