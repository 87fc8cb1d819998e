package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/drop-waitlist/internal/claim"
	"github.com/iliyamo/drop-waitlist/internal/memstore"
	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/queue"
	"github.com/iliyamo/drop-waitlist/internal/scoring"
	"github.com/iliyamo/drop-waitlist/internal/waitlist"
)

var t0 = time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ClaimIssuedEvent
	err    error
}

func (p *recordingPublisher) PublishClaimIssued(_ context.Context, ev queue.ClaimIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T, pub EventPublisher) (*DropService, *memstore.Store, *clock) {
	t.Helper()
	st := memstore.New()
	scorer, err := scoring.NewScorer(scoring.Coefficients{A: 1, B: 1, C: 1})
	require.NoError(t, err)
	clk := &clock{now: t0}
	svc := New(Options{
		Store:     st,
		Catalog:   st,
		Ranker:    waitlist.NewRanker(st, scorer),
		Allocator: claim.NewAllocator(st, nil),
		Publisher: pub,
		Clock:     clk.Now,
	})
	return svc, st, clk
}

func addDrop(st *memstore.Store, stock int) model.Drop {
	return st.AddDrop(model.Drop{
		Title:            "hoodie",
		Stock:            stock,
		ClaimWindowStart: t0.Add(time.Hour),
		ClaimWindowEnd:   t0.Add(2 * time.Hour),
		CreatedAt:        t0,
	})
}

func TestJoinClaimPublishesOnce(t *testing.T) {
	pub := &recordingPublisher{}
	svc, st, clk := newService(t, pub)
	drop := addDrop(st, 1)
	u := st.AddUser(model.User{Email: "a@example.com", CreatedAt: t0})
	ctx := context.Background()

	res, err := svc.JoinWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entry.Position)

	_, err = svc.ClaimDrop(ctx, u.ID, drop.ID)
	assert.ErrorIs(t, err, model.ErrClaimWindowNotOpen)

	clk.now = t0.Add(90 * time.Minute)
	first, err := svc.ClaimDrop(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	again, err := svc.ClaimDrop(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.False(t, again.Created)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, drop.ID, ev.DropID)
	assert.Equal(t, u.ID, ev.UserID)
	assert.Equal(t, "hoodie", ev.DropTitle)
	assert.Equal(t, 1, ev.Position)
	assert.Equal(t, 1, ev.Stock)
	assert.Equal(t, first.Code.Code[12:], ev.CodeHint)
	assert.NotEmpty(t, ev.EventID)
}

func TestClaimSucceedsWhenPublishFails(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, st, clk := newService(t, pub)
	drop := addDrop(st, 1)
	u := st.AddUser(model.User{CreatedAt: t0})
	ctx := context.Background()
	_, err := svc.JoinWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)

	clk.now = t0.Add(90 * time.Minute)
	res, err := svc.ClaimDrop(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, pub.events, 1)
}

func TestNowTruncatesToMillisecond(t *testing.T) {
	svc, _, clk := newService(t, nil)
	clk.now = time.Date(2025, 1, 1, 0, 0, 0, 123456789, time.FixedZone("X", 3600))
	got := svc.Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123000000, got.Nanosecond())
}

func TestGetWaitlistStatus(t *testing.T) {
	svc, st, clk := newService(t, nil)
	drop := addDrop(st, 1)
	u := st.AddUser(model.User{CreatedAt: t0})
	ctx := context.Background()

	st0, err := svc.GetWaitlistStatus(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.Nil(t, st0.Entry)
	assert.Nil(t, st0.Code)

	_, err = svc.JoinWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	clk.now = t0.Add(90 * time.Minute)
	_, err = svc.ClaimDrop(ctx, u.ID, drop.ID)
	require.NoError(t, err)

	st1, err := svc.GetWaitlistStatus(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	require.NotNil(t, st1.Entry)
	require.NotNil(t, st1.Code)
	assert.Equal(t, 1, st1.Entry.Position)

	st2, err := svc.GetWaitlistStatus(ctx, u.ID, 999)
	require.NoError(t, err)
	assert.Nil(t, st2.Entry)
	assert.Nil(t, st2.Code)
}

func TestLeaveWaitlist(t *testing.T) {
	svc, st, _ := newService(t, nil)
	drop := addDrop(st, 1)
	u := st.AddUser(model.User{CreatedAt: t0})
	ctx := context.Background()

	left, err := svc.LeaveWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.False(t, left)

	_, err = svc.JoinWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	left, err = svc.LeaveWaitlist(ctx, u.ID, drop.ID)
	require.NoError(t, err)
	assert.True(t, left)
}

func TestListActiveDropsPagination(t *testing.T) {
	svc, st, _ := newService(t, nil)
	for i := 0; i < 25; i++ {
		st.AddDrop(model.Drop{
			Title:          fmt.Sprintf("d%d", i),
			ClaimWindowEnd: t0.Add(time.Hour),
			CreatedAt:      t0.Add(time.Duration(i) * time.Second),
		})
	}
	ctx := context.Background()

	p, err := svc.ListActiveDrops(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, "d24", p.Drops[0].Title)

	p, err = svc.ListActiveDrops(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, p.Drops, 5)

	p, err = svc.ListActiveDrops(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Limit)
	assert.Len(t, p.Drops, 25)
}
