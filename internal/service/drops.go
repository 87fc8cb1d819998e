// Package service exposes the waitlist and claim operations to the HTTP
// layer.  It owns the clock, wires the ranker and allocator to one
// store, and publishes an audit event for every newly issued code.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/drop-waitlist/internal/claim"
	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/queue"
	"github.com/iliyamo/drop-waitlist/internal/store"
	"github.com/iliyamo/drop-waitlist/internal/waitlist"
)

// EventPublisher delivers claim events.  *queue.Publisher implements it.
type EventPublisher interface {
	PublishClaimIssued(ctx context.Context, ev queue.ClaimIssuedEvent) error
}

// Options configure a DropService.  Store, Catalog, Ranker and Allocator
// are required.
type Options struct {
	Store     store.Store
	Catalog   store.DropCatalog
	Ranker    *waitlist.Ranker
	Allocator *claim.Allocator
	Publisher EventPublisher
	Clock     func() time.Time
	// PublishTimeout bounds the detached publish call.  Zero means 5s.
	PublishTimeout time.Duration
}

// DropService implements join, leave, claim and status for drops.
type DropService struct {
	store          store.Store
	catalog        store.DropCatalog
	ranker         *waitlist.Ranker
	allocator      *claim.Allocator
	publisher      EventPublisher
	clock          func() time.Time
	publishTimeout time.Duration
}

// New constructs a DropService and panics if a required dependency is nil.
func New(o Options) *DropService {
	if o.Store == nil || o.Catalog == nil || o.Ranker == nil || o.Allocator == nil {
		panic("nil dependency passed to service.New")
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
	return &DropService{
		store:          o.Store,
		catalog:        o.Catalog,
		ranker:         o.Ranker,
		allocator:      o.Allocator,
		publisher:      o.Publisher,
		clock:          o.Clock,
		publishTimeout: o.PublishTimeout,
	}
}

// Now returns the service clock truncated to the millisecond precision
// the database stores.
func (s *DropService) Now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// JoinWaitlist adds the user to the drop's waitlist.  A repeated join
// returns the existing entry.
func (s *DropService) JoinWaitlist(ctx context.Context, userID, dropID uint64) (waitlist.JoinResult, error) {
	res, err := s.ranker.Join(ctx, userID, dropID, s.Now())
	if err != nil {
		logFailure("join", userID, dropID, err)
		return waitlist.JoinResult{}, err
	}
	return res, nil
}

// LeaveWaitlist removes the user from the drop's waitlist.  It reports
// whether an entry was removed; leaving a waitlist one is not on is a
// successful no-op.
func (s *DropService) LeaveWaitlist(ctx context.Context, userID, dropID uint64) (bool, error) {
	left, err := s.ranker.Leave(ctx, userID, dropID)
	if err != nil {
		logFailure("leave", userID, dropID, err)
		return false, err
	}
	return left, nil
}

// ClaimDrop issues or returns the user's claim code for the drop.
func (s *DropService) ClaimDrop(ctx context.Context, userID, dropID uint64) (claim.Result, error) {
	res, err := s.allocator.Claim(ctx, userID, dropID, s.Now())
	if err != nil {
		logFailure("claim", userID, dropID, err)
		return claim.Result{}, err
	}
	if res.Created {
		s.publishClaim(ctx, res.Code)
	}
	return res, nil
}

// Status is a user's standing on one drop.  Entry and Code are nil when
// absent.
type Status struct {
	Entry *model.WaitlistEntry
	Code  *model.ClaimCode
}

// GetWaitlistStatus reads the user's entry and claim code without side
// effects.  An unknown drop yields an empty status.
func (s *DropService) GetWaitlistStatus(ctx context.Context, userID, dropID uint64) (Status, error) {
	var st Status
	entry, err := s.store.GetEntry(ctx, userID, dropID)
	switch {
	case err == nil:
		st.Entry = &entry
	case !errors.Is(err, store.ErrNotFound):
		return Status{}, err
	}
	code, err := s.store.GetClaimCode(ctx, userID, dropID)
	switch {
	case err == nil:
		st.Code = &code
	case !errors.Is(err, store.ErrNotFound):
		return Status{}, err
	}
	return st, nil
}

// Page is one page of active drops.
type Page struct {
	Drops      []model.DropSummary
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ListActiveDrops returns the drops whose claim window has not ended,
// newest first.  page starts at 1; limit is clamped to [1,100].
func (s *DropService) ListActiveDrops(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	drops, total, err := s.catalog.ListActiveDrops(ctx, s.Now(), limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Drops:      drops,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetDrop returns one drop with its waitlist and claimed counters.
func (s *DropService) GetDrop(ctx context.Context, dropID uint64) (model.DropSummary, error) {
	return s.catalog.GetDropSummary(ctx, dropID)
}

// publishClaim sends the audit event on a detached context so that a
// cancelled request does not drop it.  Failures are logged only.
func (s *DropService) publishClaim(ctx context.Context, code model.ClaimCode) {
	if s.publisher == nil {
		return
	}
	ev := queue.ClaimIssuedEvent{
		EventID:  uuid.NewString(),
		DropID:   code.DropID,
		UserID:   code.UserID,
		CodeHint: code.Code[max(0, len(code.Code)-4):],
		IssuedAt: code.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if drop, err := s.store.GetDrop(ctx, code.DropID); err == nil {
		ev.DropTitle = drop.Title
		ev.Stock = drop.Stock
	}
	if entry, err := s.store.GetEntry(ctx, code.UserID, code.DropID); err == nil {
		ev.Position = entry.Position
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishClaimIssued(pubCtx, ev); err != nil {
		log.Printf("drops: publish claim.issued failed drop_id=%d user_id=%d: %v", code.DropID, code.UserID, err)
	}
}

// logFailure logs unexpected errors.  Domain outcomes are part of normal
// operation and are not logged.
func logFailure(op string, userID, dropID uint64, err error) {
	if isDomainError(err) || errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("drops: %s failed drop_id=%d user_id=%d: %v", op, dropID, userID, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		model.ErrDropNotFound,
		model.ErrUserNotFound,
		model.ErrClaimWindowClosed,
		model.ErrClaimWindowNotOpen,
		model.ErrNotOnWaitlist,
		model.ErrHasClaimCode,
		model.ErrStockExhausted,
		model.ErrPositionTooHigh,
		model.ErrNotYourTurn,
		model.ErrTransactionConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
