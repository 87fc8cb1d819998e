package model

import "time"

// Drop represents a time-boxed, stock-limited release that users can
// register interest in.  Stock is fixed once the drop is created; the
// waitlist and claim logic only ever read it.
//
// Fields:
//  ID               – primary key identifier.
//  Title            – display title.
//  Description      – optional free-form description.
//  Stock            – number of claim codes that can ever be issued.
//  ClaimWindowStart – first instant at which claims are accepted.
//  ClaimWindowEnd   – last instant at which claims are accepted; joins
//                     are rejected after it.
//  CreatedAt        – creation timestamp; the origin for signup latency.
//  UpdatedAt        – last update timestamp.
type Drop struct {
	ID               uint64    // drops.id
	Title            string    // drops.title
	Description      *string   // drops.description (nullable)
	Stock            int       // drops.stock
	ClaimWindowStart time.Time // drops.claim_window_start
	ClaimWindowEnd   time.Time // drops.claim_window_end
	CreatedAt        time.Time // drops.created_at
	UpdatedAt        time.Time // drops.updated_at
}

// WindowOpen reports whether now lies inside the claim window.  Both
// bounds are inclusive.
func (d Drop) WindowOpen(now time.Time) bool {
	return !now.Before(d.ClaimWindowStart) && !now.After(d.ClaimWindowEnd)
}

// WindowClosed reports whether the claim window has already ended.
func (d Drop) WindowClosed(now time.Time) bool {
	return now.After(d.ClaimWindowEnd)
}

// DropSummary is a drop together with the live counters shown when
// browsing.
type DropSummary struct {
	Drop
	WaitlistCount int
	ClaimedCount  int
}
