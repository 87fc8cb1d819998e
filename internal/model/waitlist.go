package model

import "time"

// WaitlistEntry is a user's ranked registration of interest in a drop.
// The pair (UserID, DropID) is unique.  For a fixed drop the positions
// always form the dense sequence 1..N ordered by PriorityScore
// descending and CreatedAt ascending.
//
// Fields:
//  UserID        – user who joined.
//  DropID        – drop joined.
//  Position      – dense 1-based rank within the drop.
//  PriorityScore – score computed once at join time.
//  CreatedAt     – join timestamp; breaks score ties.
type WaitlistEntry struct {
	UserID        uint64    // waitlist_entries.user_id
	DropID        uint64    // waitlist_entries.drop_id
	Position      int       // waitlist_entries.position
	PriorityScore int64     // waitlist_entries.priority_score
	CreatedAt     time.Time // waitlist_entries.created_at
}

// ClaimCode is the single redemption token issued to a user for a drop.
// At most one exists per (UserID, DropID) and Code is globally unique.
// Only Used and UsedAt change after creation, and redemption happens
// outside this service.
//
// Fields:
//  Code      – opaque token, 16 upper-case hex characters.
//  UserID    – owner of the code.
//  DropID    – drop the code was issued for.
//  CreatedAt – issue timestamp.
//  Used      – whether the code has been redeemed.
//  UsedAt    – redemption timestamp (nil until used).
type ClaimCode struct {
	Code      string     // claim_codes.code
	UserID    uint64     // claim_codes.user_id
	DropID    uint64     // claim_codes.drop_id
	CreatedAt time.Time  // claim_codes.created_at
	Used      bool       // claim_codes.used
	UsedAt    *time.Time // claim_codes.used_at (nullable)
}
