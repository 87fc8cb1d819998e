// Package queue defines message payloads exchanged over the message broker.
package queue

// ClaimIssuedQueue is the durable queue claim events are routed to.
const ClaimIssuedQueue = "claim.issued"

// ClaimIssuedEvent is published once per newly created claim code.  The
// code itself is a redemption secret, so only its last four characters
// travel over the broker.
type ClaimIssuedEvent struct {
	EventID   string `json:"event_id"`
	DropID    uint64 `json:"drop_id"`
	DropTitle string `json:"drop_title"`
	UserID    uint64 `json:"user_id"`
	Position  int    `json:"position"`
	Stock     int    `json:"stock"`
	CodeHint  string `json:"code_hint"`
	IssuedAt  string `json:"issued_at"`
}
