// Package model defines the entities shared by the waitlist and claim
// components together with the sentinel errors that describe their
// outcomes.  Handlers translate these errors into HTTP responses with
// errors.Is; nothing below the handler layer formats user messages.
package model

import "errors"

// Not-found errors are fatal to the request and never retried.
var (
	ErrDropNotFound = errors.New("drop not found")
	ErrUserNotFound = errors.New("user not found")
)

// Precondition errors are the definitive outcome of an operation.
var (
	// ErrClaimWindowClosed is returned by join once the claim window
	// has ended.
	ErrClaimWindowClosed = errors.New("claim window closed")
	// ErrClaimWindowNotOpen is returned by claim outside the window.
	ErrClaimWindowNotOpen = errors.New("claim window not open")
	ErrNotOnWaitlist      = errors.New("not on waitlist")
	// ErrHasClaimCode blocks leaving a waitlist once a code was issued.
	ErrHasClaimCode    = errors.New("user already holds a claim code")
	ErrStockExhausted  = errors.New("stock exhausted")
	ErrPositionTooHigh = errors.New("waitlist position exceeds stock")
	// ErrNotYourTurn means users ranked ahead have not claimed yet.
	// Callers may retry later.
	ErrNotYourTurn = errors.New("not your turn")
)

// ErrTransactionConflict is transient: the store detected a concurrent
// write and the caller should retry the whole operation.
var ErrTransactionConflict = errors.New("transaction conflict")
