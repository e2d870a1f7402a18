package service

import (
	"errors"
)

// ErrorKind classifies domain errors for callers deciding how to react
type ErrorKind int

const (
	// KindUnknown is an infrastructure failure, not a domain outcome
	KindUnknown ErrorKind = iota
	// KindValidation is a caller error, surfaced immediately
	KindValidation
	// KindConflict is expected under concurrency; the caller may re-query and choose again
	KindConflict
	// KindInvariant means the operation was refused to keep an invariant intact
	KindInvariant
	// KindForbidden means the caller's role does not allow the operation
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvariant:
		return "invariant"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// DomainError is a sentinel outcome of a core operation
type DomainError struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Code: code, Kind: kind, Message: message}
}

// Conflict errors
var (
	ErrTicketUnavailable       = newDomainError(KindConflict, "ticket_unavailable", "ticket is no longer available")
	ErrRequestAlreadyPending   = newDomainError(KindConflict, "request_already_pending", "a settlement request is already pending for this game")
	ErrRequestAlreadyConfirmed = newDomainError(KindConflict, "request_already_confirmed", "settlement request is already confirmed")
	ErrAlreadyLinked           = newDomainError(KindConflict, "already_linked", "user is already linked to a referrer")
	ErrDuplicatePayment        = newDomainError(KindConflict, "duplicate_payment", "payment reference was already used with different parameters")
	ErrCancellationAlreadyOpen = newDomainError(KindConflict, "cancellation_already_open", "a cancellation is already processing for this booking")
)

// Validation errors
var (
	ErrRangeOverlap         = newDomainError(KindValidation, "range_overlap", "book range overlaps an existing book")
	ErrInvalidRange         = newDomainError(KindValidation, "invalid_range", "book range is invalid")
	ErrChannelNotAllowed    = newDomainError(KindValidation, "channel_not_allowed", "ticket is not available through this channel")
	ErrInvalidChannel       = newDomainError(KindValidation, "invalid_channel", "unknown sales channel")
	ErrInvalidBuyer         = newDomainError(KindValidation, "invalid_buyer", "buyer name is required")
	ErrInvalidCode          = newDomainError(KindValidation, "invalid_code", "referral code does not exist")
	ErrSelfReferral         = newDomainError(KindValidation, "self_referral", "users cannot refer themselves")
	ErrReferralTooLate      = newDomainError(KindValidation, "referral_too_late", "referral codes can only be used before the first purchase")
	ErrTicketNotFound       = newDomainError(KindValidation, "ticket_not_found", "ticket not found")
	ErrGameNotFound         = newDomainError(KindValidation, "game_not_found", "game not found")
	ErrRequestNotFound      = newDomainError(KindValidation, "request_not_found", "settlement request not found")
	ErrNoOutstandingTickets = newDomainError(KindValidation, "no_outstanding_tickets", "there are no unsettled online tickets")
	ErrInvalidAmount        = newDomainError(KindValidation, "invalid_amount", "amount must be positive")
	ErrInvalidKey           = newDomainError(KindValidation, "invalid_idempotency_key", "a payment reference or idempotency key is required")
	ErrInvalidUser          = newDomainError(KindValidation, "invalid_user", "a user id is required")
	ErrInvalidGame          = newDomainError(KindValidation, "invalid_game", "game name and a non-negative ticket price are required")
	ErrInvalidStatus        = newDomainError(KindValidation, "invalid_status", "unknown cancellation status")
	ErrInvalidCancellation  = newDomainError(KindValidation, "invalid_cancellation", "booking id and reason are required")
	ErrCancellationNotFound = newDomainError(KindValidation, "cancellation_not_found", "cancellation not found")
)

// Invariant errors
var (
	ErrInsufficientFunds = newDomainError(KindInvariant, "insufficient_funds", "insufficient balance")
	ErrCounterInvariant  = newDomainError(KindInvariant, "counter_invariant", "fortune counter would become negative")
)

// Forbidden errors
var (
	ErrForbidden = newDomainError(KindForbidden, "forbidden", "caller is not allowed to perform this operation")
)

// KindOf returns the kind of a domain error anywhere in err's chain
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable code of a domain error, empty for other errors
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
