package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FortuneCounter tracks online-sold tickets not yet settled for a game
type FortuneCounter struct {
	GameID      int64     `db:"game_id"`
	TicketCount int64     `db:"ticket_count"`
	SalesSeq    int64     `db:"sales_seq"` // Monotonic number of the last online sale
	UpdatedAt   time.Time `db:"updated_at"`
}

// SettlementStatus represents the state of a settlement request
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
)

// FortuneCounterRequest is a settlement request raised by an admin and confirmed by the organizer.
// TicketCount, AmountDue and SnapshotSeq are frozen when the request is created.
type FortuneCounterRequest struct {
	ID          uuid.UUID        `db:"id"`
	GameID      int64            `db:"game_id"`
	TicketCount int64            `db:"ticket_count"`
	AmountDue   decimal.Decimal  `db:"amount_due"`
	SnapshotSeq int64            `db:"snapshot_seq"`
	Status      SettlementStatus `db:"status"`
	RequestedBy string           `db:"requested_by"`
	ConfirmedBy *string          `db:"confirmed_by"`
	CreatedAt   time.Time        `db:"created_at"`
	ConfirmedAt *time.Time       `db:"confirmed_at"`
}

// IsPending reports whether the request still awaits confirmation
func (r *FortuneCounterRequest) IsPending() bool {
	return r.Status == SettlementStatusPending
}

// FortuneCounterReset is the append-only audit record of a confirmed settlement
type FortuneCounterReset struct {
	ID          int64     `db:"id"`
	GameID      int64     `db:"game_id"`
	RequestID   uuid.UUID `db:"request_id"`
	ResetDate   time.Time `db:"reset_date"`
	TicketCount int64     `db:"ticket_count"`
}

// SettlementResult is the outcome of confirming a settlement request
type SettlementResult struct {
	Request  *FortuneCounterRequest
	Reset    *FortuneCounterReset
	Counter  *FortuneCounter
	Replayed bool // True when the request had already been confirmed
}
