package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game is a raffle whose tickets are sold across one or more books
type Game struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	TicketPrice decimal.Decimal `db:"ticket_price"`
	OrganizerID string          `db:"organizer_id"`
	Version     int64           `db:"version"` // Bumped on every purchase and settlement transition
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
