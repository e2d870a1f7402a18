package models

import (
	"time"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusAvailable   TicketStatus = "available"
	TicketStatusSoldOnline  TicketStatus = "sold_online"
	TicketStatusSoldOffline TicketStatus = "sold_offline"
	TicketStatusReserved    TicketStatus = "reserved"
	TicketStatusPaidSettled TicketStatus = "paid_settled"
)

// Channel is the sales channel a purchase arrives through
type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelOffline Channel = "offline"
)

// IsValid reports whether the channel is a known sales channel
func (c Channel) IsValid() bool {
	return c == ChannelOnline || c == ChannelOffline
}

// SoldStatus returns the status a ticket takes when sold through this channel
func (c Channel) SoldStatus() TicketStatus {
	if c == ChannelOnline {
		return TicketStatusSoldOnline
	}
	return TicketStatusSoldOffline
}

// BuyerInfo holds the contact details stamped onto a sold ticket
type BuyerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Ticket is one sellable unit identified by (game, number)
type Ticket struct {
	ID               int64        `db:"id"`
	GameID           int64        `db:"game_id"`
	BookID           int64        `db:"book_id"`
	TicketNumber     int64        `db:"ticket_number"`
	Status           TicketStatus `db:"status"`
	BookedByName     *string      `db:"booked_by_name"`
	BookedByPhone    *string      `db:"booked_by_phone"`
	BookedByEmail    *string      `db:"booked_by_email"`
	BookedByAddress  *string      `db:"booked_by_address"`
	BookedByIdentity *string      `db:"booked_by_identity"`
	BookedAt         *time.Time   `db:"booked_at"`
	SaleSeq          *int64       `db:"sale_seq"` // Position in the game's online sales order
	SettledAt        *time.Time   `db:"settled_at"`

	OnlineAvailable bool `db:"-"` // Populated from the owning book
}

// IsAvailable reports whether the ticket can still be purchased
func (t *Ticket) IsAvailable() bool {
	return t.Status == TicketStatusAvailable
}
