package models

import (
	"time"
)

// Book is a named, contiguous range of ticket numbers within a game
type Book struct {
	ID                int64     `db:"id"`
	GameID            int64     `db:"game_id"`
	BookName          string    `db:"book_name"`
	FirstTicketNumber int64     `db:"first_ticket_number"`
	LastTicketNumber  int64     `db:"last_ticket_number"`
	IsOnlineAvailable bool      `db:"is_online_available"`
	CreatedAt         time.Time `db:"created_at"`
}

// Size returns the number of tickets in the book's range
func (b *Book) Size() int64 {
	return b.LastTicketNumber - b.FirstTicketNumber + 1
}

// Contains reports whether number falls inside the book's range
func (b *Book) Contains(number int64) bool {
	return number >= b.FirstTicketNumber && number <= b.LastTicketNumber
}

// Overlaps reports whether the two inclusive ranges share at least one number.
// Adjacent ranges such as [1,100] and [101,200] do not overlap.
func (b *Book) Overlaps(other *Book) bool {
	return b.FirstTicketNumber <= other.LastTicketNumber && other.FirstTicketNumber <= b.LastTicketNumber
}
