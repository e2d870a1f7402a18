package models

import (
	"time"

	"github.com/google/uuid"
)

// CancellationStatus represents the processing state of a cancellation
type CancellationStatus string

const (
	CancellationStatusProcessing CancellationStatus = "processing"
	CancellationStatusCancelled  CancellationStatus = "cancelled"
)

// IsValid reports whether the status is a known cancellation status
func (s CancellationStatus) IsValid() bool {
	return s == CancellationStatusProcessing || s == CancellationStatusCancelled
}

// BookingCancellation is a cancellation request raised against a confirmed booking
type BookingCancellation struct {
	ID        uuid.UUID          `db:"id"`
	BookingID string             `db:"booking_id"`
	Reason    string             `db:"reason"`
	Details   *string            `db:"details"`
	Status    CancellationStatus `db:"status"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}
