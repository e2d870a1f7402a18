package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"
	"fortune/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CancellationRepository implements the CancellationRepository interface
type CancellationRepository struct {
	q queryable
}

// NewCancellationRepository creates a new cancellation repository
func NewCancellationRepository(db *database.DB) *CancellationRepository {
	return &CancellationRepository{q: db.Pool}
}

// newCancellationRepositoryWithTx creates a new cancellation repository with a transaction
func newCancellationRepositoryWithTx(tx queryable) *CancellationRepository {
	return &CancellationRepository{q: tx}
}

const (
	cancellationColumns = `id, booking_id, reason, details, status, created_at, updated_at`

	openCancellationIndex = "booking_cancellations_one_processing"
)

func scanCancellation(row pgx.Row) (*models.BookingCancellation, error) {
	var c models.BookingCancellation
	err := row.Scan(&c.ID, &c.BookingID, &c.Reason, &c.Details, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a processing cancellation
func (r *CancellationRepository) Create(ctx context.Context, cancellation *models.BookingCancellation) error {
	query := `
		INSERT INTO booking_cancellations (id, booking_id, reason, details, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		cancellation.ID,
		cancellation.BookingID,
		cancellation.Reason,
		cancellation.Details,
		cancellation.Status,
	).Scan(&cancellation.CreatedAt, &cancellation.UpdatedAt)
	if database.IsUniqueViolation(err, openCancellationIndex) {
		return service.ErrCancellationAlreadyOpen
	}
	if err != nil {
		return fmt.Errorf("failed to create cancellation for booking %s: %w", cancellation.BookingID, err)
	}
	return nil
}

// GetByID retrieves a cancellation
func (r *CancellationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BookingCancellation, error) {
	c, err := scanCancellation(r.q.QueryRow(ctx,
		`SELECT `+cancellationColumns+` FROM booking_cancellations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cancellation %s: %w", id, err)
	}
	return c, nil
}

// UpdateStatus sets the status of a cancellation. Re-opening a cancellation while
// another one of the same booking is processing yields ErrCancellationAlreadyOpen.
func (r *CancellationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error) {
	query := `
		UPDATE booking_cancellations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + cancellationColumns

	c, err := scanCancellation(r.q.QueryRow(ctx, query, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if database.IsUniqueViolation(err, openCancellationIndex) {
		return nil, service.ErrCancellationAlreadyOpen
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cancellation %s: %w", id, err)
	}
	return c, nil
}

// GetLatestByBooking returns the most recent cancellation of a booking
func (r *CancellationRepository) GetLatestByBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error) {
	query := `
		SELECT ` + cancellationColumns + `
		FROM booking_cancellations
		WHERE booking_id = $1
		ORDER BY created_at DESC, updated_at DESC
		LIMIT 1
	`

	c, err := scanCancellation(r.q.QueryRow(ctx, query, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cancellation of booking %s: %w", bookingID, err)
	}
	return c, nil
}
