package service

import (
	"context"
	"fmt"
	"strings"

	"fortune/events"
	"fortune/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type cancellationService struct {
	uowFactory UnitOfWorkFactory
}

// NewCancellationService creates a new booking cancellation service
func NewCancellationService(uowFactory UnitOfWorkFactory) CancellationService {
	return &cancellationService{
		uowFactory: uowFactory,
	}
}

// RequestCancellation opens a pending cancellation for a booking
func (s *cancellationService) RequestCancellation(ctx context.Context, bookingID, reason, details string) (*models.BookingCancellation, error) {
	bookingID = strings.TrimSpace(bookingID)
	reason = strings.TrimSpace(reason)
	if bookingID == "" || reason == "" {
		return nil, ErrInvalidCancellation
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cancellation := &models.BookingCancellation{
		ID:        uuid.New(),
		BookingID: bookingID,
		Reason:    reason,
		Status:    models.CancellationStatusProcessing,
	}
	if details = strings.TrimSpace(details); details != "" {
		cancellation.Details = &details
	}

	if err := uow.CancellationRepository().Create(ctx, cancellation); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.CancellationStatusChangedEvent{
		CancellationID: cancellation.ID.String(),
		BookingID:      bookingID,
		Status:         cancellation.Status,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"cancellationID": cancellation.ID,
		"bookingID":      bookingID,
	}).Info("Cancellation requested")

	return cancellation, nil
}

// SetStatus records a reviewer's decision on a cancellation and announces it
func (s *cancellationService) SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cancellation, err := uow.CancellationRepository().UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if cancellation == nil {
		return nil, ErrCancellationNotFound
	}

	uow.EventBus().Publish(events.CancellationStatusChangedEvent{
		CancellationID: cancellation.ID.String(),
		BookingID:      cancellation.BookingID,
		Status:         cancellation.Status,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return cancellation, nil
}

// GetLatestForBooking returns the newest cancellation for the booking, or nil
func (s *cancellationService) GetLatestForBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cancellation, err := uow.CancellationRepository().GetLatestByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cancellation: %w", err)
	}
	if cancellation == nil {
		return nil, ErrCancellationNotFound
	}

	return cancellation, nil
}
