package service

import (
	"context"
	"errors"
	"fmt"

	"fortune/config"
	"fortune/database"
	"fortune/events"
	"fortune/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type fortuneCounterService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewFortuneCounterService creates a new fortune counter settlement service
func NewFortuneCounterService(uowFactory UnitOfWorkFactory, cfg *config.Config) FortuneCounterService {
	return &fortuneCounterService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// GetCounter returns the number of online tickets awaiting cash settlement
func (s *fortuneCounterService) GetCounter(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	counter, err := uow.FortuneCounterRepository().Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fortune counter: %w", err)
	}
	if counter == nil {
		return nil, ErrGameNotFound
	}

	return counter, nil
}

// RequestSettlement snapshots the counter into a pending request. Admin only,
// and at most one request per game may be pending.
func (s *fortuneCounterService) RequestSettlement(ctx context.Context, identity models.Identity, gameID int64) (*models.FortuneCounterRequest, error) {
	if identity.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	var request *models.FortuneCounterRequest
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		var err error
		request, err = s.requestSettlement(ctx, identity, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

func (s *fortuneCounterService) requestSettlement(ctx context.Context, identity models.Identity, gameID int64) (*models.FortuneCounterRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	counters := uow.FortuneCounterRepository()

	// Holding the counter lock freezes ticket_count and sales_seq: no online
	// sale can commit between the snapshot and the insert.
	counter, err := counters.GetForUpdate(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock fortune counter: %w", err)
	}
	if counter == nil {
		return nil, ErrGameNotFound
	}

	pending, err := counters.GetPendingRequest(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending request: %w", err)
	}
	if pending != nil {
		return nil, ErrRequestAlreadyPending
	}
	if counter.TicketCount == 0 {
		return nil, ErrNoOutstandingTickets
	}

	request := &models.FortuneCounterRequest{
		ID:          uuid.New(),
		GameID:      gameID,
		TicketCount: counter.TicketCount,
		AmountDue:   game.TicketPrice.Mul(decimal.NewFromInt(counter.TicketCount)),
		SnapshotSeq: counter.SalesSeq,
		Status:      models.SettlementStatusPending,
		RequestedBy: identity.Key(),
	}
	if err := counters.CreateRequest(ctx, request); err != nil {
		if errors.Is(err, ErrRequestAlreadyPending) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create settlement request: %w", err)
	}

	version, err := uow.GameRepository().BumpVersion(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump game version: %w", err)
	}

	uow.EventBus().Publish(events.SettlementRequestedEvent{
		GameID:      gameID,
		RequestID:   request.ID.String(),
		TicketCount: request.TicketCount,
		AmountDue:   request.AmountDue.StringFixed(2),
		Version:     version,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":      gameID,
		"requestID":   request.ID,
		"ticketCount": request.TicketCount,
		"amountDue":   request.AmountDue.StringFixed(2),
	}).Info("Settlement requested")

	return request, nil
}

// ConfirmSettlement settles the tickets captured by the request and records the
// counter reset. Confirming twice returns the first result with Replayed set.
func (s *fortuneCounterService) ConfirmSettlement(ctx context.Context, identity models.Identity, requestID uuid.UUID) (*models.SettlementResult, error) {
	if identity.Role != models.RoleOrganizer || identity.UserID == "" {
		return nil, ErrForbidden
	}

	var result *models.SettlementResult
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		var err error
		result, err = s.confirmSettlement(ctx, identity, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *fortuneCounterService) confirmSettlement(ctx context.Context, identity models.Identity, requestID uuid.UUID) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	counters := uow.FortuneCounterRepository()

	request, err := counters.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement request: %w", err)
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	game, err := uow.GameRepository().GetByID(ctx, request.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil || game.OrganizerID != identity.UserID {
		return nil, ErrForbidden
	}

	// Lock order matches purchases and requests: counter row first, then the request.
	if _, err := counters.GetForUpdate(ctx, request.GameID); err != nil {
		return nil, fmt.Errorf("failed to lock fortune counter: %w", err)
	}

	request, err = counters.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock settlement request: %w", err)
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}
	if !request.IsPending() {
		return s.replayConfirmation(ctx, uow, request)
	}

	settled, err := uow.TicketRepository().SettleOldestOnline(ctx, request.GameID, request.SnapshotSeq, request.TicketCount)
	if err != nil {
		return nil, fmt.Errorf("failed to settle tickets: %w", err)
	}
	if settled != request.TicketCount {
		log.WithFields(log.Fields{
			"gameID":    request.GameID,
			"requestID": request.ID,
			"expected":  request.TicketCount,
			"settled":   settled,
		}).Warn("Settled fewer tickets than the request snapshot")
	}

	counter, err := counters.Decrement(ctx, request.GameID, settled)
	if err != nil {
		if errors.Is(err, ErrCounterInvariant) {
			log.WithFields(log.Fields{
				"gameID":    request.GameID,
				"requestID": request.ID,
				"settled":   settled,
			}).Error("Fortune counter would go negative, aborting settlement")
		}
		return nil, err
	}

	reset := &models.FortuneCounterReset{
		GameID:      request.GameID,
		RequestID:   request.ID,
		TicketCount: settled,
	}
	if err := counters.CreateReset(ctx, reset); err != nil {
		return nil, fmt.Errorf("failed to append fortune counter reset: %w", err)
	}

	confirmed, err := counters.MarkRequestConfirmed(ctx, request.ID, identity.Key())
	if err != nil {
		if errors.Is(err, ErrRequestAlreadyConfirmed) {
			// Nothing above is committed; the rollback discards this attempt.
			return s.replayConfirmation(ctx, uow, request)
		}
		return nil, fmt.Errorf("failed to confirm settlement request: %w", err)
	}

	version, err := uow.GameRepository().BumpVersion(ctx, request.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump game version: %w", err)
	}

	uow.EventBus().Publish(events.SettlementConfirmedEvent{
		GameID:         request.GameID,
		RequestID:      request.ID.String(),
		SettledTickets: settled,
		CounterValue:   counter.TicketCount,
		Version:        version,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":         request.GameID,
		"requestID":      request.ID,
		"settledTickets": settled,
		"counter":        counter.TicketCount,
	}).Info("Settlement confirmed")

	return &models.SettlementResult{
		Request: confirmed,
		Reset:   reset,
		Counter: counter,
	}, nil
}

// replayConfirmation rebuilds the result of an already confirmed request without
// touching any ticket or the counter.
func (s *fortuneCounterService) replayConfirmation(ctx context.Context, uow UnitOfWork, request *models.FortuneCounterRequest) (*models.SettlementResult, error) {
	counters := uow.FortuneCounterRepository()

	reset, err := counters.GetResetByRequest(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fortune counter reset: %w", err)
	}
	counter, err := counters.Get(ctx, request.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fortune counter: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":    request.GameID,
		"requestID": request.ID,
	}).Debug("Settlement already confirmed, returning original result")

	return &models.SettlementResult{
		Request:  request,
		Reset:    reset,
		Counter:  counter,
		Replayed: true,
	}, nil
}

// GetPendingRequest returns the game's pending request, or nil when idle
func (s *fortuneCounterService) GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.FortuneCounterRepository().GetPendingRequest(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending request: %w", err)
	}

	return request, nil
}

// ListResets returns the game's settlement history, newest first
func (s *fortuneCounterService) ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	resets, err := uow.FortuneCounterRepository().ListResets(ctx, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fortune counter resets: %w", err)
	}

	return resets, nil
}
