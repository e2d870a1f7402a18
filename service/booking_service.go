package service

import (
	"context"
	"fmt"
	"strings"

	"fortune/config"
	"fortune/database"
	"fortune/events"
	"fortune/models"

	log "github.com/sirupsen/logrus"
)

type bookingService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewBookingService creates a new booking service
func NewBookingService(uowFactory UnitOfWorkFactory, cfg *config.Config) BookingService {
	return &bookingService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// PurchaseTicket sells one ticket through the given channel. Exactly one of any
// concurrent buyers wins; online sales also advance the fortune counter.
func (s *bookingService) PurchaseTicket(ctx context.Context, identity models.Identity, gameID, number int64, channel models.Channel, buyer models.BuyerInfo) (*models.Ticket, error) {
	if !channel.IsValid() {
		return nil, ErrInvalidChannel
	}
	buyer.Name = strings.TrimSpace(buyer.Name)
	if buyer.Name == "" {
		return nil, ErrInvalidBuyer
	}

	var ticket *models.Ticket
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		var err error
		ticket, err = s.purchase(ctx, identity, gameID, number, channel, buyer)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// purchase runs one attempt of the sale. The status transition, the counter
// increment and the referral bonus share a single transaction, so either all
// of them are visible or none are.
func (s *bookingService) purchase(ctx context.Context, identity models.Identity, gameID, number int64, channel models.Channel, buyer models.BuyerInfo) (*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets := uow.TicketRepository()

	existing, err := tickets.GetByNumber(ctx, gameID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if existing == nil {
		return nil, ErrTicketNotFound
	}
	if channel == models.ChannelOnline && !existing.OnlineAvailable {
		return nil, ErrChannelNotAllowed
	}

	sold, err := tickets.MarkSold(ctx, gameID, number, channel, buyer, identity.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to mark ticket sold: %w", err)
	}
	if sold == nil {
		return nil, ErrTicketUnavailable
	}
	sold.OnlineAvailable = existing.OnlineAvailable

	var counterValue int64
	if channel == models.ChannelOnline {
		counter, err := uow.FortuneCounterRepository().Increment(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to increment fortune counter: %w", err)
		}
		if err := tickets.SetSaleSeq(ctx, sold.ID, counter.SalesSeq); err != nil {
			return nil, fmt.Errorf("failed to stamp sale sequence: %w", err)
		}
		seq := counter.SalesSeq
		sold.SaleSeq = &seq
		counterValue = counter.TicketCount
	}

	version, err := uow.GameRepository().BumpVersion(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump game version: %w", err)
	}

	if identity.IsAuthenticated() {
		if _, err := creditReferralBonus(ctx, uow, identity.UserID, s.config.ReferralBonusFC); err != nil {
			return nil, fmt.Errorf("failed to credit referral bonus: %w", err)
		}
	}

	var saleSeq int64
	if sold.SaleSeq != nil {
		saleSeq = *sold.SaleSeq
	}
	uow.EventBus().Publish(events.TicketSoldEvent{
		GameID:       gameID,
		TicketNumber: number,
		Channel:      channel,
		SaleSeq:      saleSeq,
		CounterValue: counterValue,
		Version:      version,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":       gameID,
		"ticketNumber": number,
		"channel":      channel,
		"buyer":        identity.Key(),
	}).Info("Ticket sold")

	return sold, nil
}
