package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/events"
	"fortune/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	gameRepo         service.GameRepository
	bookRepo         service.BookRepository
	ticketRepo       service.TicketRepository
	counterRepo      service.FortuneCounterRepository
	walletRepo       service.WalletRepository
	referralRepo     service.ReferralRepository
	cancellationRepo service.CancellationRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new READ COMMITTED transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.gameRepo = newGameRepositoryWithTx(tx)
	u.bookRepo = newBookRepositoryWithTx(tx)
	u.ticketRepo = newTicketRepositoryWithTx(tx)
	u.counterRepo = newFortuneCounterRepositoryWithTx(tx)
	u.walletRepo = newWalletRepositoryWithTx(tx)
	u.referralRepo = newReferralRepositoryWithTx(tx)
	u.cancellationRepo = newCancellationRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// GameRepository returns the game repository for this unit of work
func (u *unitOfWork) GameRepository() service.GameRepository {
	if u.gameRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameRepo
}

// BookRepository returns the book repository for this unit of work
func (u *unitOfWork) BookRepository() service.BookRepository {
	if u.bookRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.bookRepo
}

// TicketRepository returns the ticket repository for this unit of work
func (u *unitOfWork) TicketRepository() service.TicketRepository {
	if u.ticketRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ticketRepo
}

// FortuneCounterRepository returns the fortune counter repository for this unit of work
func (u *unitOfWork) FortuneCounterRepository() service.FortuneCounterRepository {
	if u.counterRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.counterRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// ReferralRepository returns the referral repository for this unit of work
func (u *unitOfWork) ReferralRepository() service.ReferralRepository {
	if u.referralRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.referralRepo
}

// CancellationRepository returns the cancellation repository for this unit of work
func (u *unitOfWork) CancellationRepository() service.CancellationRepository {
	if u.cancellationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.cancellationRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
