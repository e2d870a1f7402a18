package service

import (
	"context"
	"errors"
	"fmt"

	"fortune/events"
	"fortune/models"

	log "github.com/sirupsen/logrus"
)

// WalletChange describes one ledger entry to apply. Amount is signed:
// positive credits, negative debits.
type WalletChange struct {
	UserID         string
	Amount         int64
	Reason         models.WalletReason
	IdempotencyKey string
	Metadata       map[string]any
}

// ApplyWalletChange applies a balance change inside the caller's unit of work and
// emits a balance change event. This is the single entry point for all FC balance
// changes in the system.
//
// The balance row is locked before the idempotency key is checked, so concurrent
// replays of the same key for the same user observe the first one's ledger entry.
func ApplyWalletChange(ctx context.Context, uow UnitOfWork, change WalletChange) (*models.WalletResult, error) {
	if change.UserID == "" {
		return nil, ErrInvalidUser
	}
	if change.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	wallet := uow.WalletRepository()

	if err := wallet.EnsureBalance(ctx, change.UserID); err != nil {
		return nil, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	current, err := wallet.GetBalanceForUpdate(ctx, change.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("balance row for user %s disappeared", change.UserID)
	}

	existing, err := wallet.GetTransactionByKey(ctx, change.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if existing != nil {
		if existing.UserID != change.UserID || existing.Amount != change.Amount || existing.Reason != change.Reason {
			return nil, ErrDuplicatePayment
		}
		return &models.WalletResult{
			Transaction: existing,
			NewBalance:  existing.BalanceAfter,
			Replayed:    true,
		}, nil
	}

	var newBalance int64
	if change.Amount > 0 {
		newBalance, err = wallet.AddBalance(ctx, change.UserID, change.Amount)
	} else {
		newBalance, err = wallet.DeductBalance(ctx, change.UserID, -change.Amount)
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			log.WithFields(log.Fields{
				"userID":  change.UserID,
				"balance": current.Balance,
				"amount":  change.Amount,
				"reason":  change.Reason,
			}).Error("Debit refused, balance would become negative")
		}
		return nil, err
	}

	entry := &models.WalletTransaction{
		UserID:         change.UserID,
		Amount:         change.Amount,
		Reason:         change.Reason,
		IdempotencyKey: change.IdempotencyKey,
		BalanceAfter:   newBalance,
		Metadata:       change.Metadata,
	}
	if err := wallet.RecordTransaction(ctx, entry); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       change.UserID,
		OldBalance:   current.Balance,
		NewBalance:   newBalance,
		ChangeAmount: change.Amount,
		Reason:       change.Reason,
	})

	return &models.WalletResult{
		Transaction: entry,
		NewBalance:  newBalance,
	}, nil
}
