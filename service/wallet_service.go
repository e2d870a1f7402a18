package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fortune/config"
	"fortune/database"
	"fortune/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type walletService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewWalletService creates a new FC wallet service
func NewWalletService(uowFactory UnitOfWorkFactory, cfg *config.Config) WalletService {
	return &walletService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// Credit adds amount FC to the user's balance, idempotent on the user-scoped key
func (s *walletService) Credit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	scoped, err := callerKey("credit", userID, key)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, WalletChange{
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: scoped,
	}, false)
}

// Debit removes amount FC from the user's balance, failing with
// ErrInsufficientFunds and leaving the balance unchanged when it does not cover it
func (s *walletService) Debit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	scoped, err := callerKey("debit", userID, key)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, WalletChange{
		UserID:         userID,
		Amount:         -amount,
		Reason:         reason,
		IdempotencyKey: scoped,
	}, false)
}

// callerKey namespaces a caller-chosen idempotency key as
// <operation>:<len(user)>:<user>:<key>. The length prefix keeps user ids that
// contain ':' unambiguous. Internal keys (fc_purchase:, referral:) never take this shape.
func callerKey(operation, userID, key string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUser
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	return operation + ":" + strconv.Itoa(len(userID)) + ":" + userID + ":" + key, nil
}

// PurchaseFC records an already-authorized FC purchase. The payment reference is
// the idempotency key, so a replayed payment returns the first result.
func (s *walletService) PurchaseFC(ctx context.Context, userID string, amount int64, paymentRef string) (*models.WalletResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, ErrInvalidKey
	}

	price := s.config.FCExchangeRate.Mul(decimal.NewFromInt(amount))

	return s.apply(ctx, WalletChange{
		UserID:         userID,
		Amount:         amount,
		Reason:         models.WalletReasonFCPurchase,
		IdempotencyKey: "fc_purchase:" + paymentRef,
		Metadata: map[string]any{
			"payment_ref":   paymentRef,
			"price":         price.StringFixed(2),
			"exchange_rate": s.config.FCExchangeRate.String(),
		},
	}, true)
}

func (s *walletService) apply(ctx context.Context, change WalletChange, qualifying bool) (*models.WalletResult, error) {
	if change.UserID == "" {
		return nil, ErrInvalidUser
	}
	if strings.TrimSpace(change.IdempotencyKey) == "" {
		return nil, ErrInvalidKey
	}

	var result *models.WalletResult
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		var err error
		result, err = s.applyOnce(ctx, change, qualifying)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *walletService) applyOnce(ctx context.Context, change WalletChange, qualifying bool) (*models.WalletResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := ApplyWalletChange(ctx, uow, change)
	if err != nil {
		return nil, err
	}

	if qualifying && !result.Replayed {
		if _, err := creditReferralBonus(ctx, uow, change.UserID, s.config.ReferralBonusFC); err != nil {
			return nil, fmt.Errorf("failed to credit referral bonus: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     change.UserID,
		"amount":     change.Amount,
		"reason":     change.Reason,
		"newBalance": result.NewBalance,
		"replayed":   result.Replayed,
	}).Info("Wallet change applied")

	return result, nil
}

// GetBalance returns the user's FC balance, creating a zero balance on first use
func (s *walletService) GetBalance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrInvalidUser
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.WalletRepository().EnsureBalance(ctx, userID); err != nil {
		return 0, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	balance, err := uow.WalletRepository().GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if balance == nil {
		return 0, nil
	}
	return balance.Balance, nil
}

// ListTransactions returns the user's most recent ledger entries, newest first
func (s *walletService) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.WalletRepository().ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}

	return transactions, nil
}
