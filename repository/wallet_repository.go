package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"
	"fortune/service"

	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// newWalletRepositoryWithTx creates a new wallet repository with a transaction
func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

const (
	walletTransactionColumns = `id, user_id, amount, reason, idempotency_key, balance_after, metadata, created_at`

	idempotencyKeyConstraint = "wallet_transactions_idempotency_key_key"
)

func scanBalance(row pgx.Row) (*models.FCBalance, error) {
	var balance models.FCBalance
	if err := row.Scan(&balance.UserID, &balance.Balance, &balance.CreatedAt, &balance.UpdatedAt); err != nil {
		return nil, err
	}
	return &balance, nil
}

func scanWalletTransaction(row pgx.Row) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	var metadataJSON []byte
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Reason,
		&tx.IdempotencyKey,
		&tx.BalanceAfter,
		&metadataJSON,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &tx, nil
}

// EnsureBalance creates a zero balance row for the user if none exists
func (r *WalletRepository) EnsureBalance(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO fc_balances (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure balance for user %s: %w", userID, err)
	}
	return nil
}

// GetBalance returns the user's balance row
func (r *WalletRepository) GetBalance(ctx context.Context, userID string) (*models.FCBalance, error) {
	balance, err := scanBalance(r.q.QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM fc_balances WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for user %s: %w", userID, err)
	}
	return balance, nil
}

// GetBalanceForUpdate returns the user's balance row and locks it
func (r *WalletRepository) GetBalanceForUpdate(ctx context.Context, userID string) (*models.FCBalance, error) {
	balance, err := scanBalance(r.q.QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM fc_balances WHERE user_id = $1 FOR UPDATE`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
	}
	return balance, nil
}

// AddBalance adds amount to the balance and returns the new balance
func (r *WalletRepository) AddBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	query := `
		UPDATE fc_balances
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("balance for user %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for user %s: %w", userID, err)
	}
	return newBalance, nil
}

// DeductBalance subtracts amount only while the balance covers it
func (r *WalletRepository) DeductBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	query := `
		UPDATE fc_balances
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, service.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct balance for user %s: %w", userID, err)
	}
	return newBalance, nil
}

// GetTransactionByKey returns the ledger entry recorded for an idempotency key
func (r *WalletRepository) GetTransactionByKey(ctx context.Context, key string) (*models.WalletTransaction, error) {
	tx, err := scanWalletTransaction(r.q.QueryRow(ctx,
		`SELECT `+walletTransactionColumns+` FROM wallet_transactions WHERE idempotency_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transaction by key: %w", err)
	}
	return tx, nil
}

// RecordTransaction appends a ledger entry
func (r *WalletRepository) RecordTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	var metadataJSON []byte
	if tx.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO wallet_transactions (user_id, amount, reason, idempotency_key, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Reason,
		tx.IdempotencyKey,
		tx.BalanceAfter,
		metadataJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
	if database.IsUniqueViolation(err, idempotencyKeyConstraint) {
		return service.ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("failed to record wallet transaction for user %s: %w", tx.UserID, err)
	}

	return nil
}

// ListTransactions returns the user's most recent ledger entries
func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+walletTransactionColumns+` FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transactions []*models.WalletTransaction
	for rows.Next() {
		tx, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}

	return transactions, nil
}
