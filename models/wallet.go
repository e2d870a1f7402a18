package models

import (
	"time"
)

// WalletReason describes why a wallet balance changed
type WalletReason string

const (
	WalletReasonFCPurchase    WalletReason = "fc_purchase"
	WalletReasonReferralBonus WalletReason = "referral_bonus"
	WalletReasonSpend         WalletReason = "spend"
	WalletReasonAdjustment    WalletReason = "adjustment"
)

// FCBalance is a user's Fortune Coin balance
type FCBalance struct {
	UserID    string    `db:"user_id"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WalletTransaction records one applied balance change. Amount is signed:
// credits are positive and debits negative.
type WalletTransaction struct {
	ID             int64          `db:"id"`
	UserID         string         `db:"user_id"`
	Amount         int64          `db:"amount"`
	Reason         WalletReason   `db:"reason"`
	IdempotencyKey string         `db:"idempotency_key"`
	BalanceAfter   int64          `db:"balance_after"`
	Metadata       map[string]any `db:"metadata"`
	CreatedAt      time.Time      `db:"created_at"`
}

// WalletResult is the outcome of a credit or debit
type WalletResult struct {
	Transaction *WalletTransaction
	NewBalance  int64
	Replayed    bool // True when the idempotency key had already been applied
}
