package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralCode is the shareable code owned by a user
type ReferralCode struct {
	UserID    string    `db:"user_id"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
}

// ReferralLink binds a referred user to the referrer whose code they used
type ReferralLink struct {
	ID             uuid.UUID  `db:"id"`
	ReferredUserID string     `db:"referred_user_id"`
	ReferrerUserID string     `db:"referrer_user_id"`
	ReferrerCode   string     `db:"referrer_code"`
	LinkedAt       time.Time  `db:"linked_at"`
	BonusCredited  bool       `db:"bonus_credited"`
	CreditedAt     *time.Time `db:"credited_at"`
}
