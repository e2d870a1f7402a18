package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"
	"fortune/service"

	"github.com/jackc/pgx/v5"
)

// ReferralRepository implements the ReferralRepository interface
type ReferralRepository struct {
	q queryable
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *database.DB) *ReferralRepository {
	return &ReferralRepository{q: db.Pool}
}

// newReferralRepositoryWithTx creates a new referral repository with a transaction
func newReferralRepositoryWithTx(tx queryable) *ReferralRepository {
	return &ReferralRepository{q: tx}
}

const (
	referralLinkColumns = `id, referred_user_id, referrer_user_id, referrer_code, linked_at, bonus_credited, credited_at`

	referredUserConstraint = "referral_links_referred_user_id_key"
)

func scanReferralCode(row pgx.Row) (*models.ReferralCode, error) {
	var code models.ReferralCode
	if err := row.Scan(&code.UserID, &code.Code, &code.CreatedAt); err != nil {
		return nil, err
	}
	return &code, nil
}

func scanReferralLink(row pgx.Row) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := row.Scan(
		&link.ID,
		&link.ReferredUserID,
		&link.ReferrerUserID,
		&link.ReferrerCode,
		&link.LinkedAt,
		&link.BonusCredited,
		&link.CreditedAt,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetCodeByUser returns the code owned by a user
func (r *ReferralRepository) GetCodeByUser(ctx context.Context, userID string) (*models.ReferralCode, error) {
	code, err := scanReferralCode(r.q.QueryRow(ctx,
		`SELECT user_id, code, created_at FROM referral_codes WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral code of user %s: %w", userID, err)
	}
	return code, nil
}

// GetCodeOwner returns the code row for a code value
func (r *ReferralRepository) GetCodeOwner(ctx context.Context, code string) (*models.ReferralCode, error) {
	owner, err := scanReferralCode(r.q.QueryRow(ctx,
		`SELECT user_id, code, created_at FROM referral_codes WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	return owner, nil
}

// CreateCode stores a new code, returning false when the user or the code value is taken
func (r *ReferralRepository) CreateCode(ctx context.Context, code *models.ReferralCode) (bool, error) {
	query := `
		INSERT INTO referral_codes (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query, code.UserID, code.Code).Scan(&code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create referral code for user %s: %w", code.UserID, err)
	}
	return true, nil
}

// CreateLink stores a referral link; the unique referred_user_id makes the first write win
func (r *ReferralRepository) CreateLink(ctx context.Context, link *models.ReferralLink) error {
	query := `
		INSERT INTO referral_links (id, referred_user_id, referrer_user_id, referrer_code)
		VALUES ($1, $2, $3, $4)
		RETURNING linked_at, bonus_credited
	`

	err := r.q.QueryRow(ctx, query,
		link.ID,
		link.ReferredUserID,
		link.ReferrerUserID,
		link.ReferrerCode,
	).Scan(&link.LinkedAt, &link.BonusCredited)
	if database.IsUniqueViolation(err, referredUserConstraint) {
		return service.ErrAlreadyLinked
	}
	if err != nil {
		return fmt.Errorf("failed to create referral link for user %s: %w", link.ReferredUserID, err)
	}
	return nil
}

// GetLinkByReferred returns the link of a referred user
func (r *ReferralRepository) GetLinkByReferred(ctx context.Context, referredUserID string) (*models.ReferralLink, error) {
	link, err := scanReferralLink(r.q.QueryRow(ctx,
		`SELECT `+referralLinkColumns+` FROM referral_links WHERE referred_user_id = $1`, referredUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link of user %s: %w", referredUserID, err)
	}
	return link, nil
}

// HasQualifyingActivity reports whether the user already bought FC or a ticket
// while signed in, which would make a referral link too late to earn a bonus
func (r *ReferralRepository) HasQualifyingActivity(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wallet_transactions WHERE user_id = $1 AND reason = $2
		) OR EXISTS (
			SELECT 1 FROM tickets WHERE booked_by_identity = $3
		)
	`

	var active bool
	identityKey := models.Identity{UserID: userID}.Key()
	err := r.q.QueryRow(ctx, query, userID, models.WalletReasonFCPurchase, identityKey).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase activity of user %s: %w", userID, err)
	}
	return active, nil
}

// ClaimBonus flips bonus_credited if it is still false. Concurrent claimers
// block on the row and re-check the predicate, so only one gets the link back.
func (r *ReferralRepository) ClaimBonus(ctx context.Context, referredUserID string) (*models.ReferralLink, error) {
	query := `
		UPDATE referral_links
		SET bonus_credited = TRUE, credited_at = NOW()
		WHERE referred_user_id = $1 AND bonus_credited = FALSE
		RETURNING ` + referralLinkColumns

	link, err := scanReferralLink(r.q.QueryRow(ctx, query, referredUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim referral bonus for user %s: %w", referredUserID, err)
	}
	return link, nil
}
