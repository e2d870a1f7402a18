package service

import (
	"context"
	"fmt"
	"strings"

	"fortune/config"
	"fortune/database"
	"fortune/events"
	"fortune/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	referralCodeLength   = 8
	referralCodeAttempts = 5
)

type referralService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewReferralService creates a new referral service
func NewReferralService(uowFactory UnitOfWorkFactory, cfg *config.Config) ReferralService {
	return &referralService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// GetOrCreateReferralCode returns the user's referral code, issuing a fresh one on
// first use. Concurrent first calls for the same user converge on one code.
func (s *referralService) GetOrCreateReferralCode(ctx context.Context, userID string) (*models.ReferralCode, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	referrals := uow.ReferralRepository()

	existing, err := referrals.GetCodeByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code := &models.ReferralCode{
			UserID: userID,
			Code:   newReferralCode(),
		}
		created, err := referrals.CreateCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to create referral code: %w", err)
		}
		if !created {
			// Either the code value collided or a concurrent call issued this user's code
			existing, err := referrals.GetCodeByUser(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to get referral code: %w", err)
			}
			if existing != nil {
				return existing, nil
			}
			continue
		}

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return code, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique referral code after %d attempts", referralCodeAttempts)
}

// LinkReferral binds newUserID to the owner of code. Only users who have not yet
// bought FC or a ticket while signed in can be linked, so the bonus always pays
// out on a genuine first purchase.
func (s *referralService) LinkReferral(ctx context.Context, newUserID, code string) (*models.ReferralLink, error) {
	if newUserID == "" {
		return nil, ErrInvalidUser
	}
	code = normalizeReferralCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	referrals := uow.ReferralRepository()

	owner, err := referrals.GetCodeOwner(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	if owner == nil {
		return nil, ErrInvalidCode
	}
	if owner.UserID == newUserID {
		return nil, ErrSelfReferral
	}

	existing, err := referrals.GetLinkByReferred(ctx, newUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyLinked
	}

	active, err := referrals.HasQualifyingActivity(ctx, newUserID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrReferralTooLate
	}

	link := &models.ReferralLink{
		ID:             uuid.New(),
		ReferredUserID: newUserID,
		ReferrerUserID: owner.UserID,
		ReferrerCode:   owner.Code,
	}
	// A concurrent link for the same user loses on the unique constraint
	if err := referrals.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"referredUserID": newUserID,
		"referrerUserID": owner.UserID,
	}).Info("Referral linked")

	return link, nil
}

// OnFirstQualifyingPurchase credits the referrer of userID exactly once and
// returns the claimed link, or nil when there is nothing left to credit
func (s *referralService) OnFirstQualifyingPurchase(ctx context.Context, userID string) (*models.ReferralLink, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	var link *models.ReferralLink
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		credited, err := creditReferralBonus(ctx, uow, userID, s.config.ReferralBonusFC)
		if err != nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		link = credited
		return nil
	})
	if err != nil {
		return nil, err
	}

	return link, nil
}

// creditReferralBonus claims the referred user's bonus and credits the referrer
// inside the caller's unit of work. The claim is a conditional update, so among
// concurrent qualifying purchases exactly one sees the link; the others get nil.
func creditReferralBonus(ctx context.Context, uow UnitOfWork, referredUserID string, bonus int64) (*models.ReferralLink, error) {
	link, err := uow.ReferralRepository().ClaimBonus(ctx, referredUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim referral bonus: %w", err)
	}
	if link == nil {
		return nil, nil
	}

	_, err = ApplyWalletChange(ctx, uow, WalletChange{
		UserID:         link.ReferrerUserID,
		Amount:         bonus,
		Reason:         models.WalletReasonReferralBonus,
		IdempotencyKey: "referral:" + link.ID.String(),
		Metadata: map[string]any{
			"referred_user_id": link.ReferredUserID,
			"referral_link_id": link.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ReferralBonusCreditedEvent{
		LinkID:         link.ID.String(),
		ReferrerUserID: link.ReferrerUserID,
		ReferredUserID: link.ReferredUserID,
		Amount:         bonus,
	})

	log.WithFields(log.Fields{
		"referrerUserID": link.ReferrerUserID,
		"referredUserID": link.ReferredUserID,
		"bonus":          bonus,
	}).Info("Referral bonus credited")

	return link, nil
}

// newReferralCode derives a short upper-case code from a random UUID
func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:referralCodeLength])
}

func normalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
