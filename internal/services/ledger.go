package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spinwin-backend/internal/models"
)

// LedgerService owns per-user point balances, daily spin counters and referral
// linkage. Every mutation goes through an atomic store operation: it fully
// applies or fully fails, and concurrent mutations of the same user serialize
// inside the store.
type LedgerService struct {
	store Store
	codes *ReferralCodeGenerator
}

func NewLedgerService(store Store) *LedgerService {
	return &LedgerService{
		store: store,
		codes: NewReferralCodeGenerator(store),
	}
}

// ProvisionOrFetch returns the user record for identity, creating it on first
// sign-in. On the fetch path a stale LastSpinDate zeroes DailySpins in the
// returned view only; the stored counter resets on the next spin.
func (s *LedgerService) ProvisionOrFetch(ctx context.Context, ident *Identity) (*models.User, error) {
	user, err := s.store.GetUser(ctx, ident.ID)
	if err == nil {
		if user.LastSpinDate != models.Today() {
			user.DailySpins = 0
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	name := ident.Name
	if name == "" {
		name = "New User"
	}

	avatar := ident.AvatarURL
	if avatar == "" {
		avatar = fmt.Sprintf("https://picsum.photos/seed/%s/200/200", ident.ID)
	}

	code, err := s.codes.Generate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}

	user = &models.User{
		ID:           ident.ID,
		Name:         name,
		Email:        ident.Email,
		AvatarURL:    avatar,
		Points:       models.WelcomeBonus,
		ReferralCode: code,
		WithdrawalInfo: models.WithdrawalInfo{
			Name: ident.Name,
		},
		DailySpins:   0,
		LastSpinDate: models.Today(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	// The registry entry is a second write outside the user-create atomic
	// unit. If it fails the user exists without a registered code and needs
	// reconciliation; the error is surfaced rather than rolled back.
	if err := s.store.RegisterReferralCode(ctx, code, ident.ID); err != nil {
		return nil, fmt.Errorf("user created but referral code not registered: %w", err)
	}

	return user, nil
}

// Fetch returns the user record with the same stale-day view adjustment as
// ProvisionOrFetch, without creating anything.
func (s *LedgerService) Fetch(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.LastSpinDate != models.Today() {
		user.DailySpins = 0
	}

	return user, nil
}

// ApplySpin counts one spin against today's limit and credits the awarded
// points, appending the audit record in the same atomic unit. A spin past the
// daily cap aborts with ErrDailyLimitExceeded and no mutation at all.
func (s *LedgerService) ApplySpin(ctx context.Context, userID string, points int64) (*models.User, error) {
	req := models.SpinRequest{Points: points}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.store.UpdateUser(ctx, userID, func(tx *UserTx) error {
		today := models.Today()
		isNewDay := tx.User.LastSpinDate != today

		spinsToday := tx.User.DailySpins
		if isNewDay {
			spinsToday = 0
		}

		if spinsToday >= models.MaxDailySpins {
			return ErrDailyLimitExceeded
		}

		if isNewDay {
			tx.User.DailySpins = 1
		} else {
			tx.User.DailySpins++
		}
		tx.User.LastSpinDate = today

		if points > 0 {
			tx.User.Points += points
		}

		tx.AppendSpin(&models.SpinResult{
			ID:           models.GenerateSpinID(),
			UserID:       userID,
			PointsEarned: points,
		})

		return nil
	})
}

// ApplyReferral consumes a referral code for userID: +200 to the caller, +100
// to the code's owner, both inside one atomic unit. The pre-checks below run
// against a read that may be stale; the already-used guard is re-checked
// inside the atomic unit so a racing duplicate application loses there.
func (s *LedgerService) ApplyReferral(ctx context.Context, userID, code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasUsedReferral {
		return nil, ErrAlreadyReferred
	}

	ownerID, err := s.store.ReferralCodeOwner(ctx, code)
	if err != nil {
		return nil, err
	}
	if ownerID == userID {
		return nil, ErrSelfReferral
	}

	err = s.store.UpdateUserPair(ctx, userID, ownerID, func(referee, referrer *models.User) error {
		if referee.HasUsedReferral {
			return ErrAlreadyReferred
		}

		referee.Points += models.RefereeBonus
		referee.HasUsedReferral = true
		referee.ReferredBy = ownerID

		referrer.Points += models.ReferrerBonus

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetUser(ctx, userID)
}

// RequestWithdrawal debits the tier's point cost, records the payout request
// with status Pending, and overwrites the stored contact info, all in one
// atomic unit. The balance can never go negative here.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID string, tier models.WithdrawalTier, method models.WithdrawalMethod, contact models.WithdrawalContact) (*models.User, error) {
	return s.store.UpdateUser(ctx, userID, func(tx *UserTx) error {
		if tx.User.Points < tier.Points {
			return ErrInsufficientPoints
		}

		tx.User.Points -= tier.Points
		tx.User.WithdrawalInfo = models.WithdrawalInfo{
			Name:   contact.Name,
			Mobile: contact.Mobile,
		}

		tx.AppendWithdrawal(&models.WithdrawalRequest{
			ID:         models.GenerateWithdrawalID(),
			UserID:     userID,
			Amount:     tier.Rs,
			Points:     tier.Points,
			Method:     method,
			Status:     models.StatusPending,
			UserName:   contact.Name,
			UserEmail:  contact.Email,
			UserMobile: contact.Mobile,
		})

		return nil
	})
}

// UpdateProfile sets the display name and the withdrawal contact fields.
func (s *LedgerService) UpdateProfile(ctx context.Context, userID, name, mobile string) (*models.User, error) {
	return s.store.UpdateUser(ctx, userID, func(tx *UserTx) error {
		tx.User.Name = name
		tx.User.WithdrawalInfo.Name = name
		tx.User.WithdrawalInfo.Mobile = mobile
		return nil
	})
}

func (s *LedgerService) SpinHistory(ctx context.Context, userID string, limit int64) ([]*models.SpinResult, error) {
	return s.store.SpinHistory(ctx, userID, limit)
}

func (s *LedgerService) WithdrawalHistory(ctx context.Context, userID string, limit int64) ([]*models.WithdrawalRequest, error) {
	return s.store.WithdrawalHistory(ctx, userID, limit)
}

func (s *LedgerService) Tiers() []models.WithdrawalTier {
	return models.WithdrawalTiers
}
