package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinwin-backend/internal/models"
	"spinwin-backend/internal/services"
)

func provisionUser(t *testing.T, ledger *services.LedgerService, id, name string) *models.User {
	t.Helper()

	user, err := ledger.ProvisionOrFetch(context.Background(), &services.Identity{
		ID:    id,
		Name:  name,
		Email: id + "@example.com",
	})
	require.NoError(t, err)
	return user
}

func TestProvisionDefaults(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)

	user := provisionUser(t, ledger, "u1", "Asha Rao")

	assert.EqualValues(t, 100, user.Points)
	assert.Equal(t, 0, user.DailySpins)
	assert.False(t, user.HasUsedReferral)
	assert.Empty(t, user.ReferredBy)
	assert.Equal(t, models.Today(), user.LastSpinDate)
	assert.NotEmpty(t, user.ReferralCode)

	owner, err := store.ReferralCodeOwner(context.Background(), user.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	// A second call fetches, never re-provisions.
	again := provisionUser(t, ledger, "u1", "Asha Rao")
	assert.Equal(t, user.ReferralCode, again.ReferralCode)
}

func TestProvisionFetchZeroesStaleSpins(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)

	provisionUser(t, ledger, "u1", "Asha Rao")

	_, err := store.UpdateUser(context.Background(), "u1", func(tx *services.UserTx) error {
		tx.User.DailySpins = 180
		tx.User.LastSpinDate = "2020-01-01"
		return nil
	})
	require.NoError(t, err)

	view := provisionUser(t, ledger, "u1", "Asha Rao")
	assert.Equal(t, 0, view.DailySpins, "stale counter should read as zero")

	// The view adjustment is not persisted.
	stored, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 180, stored.DailySpins)
}

func TestApplySpinAwardsAndCounts(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	user, err := ledger.ApplySpin(context.Background(), "u1", 25)
	require.NoError(t, err)

	assert.EqualValues(t, 125, user.Points)
	assert.Equal(t, 1, user.DailySpins)
	assert.Equal(t, models.Today(), user.LastSpinDate)

	spins, err := ledger.SpinHistory(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, spins, 1)
	assert.EqualValues(t, 25, spins[0].PointsEarned)
	assert.False(t, spins[0].SpinTime.IsZero())
}

func TestApplySpinZeroAward(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	user, err := ledger.ApplySpin(context.Background(), "u1", 0)
	require.NoError(t, err)

	assert.EqualValues(t, 100, user.Points, "zero award should not touch the balance")
	assert.Equal(t, 1, user.DailySpins, "zero award still counts a spin")
}

func TestApplySpinRejectsNonSegmentValue(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	_, err := ledger.ApplySpin(context.Background(), "u1", 37)
	require.Error(t, err)

	user, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, user.DailySpins)
}

func TestApplySpinDailyLimit(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	_, err := store.UpdateUser(context.Background(), "u1", func(tx *services.UserTx) error {
		tx.User.DailySpins = models.MaxDailySpins - 1
		tx.User.LastSpinDate = models.Today()
		return nil
	})
	require.NoError(t, err)

	// Spin 200 succeeds.
	user, err := ledger.ApplySpin(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, models.MaxDailySpins, user.DailySpins)

	before, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	// Spin 201 is rejected with no side effects at all.
	_, err = ledger.ApplySpin(context.Background(), "u1", 10)
	require.ErrorIs(t, err, services.ErrDailyLimitExceeded)

	after, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, before.Points, after.Points)
	assert.Equal(t, before.DailySpins, after.DailySpins)

	spins, err := ledger.SpinHistory(context.Background(), "u1", 100)
	require.NoError(t, err)
	assert.Len(t, spins, 1, "rejected spin must not append an audit record")
}

func TestApplySpinDayRollover(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	_, err := store.UpdateUser(context.Background(), "u1", func(tx *services.UserTx) error {
		tx.User.DailySpins = 199
		tx.User.LastSpinDate = "2020-01-01"
		return nil
	})
	require.NoError(t, err)

	user, err := ledger.ApplySpin(context.Background(), "u1", 50)
	require.NoError(t, err)

	assert.Equal(t, 1, user.DailySpins, "rollover resets the counter to 1, not 200")
	assert.Equal(t, models.Today(), user.LastSpinDate)
	assert.EqualValues(t, 150, user.Points)
}

func TestApplyReferral(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	referrer := provisionUser(t, ledger, "owner", "Code Owner")
	provisionUser(t, ledger, "referee", "Fresh User")

	user, err := ledger.ApplyReferral(context.Background(), "referee", referrer.ReferralCode)
	require.NoError(t, err)

	assert.EqualValues(t, 300, user.Points)
	assert.True(t, user.HasUsedReferral)
	assert.Equal(t, "owner", user.ReferredBy)

	owner, err := store.GetUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.EqualValues(t, 200, owner.Points)

	// Second application by the same caller is rejected with no point changes.
	_, err = ledger.ApplyReferral(context.Background(), "referee", referrer.ReferralCode)
	require.ErrorIs(t, err, services.ErrAlreadyReferred)

	owner, err = store.GetUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.EqualValues(t, 200, owner.Points)
}

func TestApplyReferralLowercaseCode(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	referrer := provisionUser(t, ledger, "owner", "Code Owner")
	provisionUser(t, ledger, "referee", "Fresh User")

	lower := make([]byte, len(referrer.ReferralCode))
	for i := range referrer.ReferralCode {
		c := referrer.ReferralCode[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}

	user, err := ledger.ApplyReferral(context.Background(), "referee", string(lower))
	require.NoError(t, err)
	assert.True(t, user.HasUsedReferral)
}

func TestApplyReferralSelfAndInvalid(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	owner := provisionUser(t, ledger, "owner", "Code Owner")

	_, err := ledger.ApplyReferral(context.Background(), "owner", owner.ReferralCode)
	require.ErrorIs(t, err, services.ErrSelfReferral)

	_, err = ledger.ApplyReferral(context.Background(), "owner", "NOPE0000")
	require.ErrorIs(t, err, services.ErrInvalidCode)

	unchanged, err := store.GetUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.EqualValues(t, 100, unchanged.Points)
	assert.False(t, unchanged.HasUsedReferral)
}

func TestRequestWithdrawal(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	_, err := store.UpdateUser(context.Background(), "u1", func(tx *services.UserTx) error {
		tx.User.Points = 5800
		return nil
	})
	require.NoError(t, err)

	tier, ok := models.TierByID(3)
	require.True(t, ok)

	contact := models.WithdrawalContact{Name: "Asha Rao", Email: "asha@example.com", Mobile: "9999999999"}
	user, err := ledger.RequestWithdrawal(context.Background(), "u1", tier, models.MethodUPI, contact)
	require.NoError(t, err)

	assert.EqualValues(t, 0, user.Points)
	assert.Equal(t, "Asha Rao", user.WithdrawalInfo.Name)
	assert.Equal(t, "9999999999", user.WithdrawalInfo.Mobile)

	history, err := ledger.WithdrawalHistory(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.EqualValues(t, 50, history[0].Amount)
	assert.EqualValues(t, 5800, history[0].Points)
	assert.Equal(t, models.StatusPending, history[0].Status)
	assert.Equal(t, models.MethodUPI, history[0].Method)
	assert.False(t, history[0].RequestTime.IsZero())
}

func TestRequestWithdrawalInsufficientPoints(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	tier, _ := models.TierByID(1)
	contact := models.WithdrawalContact{Name: "Asha Rao", Mobile: "9999999999"}

	_, err := ledger.RequestWithdrawal(context.Background(), "u1", tier, models.MethodGooglePlay, contact)
	require.ErrorIs(t, err, services.ErrInsufficientPoints)

	user, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, user.Points, "rejected withdrawal must not change the balance")

	history, err := ledger.WithdrawalHistory(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateProfile(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)
	provisionUser(t, ledger, "u1", "Asha Rao")

	user, err := ledger.UpdateProfile(context.Background(), "u1", "A. Rao", "8888888888")
	require.NoError(t, err)

	assert.Equal(t, "A. Rao", user.Name)
	assert.Equal(t, "A. Rao", user.WithdrawalInfo.Name)
	assert.Equal(t, "8888888888", user.WithdrawalInfo.Mobile)
}

func TestOperationsOnMissingUser(t *testing.T) {
	store := newMemStore()
	ledger := services.NewLedgerService(store)

	_, err := ledger.ApplySpin(context.Background(), "ghost", 25)
	require.ErrorIs(t, err, services.ErrUserNotFound)

	tier, _ := models.TierByID(1)
	_, err = ledger.RequestWithdrawal(context.Background(), "ghost", tier, models.MethodUPI, models.WithdrawalContact{})
	require.ErrorIs(t, err, services.ErrUserNotFound)

	_, err = ledger.ApplyReferral(context.Background(), "ghost", "ANY1234")
	require.ErrorIs(t, err, services.ErrUserNotFound)
}
