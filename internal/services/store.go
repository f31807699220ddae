package services

import (
	"context"

	"spinwin-backend/internal/models"
)

// UserTx is the unit of work passed to an atomic user update. The closure
// mutates User in place and may append audit records; everything lands in the
// same atomic write or not at all.
type UserTx struct {
	User        *models.User
	Spins       []*models.SpinResult
	Withdrawals []*models.WithdrawalRequest
}

func (tx *UserTx) AppendSpin(result *models.SpinResult) {
	tx.Spins = append(tx.Spins, result)
}

func (tx *UserTx) AppendWithdrawal(request *models.WithdrawalRequest) {
	tx.Withdrawals = append(tx.Withdrawals, request)
}

// Store is the document-store collaborator behind the ledger. Implementations
// must serialize concurrent UpdateUser/UpdateUserPair calls on the same record;
// conflicts retry internally and are invisible to callers. Audit timestamps are
// assigned by the store at write time.
type Store interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// UpdateUser runs fn inside an atomic read-modify-write on one user record
	// and returns the updated record. An error from fn aborts the update with
	// no mutation observable.
	UpdateUser(ctx context.Context, userID string, fn func(tx *UserTx) error) (*models.User, error)

	// UpdateUserPair atomically updates two user records together.
	UpdateUserPair(ctx context.Context, userID, otherID string, fn func(user, other *models.User) error) error

	RegisterReferralCode(ctx context.Context, code, userID string) error
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	ReferralCodeOwner(ctx context.Context, code string) (string, error)

	SpinHistory(ctx context.Context, userID string, limit int64) ([]*models.SpinResult, error)
	WithdrawalHistory(ctx context.Context, userID string, limit int64) ([]*models.WithdrawalRequest, error)
}
