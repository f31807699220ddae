package services

import "errors"

// Ledger operations fail with exactly one of these kinds; callers branch with
// errors.Is, never on message text.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrDailyLimitExceeded = errors.New("daily spin limit reached")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidCode        = errors.New("invalid referral code")
	ErrSelfReferral       = errors.New("cannot use your own referral code")
	ErrAlreadyReferred    = errors.New("referral code already used")
	ErrCodeTaken          = errors.New("referral code already registered")
	ErrPermissionDenied   = errors.New("permission denied")
)

// SoftRejection reports whether err is an expected, user-facing rejection that
// left stored state untouched.
func SoftRejection(err error) bool {
	return errors.Is(err, ErrDailyLimitExceeded) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrSelfReferral) ||
		errors.Is(err, ErrAlreadyReferred)
}
