package models

import "time"

// WithdrawalInfo is the payout contact info stored on the user record. It is
// overwritten by every withdrawal request and by profile updates.
type WithdrawalInfo struct {
	Name   string `json:"name" redis:"name"`
	Mobile string `json:"mobile" redis:"mobile"`
}

type User struct {
	ID        string `json:"id" redis:"id"`
	Name      string `json:"name" redis:"name"`
	Email     string `json:"email" redis:"email"`
	AvatarURL string `json:"avatar_url" redis:"avatar_url"`

	Points       int64  `json:"points" redis:"points"`
	ReferralCode string `json:"referral_code" redis:"referral_code"`

	HasUsedReferral bool   `json:"has_used_referral" redis:"has_used_referral"`
	ReferredBy      string `json:"referred_by,omitempty" redis:"referred_by"`

	WithdrawalInfo WithdrawalInfo `json:"withdrawal_info" redis:"withdrawal_info"`

	// DailySpins counts spins on LastSpinDate. The counter is logically zero
	// whenever LastSpinDate is behind the current day.
	DailySpins   int    `json:"daily_spins" redis:"daily_spins"`
	LastSpinDate string `json:"last_spin_date" redis:"last_spin_date"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

const (
	// WelcomeBonus is credited once when an account is provisioned.
	WelcomeBonus = 100

	// MaxDailySpins is the per-day spin cap enforced by the ledger.
	MaxDailySpins = 200

	// RefereeBonus and ReferrerBonus are the one-time referral exchange amounts.
	RefereeBonus  = 200
	ReferrerBonus = 100
)

// DateLayout is the calendar-day boundary used for spin counters.
const DateLayout = "2006-01-02"

func Today() string {
	return time.Now().Format(DateLayout)
}
