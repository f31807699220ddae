package services

import "time"

const (
	KeyUser            = "user:%s"
	KeyReferralCode    = "refcode:%s"
	KeySpinResult      = "spin:%s"
	KeyUserSpins       = "user:%s:spins"
	KeyWithdrawal      = "withdrawal:%s"
	KeyUserWithdrawals = "user:%s:withdrawals"
	KeyOAuthState      = "oauth:state:%s"
	KeyRateLimit       = "ratelimit:%s:%s"

	TTLOAuthState = 10 * time.Minute

	// Audit histories keep the most recent entries per user.
	MaxSpinHistory       = 500
	MaxWithdrawalHistory = 100

	// MaxTxRetries bounds optimistic-transaction retries on write conflicts.
	MaxTxRetries = 100
)
