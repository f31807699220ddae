package models

import "time"

type WithdrawalMethod string

const (
	MethodGooglePlay WithdrawalMethod = "Google Play"
	MethodUPI        WithdrawalMethod = "UPI"
)

type WithdrawalStatus string

const (
	StatusPending WithdrawalStatus = "Pending"

	// Terminal states are set by an out-of-band review process, never by this
	// service.
	StatusApproved WithdrawalStatus = "Approved"
	StatusRejected WithdrawalStatus = "Rejected"
)

// WithdrawalTier is a static catalog entry mapping a cash payout to its point
// cost.
type WithdrawalTier struct {
	ID     int   `json:"id"`
	Rs     int64 `json:"rs"`
	Points int64 `json:"points"`
}

var WithdrawalTiers = []WithdrawalTier{
	{ID: 1, Rs: 10, Points: 1800},
	{ID: 2, Rs: 25, Points: 3600},
	{ID: 3, Rs: 50, Points: 5800},
	{ID: 4, Rs: 100, Points: 11500},
}

// TierByID returns the catalog entry for id, or false when no such tier exists.
func TierByID(id int) (WithdrawalTier, bool) {
	for _, tier := range WithdrawalTiers {
		if tier.ID == id {
			return tier, true
		}
	}
	return WithdrawalTier{}, false
}

// WithdrawalContact is the payout contact info submitted with a request.
type WithdrawalContact struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// WithdrawalRequest is an append-only audit record of a payout request.
// RequestTime is assigned by the store at write time. Status is mutated only by
// an external administrative process.
type WithdrawalRequest struct {
	ID          string           `json:"id" redis:"id"`
	UserID      string           `json:"user_id" redis:"user_id"`
	Amount      int64            `json:"amount" redis:"amount"`
	Points      int64            `json:"points" redis:"points"`
	Method      WithdrawalMethod `json:"method" redis:"method"`
	Status      WithdrawalStatus `json:"status" redis:"status"`
	UserName    string           `json:"user_name" redis:"user_name"`
	UserEmail   string           `json:"user_email" redis:"user_email"`
	UserMobile  string           `json:"user_mobile" redis:"user_mobile"`
	RequestTime time.Time        `json:"request_time" redis:"request_time"`
}
