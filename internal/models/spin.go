package models

import "time"

// WheelSegments are the point values on the prize wheel. A spin result must be
// one of these.
var WheelSegments = []int64{10, 200, 25, 0, 50, 150, 100, 40}

// SpinResult is an append-only audit record of a single spin. SpinTime is
// assigned by the store at write time and never mutated afterwards.
type SpinResult struct {
	ID           string    `json:"id" redis:"id"`
	UserID       string    `json:"user_id" redis:"user_id"`
	PointsEarned int64     `json:"points_earned" redis:"points_earned"`
	SpinTime     time.Time `json:"spin_time" redis:"spin_time"`
}

type SpinRequest struct {
	Points int64 `json:"points"`
}

type SpinResponse struct {
	Points     int64 `json:"points"`
	DailySpins int   `json:"daily_spins"`
}
