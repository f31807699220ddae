package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateSpinID() string {
	return fmt.Sprintf("spin_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateWithdrawalID() string {
	return fmt.Sprintf("wd_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func (sr *SpinRequest) Validate() error {
	for _, segment := range WheelSegments {
		if sr.Points == segment {
			return nil
		}
	}
	return fmt.Errorf("invalid spin value: %d is not a wheel segment", sr.Points)
}

type WithdrawalRequestInput struct {
	TierID int              `json:"tier_id" binding:"required"`
	Method WithdrawalMethod `json:"method" binding:"required"`
	Name   string           `json:"name" binding:"required"`
	Email  string           `json:"email"`
	Mobile string           `json:"mobile" binding:"required"`
}

func (wr *WithdrawalRequestInput) Validate() error {
	if _, ok := TierByID(wr.TierID); !ok {
		return fmt.Errorf("invalid withdrawal tier: %d", wr.TierID)
	}

	switch wr.Method {
	case MethodGooglePlay, MethodUPI:
	default:
		return fmt.Errorf("invalid withdrawal method: %s", wr.Method)
	}

	return nil
}
