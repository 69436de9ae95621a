package models

import (
	"time"
)

type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusApproved ReferralStatus = "approved"
)

// Referral links a referring agent to the agent they brought in.
type Referral struct {
	ID              string         `json:"id,omitempty" bson:"_id,omitempty"`
	ReferringUserID string         `json:"referringUserId" bson:"referringUserId"`
	ReferredUserID  string         `json:"referredUserId" bson:"referredUserId"`
	Status          ReferralStatus `json:"status" bson:"status"`
	CreatedAt       time.Time      `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
}
