package models

import (
	"time"
)

type WithdrawStatus string

const (
	WithdrawStatusPending  WithdrawStatus = "pending"
	WithdrawStatusApproved WithdrawStatus = "approved"
	WithdrawStatusRejected WithdrawStatus = "rejected"
)

// WithdrawRequest is an agent cashing out a set of unpaid earnings.
type WithdrawRequest struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	UserID      string         `bson:"userId" json:"userId"`
	Amount      float64        `bson:"amount" json:"amount"`
	Status      WithdrawStatus `bson:"status" json:"status"` // pending, approved, rejected
	Date        time.Time      `bson:"date" json:"date"`
	EarningIDs  []string       `bson:"earningIds" json:"earningIds"`
	ProcessedAt *time.Time     `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	AdminID     string         `bson:"adminId,omitempty" json:"adminId,omitempty"`
	AdminNote   string         `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
}

// WithdrawRequestView is a request joined with its agent for the listing screen.
type WithdrawRequestView struct {
	WithdrawRequest `bson:",inline"`
	UserName        string `json:"userName" bson:"userName"`
	UserEmail       string `json:"userEmail" bson:"userEmail"`
	UserMobile      string `json:"userMobile" bson:"userMobile"`
}

type WithdrawDecision struct {
	AdminNote string `json:"adminNote" validate:"max=500"`
}
