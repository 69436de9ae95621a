package models

import (
	"time"
)

type EarningType string

const (
	EarningTypeSale     EarningType = "sale"
	EarningTypeBonus    EarningType = "bonus"
	EarningTypeReferral EarningType = "referral"
)

type EarningStatus string

const (
	EarningStatusUnpaid EarningStatus = "unpaid"
	EarningStatusPaid   EarningStatus = "paid"
)

// EarningRecord is one entry of users/{id}/earningsHistory.
type EarningRecord struct {
	ID     string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID string        `json:"userId" bson:"userId"`
	Amount float64       `json:"amount" bson:"amount"`
	Date   time.Time     `json:"date" bson:"date"`
	LeadID string        `json:"leadId" bson:"leadId"`
	Type   EarningType   `json:"type" bson:"type"`
	Status EarningStatus `json:"status" bson:"status"`
	PaidAt *time.Time    `json:"paidAt" bson:"paidAt"`
	Tier   string        `json:"tier,omitempty" bson:"tier,omitempty"`
}

// PaidHistory is one entry of users/{id}/paidHistory, written when a withdrawal is approved.
type PaidHistory struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID            string    `json:"userId" bson:"userId"`
	Amount            float64   `json:"amount" bson:"amount"`
	Date              time.Time `json:"date" bson:"date"`
	WithdrawRequestID string    `json:"withdrawRequestId,omitempty" bson:"withdrawRequestId,omitempty"`
}

// BonusAward records that a tier bonus was paid to an agent for a month.
// (userId, tier, month) is unique.
type BonusAward struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"userId" bson:"userId"`
	Tier      string    `json:"tier" bson:"tier"`
	Month     string    `json:"month" bson:"month"` // YYYY-MM
	EarningID string    `json:"earningId" bson:"earningId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
