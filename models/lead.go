package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusPending     LeadStatus = "pending"
	LeadStatusApproved    LeadStatus = "approved"
	LeadStatusDecline     LeadStatus = "decline"
	LeadStatusProcessing  LeadStatus = "processing"
	LeadStatusNoAnswering LeadStatus = "noAnswering"

	// LeadStatusExpired is never stored; it is derived for leads pending too long.
	LeadStatusExpired LeadStatus = "expired"
)

// LeadExpiryMonths is how long a lead may stay pending before it shows as expired.
const LeadExpiryMonths = 2

// LeadExpiryCutoff is the submission date before which a pending lead shows as expired.
func LeadExpiryCutoff(now time.Time) time.Time {
	return now.AddDate(0, -LeadExpiryMonths, 0)
}

// IsValid reports whether s can be stored on a lead.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusPending, LeadStatusApproved,
		LeadStatusDecline, LeadStatusProcessing, LeadStatusNoAnswering:
		return true
	default:
		return false
	}
}

type CustomerDetails struct {
	FullName      string  `json:"fullname" bson:"fullname"`
	Mobile        string  `json:"mobile" bson:"mobile"`
	Email         string  `json:"email" bson:"email"`
	Address       string  `json:"address,omitempty" bson:"address,omitempty"`
	City          string  `json:"city,omitempty" bson:"city,omitempty"`
	Pincode       string  `json:"pincode,omitempty" bson:"pincode,omitempty"`
	PAN           string  `json:"pan,omitempty" bson:"pan,omitempty"`
	Employment    string  `json:"employmentType,omitempty" bson:"employmentType,omitempty"`
	CompanyName   string  `json:"companyName,omitempty" bson:"companyName,omitempty"`
	MonthlyIncome float64 `json:"monthlyIncome,omitempty" bson:"monthlyIncome,omitempty"`
	LoanAmount    float64 `json:"loanAmount,omitempty" bson:"loanAmount,omitempty"`
}

// Lead is a customer application submitted by an agent.
type Lead struct {
	ID              string          `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          string          `json:"userId" bson:"userId"`
	BankID          string          `json:"bankId" bson:"bankId"`
	ServiceID       string          `json:"serviceId" bson:"serviceId"`
	Status          LeadStatus      `json:"status" bson:"status"`
	SubmissionDate  time.Time       `json:"submissionDate" bson:"submissionDate"`
	StatusChangeAt  *time.Time      `json:"statusChangeAt,omitempty" bson:"statusChangeAt,omitempty"`
	CustomerDetails CustomerDetails `json:"customerDetails" bson:"customerDetails"`
	EarningAmount   float64         `json:"earningAmount,omitempty" bson:"earningAmount,omitempty"`
}

// ViewStatus is the status shown to operators, including the derived expired state.
func (l *Lead) ViewStatus(now time.Time) LeadStatus {
	if l.Status == LeadStatusPending && !l.SubmissionDate.IsZero() &&
		l.SubmissionDate.Before(LeadExpiryCutoff(now)) {
		return LeadStatusExpired
	}
	return l.Status
}

// LeadView is a lead as returned by the listing endpoints.
type LeadView struct {
	Lead
	ViewStatus LeadStatus `json:"viewStatus"`
}

type LeadStatusUpdate struct {
	Status LeadStatus `json:"status" validate:"required"`
}

type ApproveLeadRequest struct {
	ApproveAmount AmountInput `json:"approveAmount"`
}

// AmountInput accepts an amount typed by an operator either as a JSON number or a string.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	*a = AmountInput(b)
	return nil
}

// LeadUpdate carries the operator-editable lead fields.
type LeadUpdate struct {
	BankID          *string          `json:"bankId,omitempty"`
	ServiceID       *string          `json:"serviceId,omitempty"`
	CustomerDetails *CustomerDetails `json:"customerDetails,omitempty"`
	EarningAmount   *float64         `json:"earningAmount,omitempty" validate:"omitempty,gte=0"`
}

// LeadFilter narrows a lead listing. Zero values match everything.
type LeadFilter struct {
	Status LeadStatus
	Query  string
	From   *time.Time
	To     *time.Time
}
