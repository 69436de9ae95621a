package models

// ApprovalResult reports everything one lead approval wrote.
type ApprovalResult struct {
	LeadID                string          `json:"leadId"`
	AgentID               string          `json:"agentId"`
	SaleEarningID         string          `json:"saleEarningId"`
	Amount                float64         `json:"amount"`
	MonthlyApprovedCount  int             `json:"monthlyApprovedCount"`
	LifetimeApprovedCount int             `json:"lifetimeApprovedCount"`
	Bonus                 *BonusOutcome   `json:"bonus"`
	Referral              *ReferralPayout `json:"referral"`
}

type BonusOutcome struct {
	Tier      string  `json:"tier"`
	Amount    float64 `json:"amount"`
	EarningID string  `json:"earningId"`
}

type ReferralPayout struct {
	ReferralID      string  `json:"referralId"`
	ReferringUserID string  `json:"referringUserId"`
	EarningID       string  `json:"earningId,omitempty"`
	Amount          float64 `json:"amount"`
}

// WithdrawalResult reports the outcome of approving a withdraw request.
type WithdrawalResult struct {
	Request         *WithdrawRequest `json:"request"`
	PaidEarningIDs  []string         `json:"paidEarningIds"`
	SkippedEarnings []string         `json:"skippedEarningIds"`
	PaidHistoryID   string           `json:"paidHistoryId"`
}
