package services

import (
	"errors"
	"fmt"
)

var (
	ErrLeadNotFound             = errors.New("lead not found")
	ErrAgentNotFound            = errors.New("agent not found")
	ErrLeadHasNoAgent           = errors.New("lead has no owning agent")
	ErrLeadAlreadyApproved      = errors.New("lead is already approved")
	ErrMalformedAmount          = errors.New("approve amount is malformed")
	ErrWithdrawRequestNotFound  = errors.New("withdraw request not found")
	ErrWithdrawRequestProcessed = errors.New("withdraw request already processed")
	ErrInvalidStatus            = errors.New("invalid status")
	ErrLevelNotFound            = errors.New("level tier not found")
	ErrInvalidTier              = errors.New("invalid level tier")
	ErrForbidden                = errors.New("operator is not allowed to do this")
)

// Approval steps, in execution order.
const (
	StepValidate      = "validate"
	StepMarkApproved  = "mark_approved"
	StepSaleEarning   = "record_sale_earning"
	StepAgentLock     = "agent_lock"
	StepMonthlyCount  = "monthly_count"
	StepLevelBonus    = "level_bonus"
	StepReferralBonus = "referral_bonus"
)

// ApprovalError names the engine step that failed. Steps before it stay committed.
type ApprovalError struct {
	Step string
	Err  error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("lead approval failed at %s: %v", e.Step, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	return &ApprovalError{Step: step, Err: err}
}
