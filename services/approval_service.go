package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ApprovalService is the lead approval engine: it approves a lead, records the sale earning,
// and pays the monthly level bonus and the one-time referral bonus that approval unlocks.
type ApprovalService struct {
	store    *repositories.Store
	locker   AgentLocker
	notifier Notifier
	metrics  *metrics.Metrics
	clock    Clock
	cfg      config.ApprovalConfig
	logger   *zap.Logger
}

func NewApprovalService(
	store *repositories.Store,
	locker AgentLocker,
	notifier Notifier,
	m *metrics.Metrics,
	clock Clock,
	cfg config.ApprovalConfig,
	logger *zap.Logger,
) *ApprovalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ApprovalService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		metrics:  m,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// ApproveLead runs the approval sequence for one lead. A failing step aborts the remaining
// ones; steps already committed stay committed and nothing is retried.
func (s *ApprovalService) ApproveLead(ctx context.Context, session *models.Session, leadID, approveAmount string) (*models.ApprovalResult, error) {
	began := time.Now()
	log := s.logger.With(zap.String("lead_id", leadID))
	if session != nil {
		log = log.With(zap.String("operator_id", session.OperatorID))
	}

	result, agent, err := s.approve(ctx, session, leadID, approveAmount)
	s.metrics.RecordApproval(err == nil, time.Since(began))
	if err != nil {
		step := StepValidate
		var ae *ApprovalError
		if errors.As(err, &ae) {
			step = ae.Step
		}
		s.metrics.RecordApprovalFailure(step)
		fields := []zap.Field{zap.String("step", step), zap.Error(err)}
		if agent != nil {
			fields = append(fields, zap.String("agent_id", agent.ID))
		}
		log.Error("lead approval failed", fields...)
		return nil, err
	}

	log.Info("lead approved",
		zap.String("agent_id", result.AgentID),
		zap.Float64("amount", result.Amount),
		zap.Int("monthly_count", result.MonthlyApprovedCount),
		zap.Bool("bonus", result.Bonus != nil),
		zap.Bool("referral", result.Referral != nil),
	)
	s.notifier.LeadApproved(ctx, agent, result)
	return result, nil
}

func (s *ApprovalService) approve(ctx context.Context, session *models.Session, leadID, rawAmount string) (*models.ApprovalResult, *models.User, error) {
	if !session.IsAdmin() {
		return nil, nil, stepError(StepValidate, ErrForbidden)
	}

	lead, err := s.store.Leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, stepError(StepValidate, ErrLeadNotFound)
		}
		return nil, nil, stepError(StepValidate, fmt.Errorf("load lead: %w", err))
	}
	if lead.UserID == "" {
		return nil, nil, stepError(StepValidate, ErrLeadHasNoAgent)
	}
	if lead.Status == models.LeadStatusApproved {
		return nil, nil, stepError(StepValidate, ErrLeadAlreadyApproved)
	}

	agent, err := s.store.Users.FindByID(ctx, lead.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, stepError(StepValidate, ErrAgentNotFound)
		}
		return nil, nil, stepError(StepValidate, fmt.Errorf("load agent: %w", err))
	}

	amount, err := s.parseAmount(rawAmount)
	if err != nil {
		return nil, agent, stepError(StepValidate, err)
	}

	now := s.clock.Now().UTC()
	result := &models.ApprovalResult{LeadID: lead.ID, AgentID: agent.ID, Amount: amount}

	// Steps 1 and 2 commit together.
	err = s.store.Tx.WithTransaction(ctx, func(tx context.Context) error {
		if err := s.store.Leads.MarkApproved(tx, lead.ID, now); err != nil {
			switch {
			case errors.Is(err, repositories.ErrConflict):
				return stepError(StepMarkApproved, ErrLeadAlreadyApproved)
			case errors.Is(err, repositories.ErrNotFound):
				return stepError(StepMarkApproved, ErrLeadNotFound)
			}
			return stepError(StepMarkApproved, err)
		}

		saleID, err := s.store.Earnings.Insert(tx, &models.EarningRecord{
			UserID: agent.ID,
			Amount: amount,
			Date:   now,
			LeadID: lead.ID,
			Type:   models.EarningTypeSale,
			Status: models.EarningStatusUnpaid,
		})
		if err != nil {
			return stepError(StepSaleEarning, err)
		}

		lifetime, err := s.store.Users.IncrementApprovedLeads(tx, agent.ID)
		if err != nil {
			return stepError(StepSaleEarning, fmt.Errorf("count approval on agent: %w", err))
		}

		result.SaleEarningID = saleID
		result.LifetimeApprovedCount = lifetime
		return nil
	})
	if err != nil {
		var ae *ApprovalError
		if !errors.As(err, &ae) {
			err = stepError(StepMarkApproved, err)
		}
		return nil, agent, err
	}
	s.metrics.RecordEarning(string(models.EarningTypeSale), amount)

	// The lead is approved from here on; the operator dropping the request must not cut
	// the remaining steps short.
	ctx = context.WithoutCancel(ctx)

	// Steps 3 and 4 run under the agent lock so concurrent approvals see each other's counts.
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait())
	unlock, err := s.locker.Lock(lockCtx, agent.ID)
	cancel()
	if err != nil {
		return nil, agent, stepError(StepAgentLock, err)
	}
	defer unlock()

	start, end := MonthWindow(now)
	count, err := s.store.Leads.CountApprovedBetween(ctx, agent.ID, start, end)
	if err != nil {
		return nil, agent, stepError(StepMonthlyCount, err)
	}
	result.MonthlyApprovedCount = count

	bonus, err := s.awardLevelBonus(ctx, agent.ID, count, now)
	if err != nil {
		return nil, agent, stepError(StepLevelBonus, err)
	}
	result.Bonus = bonus

	// A referral still pending after any approval means the first one never got this far.
	// The conditional flip keeps the payout to one.
	payout, err := s.applyReferralBonus(ctx, agent.ID, now)
	if err != nil {
		return nil, agent, stepError(StepReferralBonus, err)
	}
	result.Referral = payout

	return result, agent, nil
}

func (s *ApprovalService) lockWait() time.Duration {
	if s.cfg.AgentLockTTL > 0 {
		return s.cfg.AgentLockTTL
	}
	return 15 * time.Second
}

func (s *ApprovalService) parseAmount(raw string) (float64, error) {
	amount, err := utils.ParseAmount(raw)
	if err == nil {
		return amount, nil
	}
	if s.cfg.StrictAmount || errors.Is(err, utils.ErrAmountNegative) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	s.logger.Warn("non-numeric approve amount coerced to 0", zap.String("amount", raw))
	return 0, nil
}

// awardLevelBonus pays the highest tier reached this month unless the ledger already holds it.
func (s *ApprovalService) awardLevelBonus(ctx context.Context, agentID string, count int, now time.Time) (*models.BonusOutcome, error) {
	tiers, err := s.store.Levels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load level tiers: %w", err)
	}

	tier, ok := HighestTierReached(tiers, count)
	if !ok {
		return nil, nil
	}
	tierName := strings.ToLower(tier.Name)
	month := MonthKey(now)

	awarded, err := s.store.Bonuses.Exists(ctx, agentID, tierName, month)
	if err != nil {
		return nil, err
	}
	if awarded {
		return nil, nil
	}

	earningID := primitive.NewObjectID().Hex()
	err = s.store.Tx.WithTransaction(ctx, func(tx context.Context) error {
		// The ledger insert goes first: its unique index decides who awards.
		if err := s.store.Bonuses.Insert(tx, &models.BonusAward{
			UserID:    agentID,
			Tier:      tierName,
			Month:     month,
			EarningID: earningID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		_, err := s.store.Earnings.Insert(tx, &models.EarningRecord{
			ID:     earningID,
			UserID: agentID,
			Amount: tier.Earning,
			Date:   now,
			Type:   models.EarningTypeBonus,
			Status: models.EarningStatusUnpaid,
			Tier:   tierName,
		})
		return err
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		s.logger.Info("level bonus already awarded", zap.String("agent_id", agentID), zap.String("tier", tierName), zap.String("month", month))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("award %s bonus: %w", tierName, err)
	}

	s.metrics.RecordBonus(tierName)
	s.metrics.RecordEarning(string(models.EarningTypeBonus), tier.Earning)
	return &models.BonusOutcome{Tier: tierName, Amount: tier.Earning, EarningID: earningID}, nil
}

var errReferralSettled = errors.New("referral already approved")

// applyReferralBonus flips the agent's pending referral to approved and pays the referring
// agent. An agent without a referral, or with one already approved, is not an error.
func (s *ApprovalService) applyReferralBonus(ctx context.Context, agentID string, now time.Time) (*models.ReferralPayout, error) {
	ref, err := s.store.Referrals.FindByReferred(ctx, agentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load referral: %w", err)
	}
	if ref.Status == models.ReferralStatusApproved {
		return nil, nil
	}

	payout := &models.ReferralPayout{ReferralID: ref.ID, ReferringUserID: ref.ReferringUserID}
	err = s.store.Tx.WithTransaction(ctx, func(tx context.Context) error {
		if err := s.store.Referrals.MarkApproved(tx, ref.ID, now); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return errReferralSettled
			}
			return err
		}
		if ref.ReferringUserID == "" {
			return nil
		}

		id, err := s.store.Earnings.Insert(tx, &models.EarningRecord{
			UserID: ref.ReferringUserID,
			Amount: s.cfg.ReferralBonus,
			Date:   now,
			Type:   models.EarningTypeReferral,
			Status: models.EarningStatusUnpaid,
		})
		if err != nil {
			return err
		}
		payout.EarningID = id
		payout.Amount = s.cfg.ReferralBonus
		return nil
	})
	if errors.Is(err, errReferralSettled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply referral %s: %w", ref.ID, err)
	}

	s.metrics.RecordReferral()
	if ref.ReferringUserID == "" {
		s.logger.Warn("referral has no referring agent, nothing paid", zap.String("referral_id", ref.ID))
	} else {
		s.metrics.RecordEarning(string(models.EarningTypeReferral), s.cfg.ReferralBonus)
	}
	return payout, nil
}
