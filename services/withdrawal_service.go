package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/utils"
	"go.uber.org/zap"
)

// WithdrawalService settles agent withdraw requests.
type WithdrawalService struct {
	store    *repositories.Store
	notifier Notifier
	metrics  *metrics.Metrics
	clock    Clock
	logger   *zap.Logger
}

func NewWithdrawalService(store *repositories.Store, notifier Notifier, m *metrics.Metrics, clock Clock, logger *zap.Logger) *WithdrawalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &WithdrawalService{store: store, notifier: notifier, metrics: m, clock: clock, logger: logger}
}

func (s *WithdrawalService) load(ctx context.Context, session *models.Session, id string) (*models.WithdrawRequest, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	req, err := s.store.Withdrawals.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrWithdrawRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load withdraw request: %w", err)
	}
	if req.Status != models.WithdrawStatusPending {
		return nil, ErrWithdrawRequestProcessed
	}
	return req, nil
}

// Approve pays out a pending request: the referenced unpaid earnings of the agent become paid,
// a PaidHistory entry is written and the agent's earnings counter grows by the requested amount.
func (s *WithdrawalService) Approve(ctx context.Context, session *models.Session, id, note string) (*models.WithdrawalResult, error) {
	req, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	result := &models.WithdrawalResult{}

	err = s.store.Tx.WithTransaction(ctx, func(tx context.Context) error {
		// Reset on retry.
		result.PaidEarningIDs = []string{}
		result.SkippedEarnings = []string{}

		if err := s.store.Withdrawals.MarkProcessed(tx, req.ID, models.WithdrawStatusApproved, session.OperatorID, note, now); err != nil {
			return mapWithdrawErr(err)
		}

		seen := make(map[string]bool, len(req.EarningIDs))
		for _, eid := range req.EarningIDs {
			if eid == "" || seen[eid] {
				continue
			}
			seen[eid] = true

			err := s.store.Earnings.MarkPaid(tx, req.UserID, eid, now)
			switch {
			case err == nil:
				result.PaidEarningIDs = append(result.PaidEarningIDs, eid)
			case errors.Is(err, repositories.ErrNotFound), errors.Is(err, repositories.ErrConflict):
				result.SkippedEarnings = append(result.SkippedEarnings, eid)
			default:
				return fmt.Errorf("mark earning %s paid: %w", eid, err)
			}
		}

		paidID, err := s.store.PaidHistory.Insert(tx, &models.PaidHistory{
			UserID:            req.UserID,
			Amount:            req.Amount,
			Date:              now,
			WithdrawRequestID: req.ID,
		})
		if err != nil {
			return fmt.Errorf("record paid history: %w", err)
		}
		result.PaidHistoryID = paidID

		if err := s.store.Users.IncrementEarnings(tx, req.UserID, req.Amount); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrAgentNotFound
			}
			return fmt.Errorf("increment agent earnings: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("withdrawal approval failed", zap.String("withdraw_request_id", id), zap.String("agent_id", req.UserID), zap.Error(err))
		return nil, err
	}

	req.Status = models.WithdrawStatusApproved
	req.ProcessedAt = &now
	req.AdminID = session.OperatorID
	req.AdminNote = note
	result.Request = req

	if len(result.SkippedEarnings) > 0 {
		s.logger.Warn("withdrawal referenced earnings that were not payable",
			zap.String("withdraw_request_id", id), zap.Strings("earning_ids", result.SkippedEarnings))
	}
	s.logger.Info("withdrawal approved", zap.String("withdraw_request_id", id), zap.String("agent_id", req.UserID), zap.Float64("amount", req.Amount))
	s.metrics.RecordWithdrawal(string(models.WithdrawStatusApproved))
	s.notify(ctx, req)
	return result, nil
}

// Reject closes a pending request without paying anything.
func (s *WithdrawalService) Reject(ctx context.Context, session *models.Session, id, note string) (*models.WithdrawRequest, error) {
	req, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.store.Withdrawals.MarkProcessed(ctx, req.ID, models.WithdrawStatusRejected, session.OperatorID, note, now); err != nil {
		return nil, mapWithdrawErr(err)
	}

	req.Status = models.WithdrawStatusRejected
	req.ProcessedAt = &now
	req.AdminID = session.OperatorID
	req.AdminNote = note

	s.logger.Info("withdrawal rejected", zap.String("withdraw_request_id", id), zap.String("agent_id", req.UserID))
	s.metrics.RecordWithdrawal(string(models.WithdrawStatusRejected))
	s.notify(ctx, req)
	return req, nil
}

// Delete removes a request that is still pending.
func (s *WithdrawalService) Delete(ctx context.Context, session *models.Session, id string) error {
	if _, err := s.load(ctx, session, id); err != nil {
		return err
	}
	if err := s.store.Withdrawals.DeletePending(ctx, id); err != nil {
		return mapWithdrawErr(err)
	}
	s.logger.Info("withdrawal deleted", zap.String("withdraw_request_id", id), zap.String("operator_id", session.OperatorID))
	s.metrics.RecordWithdrawal("deleted")
	return nil
}

func (s *WithdrawalService) notify(ctx context.Context, req *models.WithdrawRequest) {
	agent, err := s.store.Users.FindByID(ctx, req.UserID)
	if err != nil {
		s.logger.Warn("skip withdrawal notification, agent not loaded", zap.String("agent_id", req.UserID), zap.Error(err))
		return
	}
	s.notifier.WithdrawalProcessed(ctx, agent, req)
}

func mapWithdrawErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrWithdrawRequestNotFound
	case errors.Is(err, repositories.ErrConflict):
		return ErrWithdrawRequestProcessed
	default:
		return err
	}
}

// Search returns one page of withdraw requests joined with their agents and filtered by
// status and q, with the total match count. A zero limit returns every match.
func (s *WithdrawalService) Search(ctx context.Context, status, q string, page, limit int) ([]models.WithdrawRequestView, int, error) {
	switch status {
	case "", "all", string(models.WithdrawStatusPending), string(models.WithdrawStatusApproved), string(models.WithdrawStatusRejected):
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	views, total, err := s.store.Withdrawals.Search(ctx, status, q, repositories.Page{Skip: utils.Offset(page, limit), Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("search withdraw requests: %w", err)
	}
	return views, total, nil
}

// WithdrawRequestDetails is one request with the agent's payout bank account.
type WithdrawRequestDetails struct {
	models.WithdrawRequestView
	BankDetails *models.BankDetails `json:"bankDetails"`
}

func (s *WithdrawalService) Get(ctx context.Context, id string) (*WithdrawRequestDetails, error) {
	req, err := s.store.Withdrawals.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrWithdrawRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load withdraw request: %w", err)
	}

	details := &WithdrawRequestDetails{WithdrawRequestView: models.WithdrawRequestView{WithdrawRequest: *req}}
	agent, err := s.store.Users.FindByID(ctx, req.UserID)
	if err == nil {
		details.UserName = agent.FullName
		details.UserEmail = agent.Email
		details.UserMobile = agent.Mobile
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load agent: %w", err)
	}

	extra, err := s.store.Users.GetDetails(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load bank details: %w", err)
	}
	details.BankDetails = extra.Bank
	return details, nil
}
