package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/utils"
	"go.uber.org/zap"
)

// LeadService covers the lead operations other than approval.
type LeadService struct {
	store  *repositories.Store
	clock  Clock
	logger *zap.Logger
}

func NewLeadService(store *repositories.Store, clock Clock, logger *zap.Logger) *LeadService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &LeadService{store: store, clock: clock, logger: logger}
}

// Search returns one page of the leads matching f in listing order, with the total match
// count. A zero limit returns every match.
func (s *LeadService) Search(ctx context.Context, f models.LeadFilter, page, limit int) ([]models.LeadView, int, error) {
	if !utils.ValidLeadStatusFilter(string(f.Status)) {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	now := s.clock.Now()
	leads, total, err := s.store.Leads.Search(ctx, f, now, repositories.Page{Skip: utils.Offset(page, limit), Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("search leads: %w", err)
	}

	views := make([]models.LeadView, 0, len(leads))
	for _, l := range leads {
		views = append(views, models.LeadView{Lead: l, ViewStatus: l.ViewStatus(now)})
	}
	return views, total, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*models.LeadView, error) {
	lead, err := s.store.Leads.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	return &models.LeadView{Lead: *lead, ViewStatus: lead.ViewStatus(s.clock.Now())}, nil
}

// UpdateStatus moves a lead to any stored status except approved, which only the
// approval engine may set.
func (s *LeadService) UpdateStatus(ctx context.Context, session *models.Session, id string, status models.LeadStatus) (*models.LeadView, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	if !status.IsValid() || status == models.LeadStatusApproved {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.store.Leads.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	if current.Status == models.LeadStatusApproved {
		return nil, ErrLeadAlreadyApproved
	}

	// The store re-checks approved atomically; an approval may have landed since the read.
	if err := s.store.Leads.UpdateStatus(ctx, id, status, s.clock.Now().UTC()); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrLeadNotFound
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrLeadAlreadyApproved
		}
		return nil, fmt.Errorf("update lead status: %w", err)
	}
	s.logger.Info("lead status changed",
		zap.String("lead_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
		zap.String("operator_id", session.OperatorID))
	return s.Get(ctx, id)
}

func (s *LeadService) Update(ctx context.Context, session *models.Session, id string, upd models.LeadUpdate) (*models.LeadView, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	if upd.BankID != nil {
		v := utils.SanitizeInput(*upd.BankID)
		upd.BankID = &v
	}
	if upd.ServiceID != nil {
		v := utils.SanitizeInput(*upd.ServiceID)
		upd.ServiceID = &v
	}
	if upd.CustomerDetails != nil {
		details := *upd.CustomerDetails
		if err := utils.SanitizeCustomer(&details); err != nil {
			return nil, err
		}
		upd.CustomerDetails = &details
	}
	if err := s.store.Leads.Update(ctx, id, upd); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return s.Get(ctx, id)
}
