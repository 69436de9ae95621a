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

var ErrDocumentNotFound = errors.New("document not found")

// AgentDetails is the agent details screen: profile, Details&Documents and referral state.
type AgentDetails struct {
	models.User
	Details      *models.UserDetails `json:"details"`
	ReferralLink string              `json:"referralLink,omitempty"`
	Referrals    []models.Referral   `json:"referrals"`
	UnpaidTotal  float64             `json:"unpaidTotal"`
}

type AgentService struct {
	store        *repositories.Store
	uploadsDir   string
	referralBase string
	logger       *zap.Logger
}

func NewAgentService(store *repositories.Store, uploadsDir, referralBase string, logger *zap.Logger) *AgentService {
	return &AgentService{store: store, uploadsDir: uploadsDir, referralBase: referralBase, logger: logger}
}

// Search returns one page of agents matching q and the total match count. A zero limit
// returns every match.
func (s *AgentService) Search(ctx context.Context, q string, page, limit int) ([]models.User, int, error) {
	agents, total, err := s.store.Users.SearchAgents(ctx, q, repositories.Page{Skip: utils.Offset(page, limit), Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("search agents: %w", err)
	}
	return agents, total, nil
}

func (s *AgentService) find(ctx context.Context, id string) (*models.User, error) {
	agent, err := s.store.Users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	return agent, nil
}

func (s *AgentService) Get(ctx context.Context, id string) (*AgentDetails, error) {
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := s.store.Users.GetDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load agent details: %w", err)
	}
	referrals, err := s.store.Referrals.ListByReferrer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load referrals: %w", err)
	}
	unpaid, err := s.store.Earnings.ListByUser(ctx, id, models.EarningStatusUnpaid)
	if err != nil {
		return nil, fmt.Errorf("load unpaid earnings: %w", err)
	}

	out := &AgentDetails{User: *agent, Details: details, Referrals: referrals}
	for _, e := range unpaid {
		out.UnpaidTotal += e.Amount
	}
	if link, err := utils.ReferralLink(s.referralBase, agent.UniqueID); err == nil {
		out.ReferralLink = link
	}
	return out, nil
}

func (s *AgentService) Update(ctx context.Context, session *models.Session, id string, upd models.UserUpdate) (*AgentDetails, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := utils.SanitizeUserUpdate(&upd); err != nil {
		return nil, err
	}
	if err := s.store.Users.UpdateProfile(ctx, id, upd); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("update agent: %w", err)
	}
	s.logger.Info("agent profile updated", zap.String("agent_id", id), zap.String("operator_id", session.OperatorID))
	return s.Get(ctx, id)
}

// Earnings lists the agent's earnings history. status may be empty, "unpaid" or "paid".
func (s *AgentService) Earnings(ctx context.Context, id string, status models.EarningStatus) ([]models.EarningRecord, error) {
	switch status {
	case "", models.EarningStatusUnpaid, models.EarningStatusPaid:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.store.Earnings.ListByUser(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return records, nil
}

func (s *AgentService) PaidHistory(ctx context.Context, id string) ([]models.PaidHistory, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.store.PaidHistory.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list paid history: %w", err)
	}
	return history, nil
}

// ReferralQR renders the agent's referral link as a PNG QR code.
func (s *AgentService) ReferralQR(ctx context.Context, id string, size int) ([]byte, error) {
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	link, err := utils.ReferralLink(s.referralBase, agent.UniqueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}
	return utils.ReferralQRCode(link, size)
}

// DocumentThumbnail previews one of the agent's uploaded documents by name.
func (s *AgentService) DocumentThumbnail(ctx context.Context, id, name string) ([]byte, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	details, err := s.store.Users.GetDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load agent details: %w", err)
	}

	for _, doc := range details.Documents {
		if doc.Name != name {
			continue
		}
		path, err := utils.ResolveUpload(s.uploadsDir, doc.Path)
		if err != nil {
			return nil, err
		}
		thumb, err := utils.DocumentThumbnail(path)
		if errors.Is(err, utils.ErrFileNotFound) {
			s.logger.Warn("document file missing", zap.String("agent_id", id), zap.String("path", doc.Path))
			return nil, ErrDocumentNotFound
		}
		return thumb, err
	}
	return nil, ErrDocumentNotFound
}
