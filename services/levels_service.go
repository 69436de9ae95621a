package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"go.uber.org/zap"
)

// LevelService manages the levelEarning tiers the approval engine pays bonuses from.
type LevelService struct {
	store  *repositories.Store
	logger *zap.Logger
}

func NewLevelService(store *repositories.Store, logger *zap.Logger) *LevelService {
	return &LevelService{store: store, logger: logger}
}

func (s *LevelService) List(ctx context.Context) ([]models.LevelTier, error) {
	tiers, err := s.store.Levels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list level tiers: %w", err)
	}
	return tiers, nil
}

// Upsert stores a tier under its lowercased name.
func (s *LevelService) Upsert(ctx context.Context, session *models.Session, tier models.LevelTier) (*models.LevelTier, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	tier.Name = strings.ToLower(strings.TrimSpace(tier.Name))
	if tier.Name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidTier)
	}
	if tier.LeadsRequired < 1 || tier.Earning < 0 {
		return nil, fmt.Errorf("%w: leadsRequired must be positive and earning not negative", ErrInvalidTier)
	}
	if err := s.store.Levels.Upsert(ctx, tier); err != nil {
		return nil, fmt.Errorf("save level tier: %w", err)
	}
	s.logger.Info("level tier saved",
		zap.String("tier", tier.Name),
		zap.Int("leads_required", tier.LeadsRequired),
		zap.Float64("earning", tier.Earning),
		zap.String("operator_id", session.OperatorID))
	return &tier, nil
}

func (s *LevelService) Delete(ctx context.Context, session *models.Session, name string) error {
	if !session.IsAdmin() {
		return ErrForbidden
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if err := s.store.Levels.Delete(ctx, name); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrLevelNotFound
		}
		return fmt.Errorf("delete level tier: %w", err)
	}
	s.logger.Info("level tier deleted", zap.String("tier", name), zap.String("operator_id", session.OperatorID))
	return nil
}
