package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const dashboardCacheKey = "dashboard:counts"

// DashboardCounts feeds the overview tiles.
type DashboardCounts struct {
	NewLeads      int `json:"newLeads"`
	ApprovedLeads int `json:"approvedLeads"`
	DeclinedLeads int `json:"declinedLeads"`
	TotalLeads    int `json:"totalLeads"`
	TotalAgents   int `json:"totalAgents"`
	PendingPayout int `json:"pendingWithdrawals"`
}

// DashboardService computes the counts and caches them in Redis when available.
type DashboardService struct {
	store  *repositories.Store
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDashboardService(store *repositories.Store, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, cache: cache, ttl: ttl, logger: logger}
}

func (s *DashboardService) Counts(ctx context.Context) (*DashboardCounts, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
			var cached DashboardCounts
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	byStatus, err := s.store.Leads.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	agents, err := s.store.Users.CountAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}
	requests, err := s.store.Withdrawals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list withdraw requests: %w", err)
	}

	counts := &DashboardCounts{
		NewLeads:      byStatus[models.LeadStatusNew],
		ApprovedLeads: byStatus[models.LeadStatusApproved],
		DeclinedLeads: byStatus[models.LeadStatusDecline],
		TotalAgents:   agents,
	}
	for _, n := range byStatus {
		counts.TotalLeads += n
	}
	for _, r := range requests {
		if r.Status == models.WithdrawStatusPending {
			counts.PendingPayout++
		}
	}

	if s.cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return counts, nil
}

// Invalidate drops the cached counts after a write that changes them.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
