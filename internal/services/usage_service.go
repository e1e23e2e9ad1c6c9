package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"resale-api/internal/config"
	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
	"resale-api/internal/repository"
)

type UsageStats struct {
	Plan      models.PlanTier `json:"plan"`
	Used      int             `json:"used"`
	Limit     int             `json:"limit"`
	Remaining int             `json:"remaining"`
	PeriodEnd time.Time       `json:"period_end"`
}

type UsageService interface {
	CheckQuota(profile *models.Profile) error
	RecordEvaluation(ctx context.Context, userID uuid.UUID) error
	CurrentUsage(profile *models.Profile) *UsageStats
	ResetMonthlyCounters(ctx context.Context) (int64, error)
	LimitFor(plan models.PlanTier) int
}

type usageService struct {
	profileRepo repository.ProfileRepository
	planConfig  *config.PlanLimitConfig
}

func NewUsageService(profileRepo repository.ProfileRepository, planConfig *config.PlanLimitConfig) UsageService {
	return &usageService{
		profileRepo: profileRepo,
		planConfig:  planConfig,
	}
}

func (s *usageService) CheckQuota(profile *models.Profile) error {
	limit := s.planConfig.LimitFor(profile.Plan)
	if profile.EvaluationsThisMonth >= limit {
		return errors.ErrQuotaExceeded
	}
	return nil
}

func (s *usageService) RecordEvaluation(ctx context.Context, userID uuid.UUID) error {
	return s.profileRepo.IncrementUsage(ctx, userID)
}

func (s *usageService) CurrentUsage(profile *models.Profile) *UsageStats {
	limit := s.planConfig.LimitFor(profile.Plan)
	remaining := limit - profile.EvaluationsThisMonth
	if remaining < 0 {
		remaining = 0
	}

	return &UsageStats{
		Plan:      profile.Plan,
		Used:      profile.EvaluationsThisMonth,
		Limit:     limit,
		Remaining: remaining,
		PeriodEnd: nextMonthStart(time.Now()),
	}
}

func (s *usageService) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	return s.profileRepo.ResetMonthlyCounters(ctx)
}

func (s *usageService) LimitFor(plan models.PlanTier) int {
	return s.planConfig.LimitFor(plan)
}

func nextMonthStart(now time.Time) time.Time {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 1, 0)
}
