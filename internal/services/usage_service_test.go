package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"resale-api/internal/config"
	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
	"resale-api/internal/repository"
)

func newTestUsageService(t *testing.T) UsageService {
	db := setupTestDB(t)
	return NewUsageService(repository.NewProfileRepository(db), config.NewPlanLimitConfig())
}

func TestCheckQuotaPerPlan(t *testing.T) {
	usage := newTestUsageService(t)

	tests := []struct {
		plan  models.PlanTier
		limit int
	}{
		{models.FreePlan, 10},
		{models.StarterPlan, 100},
		{models.ProPlan, 500},
		{models.BusinessPlan, 99999},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			assert.Equal(t, tt.limit, usage.LimitFor(tt.plan))

			under := &models.Profile{ID: uuid.New(), Plan: tt.plan, EvaluationsThisMonth: tt.limit - 1}
			assert.NoError(t, usage.CheckQuota(under))

			at := &models.Profile{ID: uuid.New(), Plan: tt.plan, EvaluationsThisMonth: tt.limit}
			assert.ErrorIs(t, usage.CheckQuota(at), errors.ErrQuotaExceeded)
		})
	}
}

func TestCheckQuotaUnknownPlanFallsBackToFree(t *testing.T) {
	usage := newTestUsageService(t)

	profile := &models.Profile{ID: uuid.New(), Plan: "platinum", EvaluationsThisMonth: 10}
	assert.ErrorIs(t, usage.CheckQuota(profile), errors.ErrQuotaExceeded)
}

func TestCurrentUsage(t *testing.T) {
	usage := newTestUsageService(t)

	profile := &models.Profile{ID: uuid.New(), Plan: models.StarterPlan, EvaluationsThisMonth: 30}
	stats := usage.CurrentUsage(profile)

	assert.Equal(t, models.StarterPlan, stats.Plan)
	assert.Equal(t, 30, stats.Used)
	assert.Equal(t, 100, stats.Limit)
	assert.Equal(t, 70, stats.Remaining)
	assert.True(t, stats.PeriodEnd.After(time.Now()))
	assert.Equal(t, 1, stats.PeriodEnd.Day())
}

func TestCurrentUsageRemainingNeverNegative(t *testing.T) {
	usage := newTestUsageService(t)

	profile := &models.Profile{ID: uuid.New(), Plan: models.FreePlan, EvaluationsThisMonth: 25}
	stats := usage.CurrentUsage(profile)
	assert.Equal(t, 0, stats.Remaining)
}

func TestNextMonthStart(t *testing.T) {
	now := time.Date(2026, time.January, 17, 13, 45, 0, 0, time.UTC)
	next := nextMonthStart(now)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), next)

	december := time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), nextMonthStart(december))
}
