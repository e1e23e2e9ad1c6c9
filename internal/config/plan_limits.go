package config

import (
	"resale-api/internal/models"
)

// PlanLimitConfig holds the monthly evaluation allowance for each plan tier.
type PlanLimitConfig struct {
	Limits map[models.PlanTier]int
}

func NewPlanLimitConfig() *PlanLimitConfig {
	return &PlanLimitConfig{
		Limits: map[models.PlanTier]int{
			models.FreePlan:     10,
			models.StarterPlan:  100,
			models.ProPlan:      500,
			models.BusinessPlan: 99999,
		},
	}
}

// LimitFor falls back to the free allowance for unknown tiers.
func (c *PlanLimitConfig) LimitFor(plan models.PlanTier) int {
	if limit, ok := c.Limits[plan]; ok {
		return limit
	}
	return c.Limits[models.FreePlan]
}
