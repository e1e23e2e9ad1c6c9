package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resale-api/internal/pkg/errors"
)

type PlanTier string

const (
	FreePlan     PlanTier = "free"
	StarterPlan  PlanTier = "starter"
	ProPlan      PlanTier = "pro"
	BusinessPlan PlanTier = "business"
)

func (p PlanTier) Valid() bool {
	switch p {
	case FreePlan, StarterPlan, ProPlan, BusinessPlan:
		return true
	}
	return false
}

// Profile is the per-user account record. Its id equals the owning user's id,
// which is what makes the relationship one-to-one.
type Profile struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email                string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Plan                 PlanTier  `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	EvaluationsThisMonth int       `gorm:"not null;default:0" json:"evaluations_this_month"`
	EvaluationsTotal     int       `gorm:"not null;default:0" json:"evaluations_total"`
	StripeCustomerID     string    `gorm:"type:varchar(255);index" json:"-"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if p.Plan == "" {
		p.Plan = FreePlan
	}
	if !p.Plan.Valid() {
		return errors.ErrInvalidPlan
	}
	return nil
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

func (p *Profile) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}

func (Profile) TableName() string {
	return "profiles"
}
