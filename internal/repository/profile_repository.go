package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanTier) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	ResetMonthlyCounters(ctx context.Context) (int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).Create(profile)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create profile")
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).First(&profile, "id = ?", id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get profile by ID")
	}

	return &profile, nil
}

func (r *profileRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).First(&profile, "stripe_customer_id = ?", customerID)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get profile by Stripe customer ID")
	}

	return &profile, nil
}

func (r *profileRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"stripe_customer_id": customerID,
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to set Stripe customer ID")
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (r *profileRepository) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanTier) error {
	if !plan.Valid() {
		return errors.ErrInvalidPlan
	}

	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"plan":       plan,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update plan")
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps both the rolling monthly counter and the lifetime
// counter for one profile.
func (r *profileRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Profile{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"evaluations_this_month": gorm.Expr("evaluations_this_month + 1"),
				"evaluations_total":      gorm.Expr("evaluations_total + 1"),
				"updated_at":             time.Now(),
			})

		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to increment usage")
		}
		if result.RowsAffected == 0 {
			return errors.ErrNotFound
		}
		return nil
	})
}

// ResetMonthlyCounters zeroes evaluations_this_month across all profiles,
// leaving evaluations_total untouched. Invoked by an external scheduler at
// the start of each month.
func (r *profileRepository) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("evaluations_this_month <> 0").
		UpdateColumns(map[string]interface{}{
			"evaluations_this_month": 0,
			"updated_at":             time.Now(),
		})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to reset monthly counters")
	}
	return result.RowsAffected, nil
}
