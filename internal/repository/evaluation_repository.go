package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
)

// EvaluationRepository exposes create and read only: evaluation rows are
// immutable. Every read is scoped to the owning user id, which is the
// owner-match predicate of the schema's row-level security policies.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Evaluation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Evaluation, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	result := r.db.WithContext(ctx).Create(evaluation)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create evaluation")
	}
	return nil
}

func (r *evaluationRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	result := r.db.WithContext(ctx).
		First(&evaluation, "id = ? AND user_id = ?", id, userID)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get evaluation")
	}

	return &evaluation, nil
}

func (r *evaluationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Evaluation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&evaluations).Error

	if err != nil {
		return nil, errors.Wrap(err, "failed to list evaluations")
	}
	return evaluations, nil
}

func (r *evaluationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("user_id = ?", userID).
		Count(&count).Error

	if err != nil {
		return 0, errors.Wrap(err, "failed to count evaluations")
	}
	return count, nil
}
