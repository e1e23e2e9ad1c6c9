package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
)

func createTestEvaluation(t *testing.T, repo EvaluationRepository, userID uuid.UUID, product string) *models.Evaluation {
	eval := &models.Evaluation{
		UserID:         userID,
		InputType:      models.TextInput,
		InputProduct:   product,
		InputPrice:     250,
		OutputScore:    7.0,
		OutputDecision: models.DecisionBuy,
	}
	if err := repo.Create(context.Background(), eval); err != nil {
		t.Fatalf("failed to create test evaluation: %v", err)
	}
	return eval
}

func TestGetByIDForUserScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	eval := createTestEvaluation(t, repo, owner, "PlayStation 5")

	got, err := repo.GetByIDForUser(ctx, eval.ID, owner)
	assert.NoError(t, err)
	assert.Equal(t, eval.ID, got.ID)

	// another user's id must not reach the row
	_, err = repo.GetByIDForUser(ctx, eval.ID, other)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestListByUserScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()

	createTestEvaluation(t, repo, owner, "iPhone 14")
	createTestEvaluation(t, repo, owner, "MacBook Air M2")
	createTestEvaluation(t, repo, other, "Nintendo Switch")

	evals, err := repo.ListByUser(ctx, owner, 20, 0)
	assert.NoError(t, err)
	assert.Len(t, evals, 2)
	for _, e := range evals {
		assert.Equal(t, owner, e.UserID)
	}

	count, err := repo.CountByUser(ctx, owner)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListByUserPagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	for i := 0; i < 5; i++ {
		createTestEvaluation(t, repo, owner, "GoPro Hero 12")
	}

	first, err := repo.ListByUser(ctx, owner, 2, 0)
	assert.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := repo.ListByUser(ctx, owner, 10, 2)
	assert.NoError(t, err)
	assert.Len(t, rest, 3)
}
