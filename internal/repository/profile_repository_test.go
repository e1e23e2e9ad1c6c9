package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	db.Migrator().DropTable(&models.User{}, &models.Profile{}, &models.Evaluation{})
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.Evaluation{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestProfile(t *testing.T, db *gorm.DB, email string) *models.Profile {
	profile := &models.Profile{ID: uuid.New(), Email: email, Plan: models.FreePlan}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return profile
}

func TestIncrementUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile := createTestProfile(t, db, "counter@example.com")

	for i := 0; i < 3; i++ {
		assert.NoError(t, repo.IncrementUsage(ctx, profile.ID))
	}

	got, err := repo.GetByID(ctx, profile.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, got.EvaluationsThisMonth)
	assert.Equal(t, 3, got.EvaluationsTotal)
}

func TestIncrementUsageUnknownProfile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)

	err := repo.IncrementUsage(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestResetMonthlyCounters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	active := createTestProfile(t, db, "active@example.com")
	idle := createTestProfile(t, db, "idle@example.com")

	for i := 0; i < 5; i++ {
		assert.NoError(t, repo.IncrementUsage(ctx, active.ID))
	}

	affected, err := repo.ResetMonthlyCounters(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.GetByID(ctx, active.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, got.EvaluationsThisMonth)
	assert.Equal(t, 5, got.EvaluationsTotal)

	got, err = repo.GetByID(ctx, idle.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, got.EvaluationsThisMonth)
	assert.Equal(t, 0, got.EvaluationsTotal)
}

func TestUpdatePlan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile := createTestProfile(t, db, "upgrade@example.com")

	assert.NoError(t, repo.UpdatePlan(ctx, profile.ID, models.ProPlan))

	got, err := repo.GetByID(ctx, profile.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.ProPlan, got.Plan)
}

func TestUpdatePlanRejectsInvalidTier(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)

	profile := createTestProfile(t, db, "invalid@example.com")

	err := repo.UpdatePlan(context.Background(), profile.ID, "platinum")
	assert.ErrorIs(t, err, errors.ErrInvalidPlan)
}

func TestGetByStripeCustomerID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile := createTestProfile(t, db, "stripe@example.com")
	assert.NoError(t, repo.SetStripeCustomerID(ctx, profile.ID, "cus_123"))

	got, err := repo.GetByStripeCustomerID(ctx, "cus_123")
	assert.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	_, err = repo.GetByStripeCustomerID(ctx, "cus_missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
