package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resale-api/internal/config"
	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
	"resale-api/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	db.Migrator().DropTable(&models.User{}, &models.Profile{}, &models.Evaluation{}, &models.AdminToken{})
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.Evaluation{}, &models.AdminToken{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestEvaluator(t *testing.T, db *gorm.DB) (EvaluatorService, uuid.UUID) {
	profileRepo := repository.NewProfileRepository(db)
	evalRepo := repository.NewEvaluationRepository(db)
	usage := NewUsageService(profileRepo, config.NewPlanLimitConfig())

	user := &models.User{Email: "buyer@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	evaluator := NewEvaluatorService(
		NewMockDealClient(),
		ReferencePrices{Categories: map[string]map[string]ReferencePrice{
			"consoles": {"playstation 5": {New: 499, Used: 380}},
		}},
		evalRepo,
		usage,
		NewImageService(),
		nil,
		nil,
		15*time.Minute,
	)

	return evaluator, user.ID
}

func TestEvaluateTextPersistsAndCountsUsage(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)
	ctx := context.Background()

	result, err := evaluator.EvaluateText(ctx, userID, DealInput{
		Product: "PlayStation 5",
		Price:   200,
	})
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Equal(t, models.DecisionBuyNow, result.Recommendation.Decision)
	assert.Contains(t, result.ScoreDisplay, "/10")

	var record models.Evaluation
	assert.NoError(t, db.First(&record, "id = ?", result.ID).Error)
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, models.TextInput, record.InputType)
	assert.Equal(t, "PlayStation 5", record.InputProduct)
	assert.Equal(t, int64(200), record.InputPrice)
	assert.Equal(t, result.Scores.Total, record.OutputScore)
	assert.Equal(t, models.DecisionBuyNow, record.OutputDecision)

	var full EvaluationResult
	assert.NoError(t, json.Unmarshal(record.OutputFull, &full))
	assert.Equal(t, result.ID, full.ID)

	var profile models.Profile
	assert.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.Equal(t, 1, profile.EvaluationsThisMonth)
	assert.Equal(t, 1, profile.EvaluationsTotal)
}

func TestEvaluateTextValidation(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)
	ctx := context.Background()

	tests := []struct {
		name  string
		input DealInput
	}{
		{"product too short", DealInput{Product: "PS", Price: 200}},
		{"zero price", DealInput{Product: "PlayStation 5", Price: 0}},
		{"negative price", DealInput{Product: "PlayStation 5", Price: -10}},
		{"price too high", DealInput{Product: "PlayStation 5", Price: 50000001}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluator.EvaluateText(ctx, userID, tt.input)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}

	// nothing persisted, nothing counted
	var count int64
	db.Model(&models.Evaluation{}).Count(&count)
	assert.Equal(t, int64(0), count)

	var profile models.Profile
	assert.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.Equal(t, 0, profile.EvaluationsThisMonth)
}

func TestEvaluateImagePersistsImageRow(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)
	ctx := context.Background()

	result, err := evaluator.EvaluateImage(ctx, userID, makeTestPNG(t, 400, 300))
	assert.NoError(t, err)
	assert.True(t, result.Success)

	var record models.Evaluation
	assert.NoError(t, db.First(&record, "id = ?", result.ID).Error)
	assert.Equal(t, models.ImageInput, record.InputType)
	assert.Equal(t, "unidentified listing", record.InputProduct)

	// no projection exists for screenshots, so no margin display either
	var full map[string]interface{}
	assert.NoError(t, json.Unmarshal(record.OutputFull, &full))
	assert.NotContains(t, full, "margin_display")

	var profile models.Profile
	assert.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.Equal(t, 1, profile.EvaluationsThisMonth)
}

func TestEvaluateImageRejectsInvalidData(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)

	_, err := evaluator.EvaluateImage(context.Background(), userID, []byte("not an image"))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestGetEvaluationScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)
	ctx := context.Background()

	result, err := evaluator.EvaluateText(ctx, userID, DealInput{Product: "PlayStation 5", Price: 300})
	assert.NoError(t, err)

	got, err := evaluator.GetEvaluation(ctx, result.ID, userID)
	assert.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)

	_, err = evaluator.GetEvaluation(ctx, result.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

type countingDealClient struct {
	calls  int
	result *DealEvaluation
}

func (c *countingDealClient) EvaluateDeal(ctx context.Context, input DealInput, refs ReferencePrices) (*DealEvaluation, error) {
	c.calls++
	return c.result, nil
}

func (c *countingDealClient) EvaluateScreenshot(ctx context.Context, image []byte, refs ReferencePrices) (*ImageEvaluation, error) {
	c.calls++
	return &ImageEvaluation{}, nil
}

type stubCache struct {
	store  map[string]string
	getErr error
	setErr error
	sets   int
}

func newStubCache() *stubCache {
	return &stubCache{store: map[string]string{}}
}

func (c *stubCache) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	value, ok := c.store[key]
	if !ok {
		return "", fmt.Errorf("cache miss")
	}
	return value, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = string(data)
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func newCachedEvaluator(t *testing.T, db *gorm.DB, client DealClient, cache CacheService) (EvaluatorService, uuid.UUID) {
	profileRepo := repository.NewProfileRepository(db)
	usage := NewUsageService(profileRepo, config.NewPlanLimitConfig())

	user := &models.User{Email: "cached@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	evaluator := NewEvaluatorService(
		client,
		ReferencePrices{Categories: map[string]map[string]ReferencePrice{}},
		repository.NewEvaluationRepository(db),
		usage,
		NewImageService(),
		nil,
		cache,
		15*time.Minute,
	)
	return evaluator, user.ID
}

func TestEvaluateTextCacheHitSkipsModelCall(t *testing.T) {
	db := setupTestDB(t)
	client := &countingDealClient{result: &DealEvaluation{
		Recommendation: Recommendation{Decision: models.DecisionBuy},
	}}
	cache := newStubCache()
	evaluator, userID := newCachedEvaluator(t, db, client, cache)
	ctx := context.Background()

	cached := DealEvaluation{
		Scores:         Scores{Total: 9.1},
		Recommendation: Recommendation{Decision: models.DecisionNegotiate},
	}
	payload, err := json.Marshal(cached)
	assert.NoError(t, err)
	cache.store[DealCacheKey("PlayStation 5", 300, "")] = string(payload)

	result, err := evaluator.EvaluateText(ctx, userID, DealInput{Product: "PlayStation 5", Price: 300})
	assert.NoError(t, err)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, models.DecisionNegotiate, result.Recommendation.Decision)
	assert.Equal(t, 9.1, result.Scores.Total)
}

func TestEvaluateTextCacheMissStoresResult(t *testing.T) {
	db := setupTestDB(t)
	client := &countingDealClient{result: &DealEvaluation{
		Recommendation: Recommendation{Decision: models.DecisionBuy},
	}}
	cache := newStubCache()
	evaluator, userID := newCachedEvaluator(t, db, client, cache)
	ctx := context.Background()

	_, err := evaluator.EvaluateText(ctx, userID, DealInput{Product: "PlayStation 5", Price: 300})
	assert.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, cache.sets)

	// the second identical submission is served from the cache
	result, err := evaluator.EvaluateText(ctx, userID, DealInput{Product: "PlayStation 5", Price: 300})
	assert.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, models.DecisionBuy, result.Recommendation.Decision)
}

func TestEvaluateTextCacheErrorsDoNotFailEvaluation(t *testing.T) {
	db := setupTestDB(t)
	client := &countingDealClient{result: &DealEvaluation{
		Recommendation: Recommendation{Decision: models.DecisionBuy},
	}}
	cache := newStubCache()
	cache.getErr = fmt.Errorf("redis unreachable")
	cache.setErr = fmt.Errorf("redis unreachable")
	evaluator, userID := newCachedEvaluator(t, db, client, cache)

	result, err := evaluator.EvaluateText(context.Background(), userID, DealInput{Product: "PlayStation 5", Price: 300})
	assert.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, models.DecisionBuy, result.Recommendation.Decision)
}

func TestListEvaluationsReturnsTotal(t *testing.T) {
	db := setupTestDB(t)
	evaluator, userID := newTestEvaluator(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := evaluator.EvaluateText(ctx, userID, DealInput{Product: "PlayStation 5", Price: 300})
		assert.NoError(t, err)
	}

	evals, total, err := evaluator.ListEvaluations(ctx, userID, 2, 0)
	assert.NoError(t, err)
	assert.Len(t, evals, 2)
	assert.Equal(t, int64(3), total)
}
