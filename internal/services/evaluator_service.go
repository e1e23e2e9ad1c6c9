package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"resale-api/internal/logger"
	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
	"resale-api/internal/repository"
)

// EvaluationResult is the API-facing shape of a finished evaluation.
type EvaluationResult struct {
	ID uuid.UUID `json:"id"`
	DealEvaluation
	ScoreDisplay    string    `json:"score_display"`
	DecisionDisplay string    `json:"decision_display"`
	MarginDisplay   string    `json:"margin_display"`
	CreatedAt       time.Time `json:"created_at"`
}

// ImageEvaluationResult carries no margin display: the vision model extracts
// listing fields but does not project a resale margin.
type ImageEvaluationResult struct {
	ID      uuid.UUID `json:"id"`
	Success bool      `json:"success"`
	ImageEvaluation
	ScreenshotURL   string    `json:"screenshot_url,omitempty"`
	ScoreDisplay    string    `json:"score_display"`
	DecisionDisplay string    `json:"decision_display"`
	CreatedAt       time.Time `json:"created_at"`
}

type EvaluatorService interface {
	EvaluateText(ctx context.Context, userID uuid.UUID, input DealInput) (*EvaluationResult, error)
	EvaluateImage(ctx context.Context, userID uuid.UUID, image []byte) (*ImageEvaluationResult, error)
	GetEvaluation(ctx context.Context, id, userID uuid.UUID) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Evaluation, int64, error)
}

type evaluatorService struct {
	client   DealClient
	refs     ReferencePrices
	evalRepo repository.EvaluationRepository
	usage    UsageService
	images   *ImageService
	storage  StorageService
	cache    CacheService
	cacheTTL time.Duration
}

func NewEvaluatorService(
	client DealClient,
	refs ReferencePrices,
	evalRepo repository.EvaluationRepository,
	usage UsageService,
	images *ImageService,
	storage StorageService,
	cache CacheService,
	cacheTTL time.Duration,
) EvaluatorService {
	return &evaluatorService{
		client:   client,
		refs:     refs,
		evalRepo: evalRepo,
		usage:    usage,
		images:   images,
		storage:  storage,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (s *evaluatorService) EvaluateText(ctx context.Context, userID uuid.UUID, input DealInput) (*EvaluationResult, error) {
	if err := validateDealInput(input); err != nil {
		return nil, err
	}

	evaluation, err := s.evaluateWithCache(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &EvaluationResult{
		ID:              uuid.New(),
		DealEvaluation:  *evaluation,
		ScoreDisplay:    scoreDisplay(evaluation.Scores.Total),
		DecisionDisplay: decisionDisplay(evaluation.Recommendation.Decision),
		MarginDisplay:   marginDisplay(evaluation.Projection.GrossMargin, evaluation.Projection.MarginPercent),
		CreatedAt:       time.Now(),
	}

	full, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode evaluation result")
	}

	record := &models.Evaluation{
		ID:               result.ID,
		UserID:           userID,
		InputType:        models.TextInput,
		InputProduct:     input.Product,
		InputPrice:       input.Price,
		InputDescription: input.Description,
		OutputScore:      evaluation.Scores.Total,
		OutputDecision:   evaluation.Recommendation.Decision,
		OutputFull:       datatypes.JSON(full),
	}

	if err := s.evalRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := s.usage.RecordEvaluation(ctx, userID); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *evaluatorService) EvaluateImage(ctx context.Context, userID uuid.UUID, image []byte) (*ImageEvaluationResult, error) {
	if err := s.images.Validate(image); err != nil {
		return nil, err
	}

	normalized, err := s.images.Normalize(image)
	if err != nil {
		return nil, err
	}

	var screenshotURL string
	if s.storage != nil {
		// Archive failures must not block the evaluation
		url, archiveErr := s.storage.ArchiveScreenshot(ctx, userID, normalized)
		if archiveErr != nil {
			logger.Logger.WithFields(logrus.Fields{
				"user":  userID,
				"error": archiveErr,
			}).Warn("Failed to archive screenshot")
		} else {
			screenshotURL = url
		}
	}

	evaluation, err := s.client.EvaluateScreenshot(ctx, normalized, s.refs)
	if err != nil {
		return nil, err
	}

	result := &ImageEvaluationResult{
		ID:              uuid.New(),
		Success:         true,
		ImageEvaluation: *evaluation,
		ScreenshotURL:   screenshotURL,
		ScoreDisplay:    scoreDisplay(evaluation.Scores.Total),
		DecisionDisplay: decisionDisplay(evaluation.Recommendation.Decision),
		CreatedAt:       time.Now(),
	}

	full, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode evaluation result")
	}

	product := evaluation.Extraction.Product
	if product == "" {
		product = "unidentified listing"
	}

	record := &models.Evaluation{
		ID:               result.ID,
		UserID:           userID,
		InputType:        models.ImageInput,
		InputProduct:     product,
		InputPrice:       evaluation.Extraction.Price,
		InputDescription: evaluation.Extraction.Description,
		OutputScore:      evaluation.Scores.Total,
		OutputDecision:   evaluation.Recommendation.Decision,
		OutputFull:       datatypes.JSON(full),
	}

	if err := s.evalRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := s.usage.RecordEvaluation(ctx, userID); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *evaluatorService) GetEvaluation(ctx context.Context, id, userID uuid.UUID) (*models.Evaluation, error) {
	return s.evalRepo.GetByIDForUser(ctx, id, userID)
}

func (s *evaluatorService) ListEvaluations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Evaluation, int64, error) {
	evaluations, err := s.evalRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.evalRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return evaluations, total, nil
}

// evaluateWithCache reuses the model output for repeat submissions of the
// same listing. The cache is best effort: any cache error falls through to
// the model call.
func (s *evaluatorService) evaluateWithCache(ctx context.Context, input DealInput) (*DealEvaluation, error) {
	if s.cache == nil {
		return s.client.EvaluateDeal(ctx, input, s.refs)
	}

	key := DealCacheKey(input.Product, input.Price, input.Description)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var evaluation DealEvaluation
		if err := json.Unmarshal([]byte(cached), &evaluation); err == nil {
			return &evaluation, nil
		}
	}

	evaluation, err := s.client.EvaluateDeal(ctx, input, s.refs)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, evaluation, s.cacheTTL); err != nil {
		logger.Logger.WithFields(logrus.Fields{"error": err}).Warn("Failed to cache evaluation")
	}

	return evaluation, nil
}

func validateDealInput(input DealInput) error {
	product := strings.TrimSpace(input.Product)
	if len(product) < 3 || len(product) > 200 {
		return errors.Wrap(errors.ErrInvalidInput, "product must be between 3 and 200 characters")
	}
	if input.Price <= 0 || input.Price > 50000000 {
		return errors.Wrap(errors.ErrInvalidInput, "price must be positive and below 50000000")
	}
	if len(input.Description) > 1000 {
		return errors.Wrap(errors.ErrInvalidInput, "description must be at most 1000 characters")
	}
	return nil
}

func scoreDisplay(total float64) string {
	return fmt.Sprintf("%.1f/10", total)
}

func decisionDisplay(decision models.Decision) string {
	return strings.ReplaceAll(string(decision), "_", " ")
}

func marginDisplay(margin int64, pct float64) string {
	return fmt.Sprintf("%s (%.0f%%)", formatPrice(margin), pct*100)
}
