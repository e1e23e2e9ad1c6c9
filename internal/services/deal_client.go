package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"resale-api/internal/logger"
	"resale-api/internal/models"

	"github.com/sirupsen/logrus"
)

// ReferencePrice holds market prices for one product, in minor currency units.
type ReferencePrice struct {
	New  int64 `json:"new"`
	Used int64 `json:"used"`
}

// ReferencePrices maps category -> product -> market prices. Loaded from a
// JSON file at service construction.
type ReferencePrices struct {
	Categories map[string]map[string]ReferencePrice `json:"categories"`
}

func LoadReferencePrices(path string) ReferencePrices {
	prices := ReferencePrices{Categories: map[string]map[string]ReferencePrice{}}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("Reference prices file not found, evaluating without references")
		return prices
	}

	if err := json.Unmarshal(data, &prices); err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Error("Failed to parse reference prices file")
		return ReferencePrices{Categories: map[string]map[string]ReferencePrice{}}
	}

	return prices
}

// DealInput is what a user submits for a text evaluation.
type DealInput struct {
	Product     string `json:"product"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url,omitempty"`
}

type Classification struct {
	Category          string  `json:"category"`
	IdentifiedProduct string  `json:"identified_product"`
	InferredCondition string  `json:"inferred_condition"`
	Confidence        float64 `json:"confidence"`
}

type PriceAnalysis struct {
	ListedPrice        int64   `json:"listed_price"`
	ReferenceNewPrice  int64   `json:"reference_new_price"`
	ReferenceUsedPrice int64   `json:"reference_used_price"`
	DiscountVsNew      float64 `json:"discount_vs_new"`
	DiscountVsUsed     float64 `json:"discount_vs_used"`
	MaxBuyPrice        int64   `json:"max_buy_price"`
}

// Scores are all on a 0-10 scale.
type Scores struct {
	Discount  float64 `json:"score_discount"`
	Liquidity float64 `json:"score_liquidity"`
	Condition float64 `json:"score_condition"`
	Seller    float64 `json:"score_seller"`
	Margin    float64 `json:"score_margin"`
	Total     float64 `json:"score_total"`
}

type Projection struct {
	ExpectedResalePrice int64   `json:"expected_resale_price"`
	GrossMargin         int64   `json:"gross_margin"`
	MarginPercent       float64 `json:"margin_percent"`
	DaysToSell          string  `json:"days_to_sell"`
	Liquidity           string  `json:"liquidity"`
}

type Recommendation struct {
	Decision         models.Decision `json:"decision"`
	Confidence       float64         `json:"confidence"`
	Reasoning        string          `json:"reasoning"`
	SuggestedActions []string        `json:"suggested_actions"`
}

// DealEvaluation is the structured result returned by the model for a text
// evaluation.
type DealEvaluation struct {
	Classification  Classification `json:"classification"`
	PriceAnalysis   PriceAnalysis  `json:"price_analysis"`
	Scores          Scores         `json:"evaluation"`
	Projection      Projection     `json:"projection"`
	PositiveSignals []string       `json:"positive_signals"`
	NegativeSignals []string       `json:"negative_signals"`
	Alerts          []string       `json:"alerts"`
	Recommendation  Recommendation `json:"recommendation"`
}

// Extraction is the listing data pulled out of a marketplace screenshot.
type Extraction struct {
	Product         string   `json:"product"`
	Price           int64    `json:"price"`
	Description     string   `json:"description,omitempty"`
	Location        string   `json:"location,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	DetectedSignals []string `json:"detected_signals"`
}

type ImageQuality struct {
	TextLegible          bool    `json:"text_legible"`
	InfoComplete         bool    `json:"info_complete"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
}

// ImageEvaluation is the structured result for a screenshot evaluation.
type ImageEvaluation struct {
	Extraction     Extraction     `json:"extraction"`
	Scores         Scores         `json:"evaluation"`
	Recommendation Recommendation `json:"recommendation"`
	Alerts         []string       `json:"alerts"`
	Quality        ImageQuality   `json:"image_quality"`
}

// DealClient is the AI collaborator that actually scores deals.
type DealClient interface {
	EvaluateDeal(ctx context.Context, input DealInput, refs ReferencePrices) (*DealEvaluation, error)
	EvaluateScreenshot(ctx context.Context, image []byte, refs ReferencePrices) (*ImageEvaluation, error)
}

// mockDealClient produces deterministic evaluations without calling any
// external API. Used when no provider key is configured and in tests.
type mockDealClient struct{}

func NewMockDealClient() DealClient {
	return &mockDealClient{}
}

func (c *mockDealClient) EvaluateDeal(ctx context.Context, input DealInput, refs ReferencePrices) (*DealEvaluation, error) {
	refNew, refUsed := lookupReference(refs, input.Product)
	if refNew == 0 {
		refNew = input.Price * 2
	}
	if refUsed == 0 {
		refUsed = input.Price * 3 / 2
	}

	discountVsUsed := 1 - float64(input.Price)/float64(refUsed)
	scoreDiscount := clampScore(discountVsUsed * 20)
	total := clampScore(scoreDiscount*0.4 + 6*0.6)

	decision := models.DecisionPass
	switch {
	case discountVsUsed >= 0.4:
		decision = models.DecisionBuyNow
	case discountVsUsed >= 0.25:
		decision = models.DecisionBuy
	case discountVsUsed >= 0.1:
		decision = models.DecisionNegotiate
	}

	margin := refUsed - input.Price

	return &DealEvaluation{
		Classification: Classification{
			Category:          fallbackCategory(input.Category),
			IdentifiedProduct: input.Product,
			InferredCondition: "good",
			Confidence:        0.5,
		},
		PriceAnalysis: PriceAnalysis{
			ListedPrice:        input.Price,
			ReferenceNewPrice:  refNew,
			ReferenceUsedPrice: refUsed,
			DiscountVsNew:      1 - float64(input.Price)/float64(refNew),
			DiscountVsUsed:     discountVsUsed,
			MaxBuyPrice:        refUsed * 7 / 10,
		},
		Scores: Scores{
			Discount:  scoreDiscount,
			Liquidity: 6,
			Condition: 6,
			Seller:    5,
			Margin:    scoreDiscount,
			Total:     total,
		},
		Projection: Projection{
			ExpectedResalePrice: refUsed,
			GrossMargin:         margin,
			MarginPercent:       float64(margin) / float64(input.Price),
			DaysToSell:          "7-14",
			Liquidity:           "medium",
		},
		PositiveSignals: []string{"price below used reference"},
		NegativeSignals: []string{},
		Alerts:          []string{},
		Recommendation: Recommendation{
			Decision:         decision,
			Confidence:       0.5,
			Reasoning:        "offline evaluation from reference prices only",
			SuggestedActions: []string{"verify condition in person"},
		},
	}, nil
}

func (c *mockDealClient) EvaluateScreenshot(ctx context.Context, image []byte, refs ReferencePrices) (*ImageEvaluation, error) {
	return &ImageEvaluation{
		Extraction: Extraction{
			Product:         "unidentified listing",
			Price:           0,
			DetectedSignals: []string{},
		},
		Scores: Scores{Total: 5},
		Recommendation: Recommendation{
			Decision:         models.DecisionPass,
			Confidence:       0.3,
			Reasoning:        "offline mode cannot read screenshots",
			SuggestedActions: []string{"submit the listing as text instead"},
		},
		Alerts: []string{"screenshot was not analyzed"},
		Quality: ImageQuality{
			TextLegible:          false,
			InfoComplete:         false,
			ExtractionConfidence: 0,
		},
	}, nil
}

func lookupReference(refs ReferencePrices, product string) (int64, int64) {
	needle := strings.ToLower(product)
	for _, products := range refs.Categories {
		for name, price := range products {
			if strings.Contains(needle, strings.ToLower(name)) {
				return price.New, price.Used
			}
		}
	}
	return 0, 0
}

func fallbackCategory(category string) string {
	if category != "" {
		return category
	}
	return "other"
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func normalizeDecision(raw string) models.Decision {
	switch models.Decision(strings.ToUpper(strings.TrimSpace(raw))) {
	case models.DecisionBuyNow:
		return models.DecisionBuyNow
	case models.DecisionBuy:
		return models.DecisionBuy
	case models.DecisionNegotiate:
		return models.DecisionNegotiate
	case models.DecisionRiskAlert, "ALERT":
		return models.DecisionRiskAlert
	default:
		return models.DecisionPass
	}
}

func formatPrice(v int64) string {
	return fmt.Sprintf("$%d", v)
}
