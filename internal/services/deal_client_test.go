package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"resale-api/internal/models"
)

func testRefs() ReferencePrices {
	return ReferencePrices{Categories: map[string]map[string]ReferencePrice{
		"consoles": {
			"playstation 5": {New: 499, Used: 380},
		},
	}}
}

func TestMockClientDecisionThresholds(t *testing.T) {
	client := NewMockDealClient()
	ctx := context.Background()

	// discount vs the 380 used reference drives the decision
	tests := []struct {
		name     string
		price    int64
		decision models.Decision
	}{
		{"deep discount", 200, models.DecisionBuyNow},
		{"solid discount", 270, models.DecisionBuy},
		{"thin discount", 330, models.DecisionNegotiate},
		{"no discount", 380, models.DecisionPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.EvaluateDeal(ctx, DealInput{
				Product: "PlayStation 5",
				Price:   tt.price,
			}, testRefs())
			assert.NoError(t, err)
			assert.Equal(t, tt.decision, result.Recommendation.Decision)
			assert.Equal(t, int64(380), result.PriceAnalysis.ReferenceUsedPrice)
			assert.GreaterOrEqual(t, result.Scores.Total, 0.0)
			assert.LessOrEqual(t, result.Scores.Total, 10.0)
		})
	}
}

func TestMockClientUnknownProductUsesFallbackReferences(t *testing.T) {
	client := NewMockDealClient()

	result, err := client.EvaluateDeal(context.Background(), DealInput{
		Product: "mystery gadget",
		Price:   100,
	}, testRefs())
	assert.NoError(t, err)
	assert.Equal(t, int64(200), result.PriceAnalysis.ReferenceNewPrice)
	assert.Equal(t, int64(150), result.PriceAnalysis.ReferenceUsedPrice)
	assert.Equal(t, "other", result.Classification.Category)
}

func TestLookupReferenceMatchesSubstring(t *testing.T) {
	refNew, refUsed := lookupReference(testRefs(), "Sony PlayStation 5 Disc Edition")
	assert.Equal(t, int64(499), refNew)
	assert.Equal(t, int64(380), refUsed)

	refNew, refUsed = lookupReference(testRefs(), "Xbox Series S")
	assert.Equal(t, int64(0), refNew)
	assert.Equal(t, int64(0), refUsed)
}

func TestNormalizeDecision(t *testing.T) {
	assert.Equal(t, models.DecisionBuyNow, normalizeDecision("BUY_NOW"))
	assert.Equal(t, models.DecisionBuy, normalizeDecision(" buy "))
	assert.Equal(t, models.DecisionNegotiate, normalizeDecision("negotiate"))
	assert.Equal(t, models.DecisionRiskAlert, normalizeDecision("ALERT"))
	assert.Equal(t, models.DecisionPass, normalizeDecision("hold"))
	assert.Equal(t, models.DecisionPass, normalizeDecision(""))
}

func TestDealCacheKeyStable(t *testing.T) {
	a := DealCacheKey("PlayStation 5", 300, "good condition")
	b := DealCacheKey("PlayStation 5", 300, "good condition")
	c := DealCacheKey("PlayStation 5", 301, "good condition")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "deal:")
}
