package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"resale-api/internal/config"
)

const dealPromptTemplate = `You are an expert evaluator of resale opportunities on second-hand marketplaces.
Analyze listings and predict their profitability and liquidity.
Use the reference prices below to compute margins. Current date: %s.

Reference prices (JSON): %s

Evaluate this purchase opportunity for resale:

Product: %s
Listed price: $%d
Seller description: %s

Respond with strictly valid JSON using this structure:
{
  "classification": {"category": "", "identified_product": "", "inferred_condition": "", "confidence": 0.0},
  "price_analysis": {"listed_price": 0, "reference_new_price": 0, "reference_used_price": 0, "discount_vs_new": 0.0, "discount_vs_used": 0.0, "max_buy_price": 0},
  "evaluation": {"score_discount": 0.0, "score_liquidity": 0.0, "score_condition": 0.0, "score_seller": 0.0, "score_margin": 0.0, "score_total": 0.0},
  "projection": {"expected_resale_price": 0, "gross_margin": 0, "margin_percent": 0.0, "days_to_sell": "", "liquidity": ""},
  "positive_signals": [],
  "negative_signals": [],
  "alerts": [],
  "recommendation": {"decision": "BUY_NOW|BUY|NEGOTIATE|PASS|RISK_ALERT", "confidence": 0.0, "reasoning": "", "suggested_actions": []}
}`

const visionPromptTemplate = `You are an expert evaluator of resale opportunities.
This image is a screenshot of a marketplace listing. Extract the listing data
and evaluate the deal using the reference prices below.

Reference prices (JSON): %s

Respond with strictly valid JSON using this structure:
{
  "extraction": {"product": "", "price": 0, "description": "", "location": "", "condition": "", "detected_signals": []},
  "evaluation": {"score_discount": 0.0, "score_liquidity": 0.0, "score_condition": 0.0, "score_seller": 0.0, "score_margin": 0.0, "score_total": 0.0},
  "recommendation": {"decision": "BUY_NOW|BUY|NEGOTIATE|PASS|RISK_ALERT", "confidence": 0.0, "reasoning": "", "suggested_actions": []},
  "alerts": [],
  "image_quality": {"text_legible": false, "info_complete": false, "extraction_confidence": 0.0}
}`

// GroqClient talks to the Groq OpenAI-compatible chat completions API.
type GroqClient struct {
	apiKey      string
	textModel   string
	visionModel string
	baseURL     string
	httpClient  *http.Client
}

func NewGroqClient(cfg *config.EvaluatorConfig) *GroqClient {
	return &GroqClient{
		apiKey:      cfg.GroqAPIKey,
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GroqClient) EvaluateDeal(ctx context.Context, input DealInput, refs ReferencePrices) (*DealEvaluation, error) {
	refsJSON, _ := json.Marshal(refs)

	description := input.Description
	if description == "" {
		description = "not provided"
	}

	prompt := fmt.Sprintf(dealPromptTemplate,
		time.Now().Format("2006-01-02"), refsJSON,
		input.Product, input.Price, description)

	content, err := c.chatCompletion(ctx, c.textModel, []chatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var evaluation DealEvaluation
	if err := json.Unmarshal([]byte(content), &evaluation); err != nil {
		return nil, fmt.Errorf("model returned invalid evaluation JSON: %w", err)
	}

	evaluation.Recommendation.Decision = normalizeDecision(string(evaluation.Recommendation.Decision))
	return &evaluation, nil
}

func (c *GroqClient) EvaluateScreenshot(ctx context.Context, image []byte, refs ReferencePrices) (*ImageEvaluation, error) {
	refsJSON, _ := json.Marshal(refs)

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	content, err := c.chatCompletion(ctx, c.visionModel, []chatMessage{
		{Role: "user", Content: []chatContentPart{
			{Type: "text", Text: fmt.Sprintf(visionPromptTemplate, refsJSON)},
			{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
		}},
	})
	if err != nil {
		return nil, err
	}

	var evaluation ImageEvaluation
	if err := json.Unmarshal([]byte(content), &evaluation); err != nil {
		return nil, fmt.Errorf("model returned invalid extraction JSON: %w", err)
	}

	evaluation.Recommendation.Decision = normalizeDecision(string(evaluation.Recommendation.Decision))
	return &evaluation, nil
}

func (c *GroqClient) chatCompletion(ctx context.Context, model string, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.2,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unexpected provider response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
