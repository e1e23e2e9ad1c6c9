package config

import "os"

// EvaluatorConfig wires the AI deal-evaluation clients.
type EvaluatorConfig struct {
	GroqAPIKey          string
	TextModel           string
	VisionModel         string
	BaseURL             string
	ReferencePricesPath string
	MockMode            bool
}

func NewEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		TextModel:           getEnv("GROQ_TEXT_MODEL", "openai/gpt-oss-120b"),
		VisionModel:         getEnv("GROQ_VISION_MODEL", "llama-3.2-11b-vision-preview"),
		BaseURL:             getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ReferencePricesPath: getEnv("REFERENCE_PRICES_PATH", "data/reference_prices.json"),
		MockMode:            os.Getenv("MOCK_MODE") == "true",
	}
}
