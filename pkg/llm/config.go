// Package llm provides the tiered model router: deterministic tier
// selection, OpenAI-compatible chat-completion calls with a documented
// retry/fallback ladder, and per-call cost accounting.
package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/voxyz/agentworld/pkg/models"
)

// TierConfig describes one model tier endpoint.
type TierConfig struct {
	Model          string
	BaseURL        string
	APIKey         string
	MaxTokens      int
	Temperature    float32
	InputUSDPer1K  float64
	OutputUSDPer1K float64
}

// Config holds the three tier endpoints and shared call settings.
type Config struct {
	Tiers          map[models.ModelTier]TierConfig
	RequestTimeout time.Duration
}

// LoadConfigFromEnv reads the router configuration. A single LLM_API_KEY
// covers all tiers unless a tier-specific key is set.
func LoadConfigFromEnv() (Config, error) {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}
	baseURL := getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1")

	timeout, err := time.ParseDuration(getEnvOrDefault("LLM_REQUEST_TIMEOUT", "120s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LLM_REQUEST_TIMEOUT: %w", err)
	}

	cfg := Config{
		RequestTimeout: timeout,
		Tiers: map[models.ModelTier]TierConfig{
			models.TierT1: {
				Model:          getEnvOrDefault("LLM_T1_MODEL", "gpt-4o-mini"),
				BaseURL:        getEnvOrDefault("LLM_T1_BASE_URL", baseURL),
				APIKey:         getEnvOrDefault("LLM_T1_API_KEY", apiKey),
				MaxTokens:      envInt("LLM_T1_MAX_TOKENS", 2048),
				Temperature:    0.7,
				InputUSDPer1K:  envFloat("LLM_T1_INPUT_USD_PER_1K", 0.00015),
				OutputUSDPer1K: envFloat("LLM_T1_OUTPUT_USD_PER_1K", 0.0006),
			},
			models.TierT2: {
				Model:          getEnvOrDefault("LLM_T2_MODEL", "gpt-4o"),
				BaseURL:        getEnvOrDefault("LLM_T2_BASE_URL", baseURL),
				APIKey:         getEnvOrDefault("LLM_T2_API_KEY", apiKey),
				MaxTokens:      envInt("LLM_T2_MAX_TOKENS", 4096),
				Temperature:    0.7,
				InputUSDPer1K:  envFloat("LLM_T2_INPUT_USD_PER_1K", 0.0025),
				OutputUSDPer1K: envFloat("LLM_T2_OUTPUT_USD_PER_1K", 0.01),
			},
			models.TierT3: {
				Model:          getEnvOrDefault("LLM_T3_MODEL", "o1"),
				BaseURL:        getEnvOrDefault("LLM_T3_BASE_URL", baseURL),
				APIKey:         getEnvOrDefault("LLM_T3_API_KEY", apiKey),
				MaxTokens:      envInt("LLM_T3_MAX_TOKENS", 8192),
				Temperature:    1.0,
				InputUSDPer1K:  envFloat("LLM_T3_INPUT_USD_PER_1K", 0.015),
				OutputUSDPer1K: envFloat("LLM_T3_OUTPUT_USD_PER_1K", 0.06),
			},
		},
	}

	return cfg, nil
}

// EstimateCost computes the per-call cost from token counts.
func (t TierConfig) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*t.InputUSDPer1K + float64(outputTokens)/1000*t.OutputUSDPer1K
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
