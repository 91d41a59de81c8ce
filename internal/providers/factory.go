package providers

import (
	"fmt"
	"time"
)

// ClientConfig selects and configures an LLM client.
type ClientConfig struct {
	Provider string // "openrouter", "openai", or "mock"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	// RateLimit is requests per minute; 0 disables limiting.
	RateLimit int
}

// New builds the configured client, wrapped in a rate limiter when RateLimit > 0.
func New(cfg ClientConfig) (LLMClient, error) {
	var client LLMClient
	switch cfg.Provider {
	case OpenRouterName, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter API key is required")
		}
		client = NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		})
	case OpenAIName:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		client = NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		})
	case MockClientName:
		client = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		client = WithRateLimit(client, NewRateLimiter(cfg.RateLimit))
	}
	return client, nil
}
