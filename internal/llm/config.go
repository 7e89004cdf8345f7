package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

type Config struct {
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call including all retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// apiKey returns the key configured for the selected provider.
func (c Config) apiKey() string {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderGemini:
		return c.Gemini.APIKey
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey
	}
	return ""
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.apiKey() == "" {
			return fmt.Errorf("%s provider selected but no API key set", c.Provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider %q", c.Provider)
}

// envBindings lists the GRADEPROBE_ variables ConfigFromEnv reads, in
// the order they are applied.
func envBindings(c *Config) []struct {
	key string
	dst *string
} {
	return []struct {
		key string
		dst *string
	}{
		{"GRADEPROBE_LLM_PROVIDER", &c.Provider},
		{"GRADEPROBE_ANTHROPIC_API_KEY", &c.Anthropic.APIKey},
		{"GRADEPROBE_ANTHROPIC_MODEL", &c.Anthropic.Model},
		{"GRADEPROBE_OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"GRADEPROBE_OPENAI_MODEL", &c.OpenAI.Model},
		{"GRADEPROBE_OPENAI_BASE_URL", &c.OpenAI.BaseURL},
		{"GRADEPROBE_GEMINI_API_KEY", &c.Gemini.APIKey},
		{"GRADEPROBE_GEMINI_MODEL", &c.Gemini.Model},
		{"GRADEPROBE_OPENROUTER_API_KEY", &c.OpenRouter.APIKey},
		{"GRADEPROBE_OPENROUTER_MODEL", &c.OpenRouter.Model},
		{"GRADEPROBE_OPENROUTER_BASE_URL", &c.OpenRouter.BaseURL},
	}
}

// ConfigFromEnv overlays GRADEPROBE_ variables on DefaultConfig. Unset
// variables keep their defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	for _, b := range envBindings(&cfg) {
		if v := os.Getenv(b.key); v != "" {
			*b.dst = v
		}
	}
	if d, err := time.ParseDuration(os.Getenv("GRADEPROBE_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// vendorKeys is the discovery order for the vendors' own API key variables.
var vendorKeys = []struct {
	env      string
	provider string
}{
	{"GEMINI_API_KEY", ProviderGemini},
	{"OPENAI_API_KEY", ProviderOpenAI},
	{"ANTHROPIC_API_KEY", ProviderAnthropic},
	{"OPENROUTER_API_KEY", ProviderOpenRouter},
}

// DiscoverConfig selects the first provider whose vendor API key variable
// is set. It reports false when none is.
func DiscoverConfig() (Config, bool) {
	for _, vk := range vendorKeys {
		key := os.Getenv(vk.env)
		if key == "" {
			continue
		}
		cfg := DefaultConfig()
		cfg.Provider = vk.provider
		switch vk.provider {
		case ProviderGemini:
			cfg.Gemini.APIKey = key
		case ProviderOpenAI:
			cfg.OpenAI.APIKey = key
		case ProviderAnthropic:
			cfg.Anthropic.APIKey = key
		case ProviderOpenRouter:
			cfg.OpenRouter.APIKey = key
		}
		return cfg, true
	}
	return Config{}, false
}
