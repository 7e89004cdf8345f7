package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/abhisek/gradeprobe/internal/store"
)

// NewProvider builds the configured backend and wraps it as
// timeout -> retry -> logging -> backend, so every attempt is logged and
// the timeout covers the whole retry loop.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger zerolog.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "llm").Str("provider", cfg.Provider).Logger()
	p := WithLogging(base, cfg.Provider, eventRepo, logger)
	p = WithRetry(p, cfg.Retry, logger)
	return WithTimeout(p, cfg.Timeout), nil
}

var errNoProvider = errors.New("no LLM provider configured: set GRADEPROBE_LLM_PROVIDER or one of GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY")

// LoadConfig uses GRADEPROBE_LLM_PROVIDER when set and otherwise falls
// back to the first vendor API key found. The result is validated.
func LoadConfig() (Config, error) {
	var cfg Config
	if os.Getenv("GRADEPROBE_LLM_PROVIDER") != "" {
		cfg = ConfigFromEnv()
	} else {
		var ok bool
		if cfg, ok = DiscoverConfig(); !ok {
			return Config{}, errNoProvider
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
