package itemgen

import (
	"time"

	"github.com/abhisek/gradeprobe/internal/llm"
)

// Config controls the behavior of the LLMProvider.
type Config struct {
	// Validators run in order on every draft; the first failure stops
	// the pipeline.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxPriorQuestions caps how many recently issued question texts are
	// listed in the prompt for deduplication.
	MaxPriorQuestions int
}

// DefaultDifficultyTolerance is how far a generated item's difficulty
// may sit from the requested one.
const DefaultDifficultyTolerance = 1.5

// DefaultConfig returns a Config with the standard validator chain
// and recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&ExclusionValidator{},
			&DifficultyValidator{Tolerance: DefaultDifficultyTolerance},
		},
		MaxTokens:         512,
		Temperature:       0.7,
		MaxPriorQuestions: 8,
	}
}

// ProviderConfig adapts an LLM configuration for item generation. The
// assessment engine already retries item requests with its own backoff,
// so the LLM layer makes a single attempt bounded by the engine's
// per-attempt timeout.
func ProviderConfig(cfg llm.Config, attemptTimeout time.Duration) llm.Config {
	cfg.Retry.MaxAttempts = 1
	if attemptTimeout > 0 {
		cfg.Timeout = attemptTimeout
	}
	return cfg
}
