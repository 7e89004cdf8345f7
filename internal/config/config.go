package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// Item sources.
const (
	ItemSourceLLM  = "llm"
	ItemSourceBank = "bank"
)

// Config holds runtime configuration values for the CLI and API server.
type Config struct {
	AppName   string
	AppEnv    string
	AppPort   string
	LogLevel  string
	LogPretty bool

	DBPath      string
	RedisURL    string
	RedisTTL    time.Duration
	NATSURL     string
	NATSSubject string

	Assessment         assessment.Config
	StartingDifficulty float64
	SessionTTL         time.Duration

	ItemSource   string
	ItemBankPath string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEPROBE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := assessment.DefaultConfig()

	v.SetDefault("app.name", "gradeprobe")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("nats.subject", "assessment.events")
	v.SetDefault("assessment.total_items", defaults.DefaultTotalItems)
	v.SetDefault("assessment.step", defaults.Scale.Step)
	v.SetDefault("assessment.min", defaults.Scale.Min)
	v.SetDefault("assessment.max", defaults.Scale.Max)
	v.SetDefault("assessment.starting_difficulty", 5.0)
	v.SetDefault("assessment.session_ttl", "1h")
	v.SetDefault("provider.timeout", defaults.Retry.Timeout.String())
	v.SetDefault("provider.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("provider.initial_wait", defaults.Retry.InitialWait.String())
	v.SetDefault("provider.max_wait", defaults.Retry.MaxWait.String())
	v.SetDefault("provider.multiplier", defaults.Retry.Multiplier)
	v.SetDefault("item.source", ItemSourceLLM)

	durations := map[string]time.Duration{}
	for _, key := range []string{"redis.ttl", "assessment.session_ttl", "provider.timeout", "provider.initial_wait", "provider.max_wait"} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = d
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		LogLevel:    strings.ToLower(v.GetString("log.level")),
		LogPretty:   v.GetBool("log.pretty"),
		DBPath:      v.GetString("db.path"),
		RedisURL:    v.GetString("redis.url"),
		RedisTTL:    durations["redis.ttl"],
		NATSURL:     v.GetString("nats.url"),
		NATSSubject: v.GetString("nats.subject"),
		Assessment: assessment.Config{
			Scale: assessment.Scale{
				Min:  v.GetFloat64("assessment.min"),
				Max:  v.GetFloat64("assessment.max"),
				Step: v.GetFloat64("assessment.step"),
			},
			Retry: assessment.RetryConfig{
				Timeout:     durations["provider.timeout"],
				MaxAttempts: v.GetInt("provider.max_attempts"),
				InitialWait: durations["provider.initial_wait"],
				MaxWait:     durations["provider.max_wait"],
				Multiplier:  v.GetFloat64("provider.multiplier"),
			},
			DefaultTotalItems: v.GetInt("assessment.total_items"),
		},
		StartingDifficulty: v.GetFloat64("assessment.starting_difficulty"),
		SessionTTL:         durations["assessment.session_ttl"],
		ItemSource:         strings.ToLower(v.GetString("item.source")),
		ItemBankPath:       v.GetString("item.bank_path"),
	}

	switch cfg.ItemSource {
	case ItemSourceLLM:
	case ItemSourceBank:
		if cfg.ItemBankPath == "" {
			return Config{}, fmt.Errorf("item bank path must be provided when item source is %q", ItemSourceBank)
		}
	default:
		return Config{}, fmt.Errorf("unknown item source %q (want %q or %q)", cfg.ItemSource, ItemSourceLLM, ItemSourceBank)
	}

	return cfg, nil
}
