package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/cache"
	"github.com/abhisek/gradeprobe/internal/config"
	"github.com/abhisek/gradeprobe/internal/events"
	"github.com/abhisek/gradeprobe/internal/itemgen"
	"github.com/abhisek/gradeprobe/internal/llm"
	"github.com/abhisek/gradeprobe/internal/store"
)

const (
	persistBuffer  = 256
	persistTimeout = 5 * time.Second
)

// engine bundles the session manager with the resources it holds open.
type engine struct {
	manager *assessment.Manager
	async   *assessment.AsyncRecorder
	redis   *redis.Client
	nats    *nats.Conn

	// archives serve sessions after the manager evicts them, hottest first.
	archives []assessment.SessionArchive
}

// Close flushes pending writes and releases connections.
func (e *engine) Close() {
	if e.async != nil {
		e.async.Close()
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if e.nats != nil {
		if err := e.nats.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
}

// newEngine wires the item provider and every configured recorder into a
// session manager. Redis and NATS are optional and skipped with a warning
// when unreachable.
func newEngine(ctx context.Context, cfg config.Config, st *store.Store) (*engine, error) {
	provider, err := newItemProvider(ctx, cfg, st)
	if err != nil {
		return nil, err
	}

	e := &engine{}
	recorders := assessment.MultiRecorder{st.SessionRepo()}

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, session cache disabled")
		} else {
			e.redis = client
			rc := cache.NewRecorder(client, cfg.RedisTTL, logger)
			recorders = append(recorders, rc)
			e.archives = append(e.archives, rc)
		}
	}

	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, event publishing disabled")
		} else {
			e.nats = conn
			recorders = append(recorders, events.NewPublisher(conn, cfg.NATSSubject, logger))
		}
	}

	e.archives = append(e.archives, st.SessionRepo())
	e.async = assessment.NewAsyncRecorder(recorders, persistBuffer, persistTimeout, logger)

	m, err := assessment.NewManager(cfg.Assessment, provider, e.async, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.manager = m
	return e, nil
}

func newItemProvider(ctx context.Context, cfg config.Config, st *store.Store) (assessment.ItemProvider, error) {
	switch cfg.ItemSource {
	case config.ItemSourceBank:
		bank, err := itemgen.LoadBank(cfg.ItemBankPath)
		if err != nil {
			return nil, fmt.Errorf("load item bank: %w", err)
		}
		logger.Info().Str("path", cfg.ItemBankPath).Int("items", bank.Len()).Msg("using item bank")
		return bank, nil
	default:
		llmCfg, err := llm.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("LLM provider not configured: %w", err)
		}
		provider, err := llm.NewProvider(ctx, itemgen.ProviderConfig(llmCfg, cfg.Assessment.Retry.Timeout), st.EventRepo(), logger)
		if err != nil {
			return nil, fmt.Errorf("LLM provider: %w", err)
		}
		logger.Info().Str("model", provider.ModelID()).Msg("using LLM item generator")
		return itemgen.New(provider, itemgen.DefaultConfig()), nil
	}
}
