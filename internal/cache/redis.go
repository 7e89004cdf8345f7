package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// DefaultTTL is how long a session's cached state survives its last write.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "gradeprobe:session:"

// Connect configures a Redis client using the supplied URL.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}

// cachedResponse is the JSON form of a response stored in Redis.
type cachedResponse struct {
	ItemID           string  `json:"item_id"`
	SkillCode        string  `json:"skill_code"`
	Domain           string  `json:"domain"`
	DifficultyAtTime float64 `json:"difficulty_at_time"`
	StudentAnswer    string  `json:"student_answer"`
	IsCorrect        bool    `json:"is_correct"`
	SequenceIndex    int     `json:"sequence_index"`
}

// Recorder keeps hot per-session state in Redis: a hash of responses keyed
// by sequence index, the final result, and the latest lifecycle state.
// Every key expires ttl after its last write.
type Recorder struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRecorder wraps client. A non-positive ttl falls back to DefaultTTL.
func NewRecorder(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Recorder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Recorder{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_recorder").Logger(),
	}
}

func responsesKey(sessionID string) string { return keyPrefix + sessionID + ":responses" }
func resultKey(sessionID string) string    { return keyPrefix + sessionID + ":result" }
func stateKey(sessionID string) string     { return keyPrefix + sessionID + ":state" }

// RecordResponse stores resp under its sequence index. A second write for
// the same index is ignored.
func (r *Recorder) RecordResponse(ctx context.Context, sessionID string, resp assessment.Response) error {
	payload, err := json.Marshal(cachedResponse(resp))
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	key := responsesKey(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, strconv.Itoa(resp.SequenceIndex), payload)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache response %s/%d: %w", sessionID, resp.SequenceIndex, err)
	}
	return nil
}

// FinalizeSession stores the session result.
func (r *Recorder) FinalizeSession(ctx context.Context, sessionID string, result assessment.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := r.client.Set(ctx, resultKey(sessionID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache result %s: %w", sessionID, err)
	}
	return nil
}

// RecordLifecycle stores the latest lifecycle state of the session.
func (r *Recorder) RecordLifecycle(ctx context.Context, ev assessment.LifecycleEvent) error {
	key := stateKey(ev.SessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"subject", ev.Subject,
			"state", string(ev.State),
			"responses", ev.Responses,
			"total_items", ev.TotalItems,
			"reason", ev.Reason,
			"updated_at", ev.At.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache state %s: %w", ev.SessionID, err)
	}
	return nil
}

// Responses returns the cached responses of a session ordered by sequence
// index. Undecodable entries are skipped and logged.
func (r *Recorder) Responses(ctx context.Context, sessionID string) ([]assessment.Response, error) {
	entries, err := r.client.HGetAll(ctx, responsesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read responses %s: %w", sessionID, err)
	}

	out := make([]assessment.Response, 0, len(entries))
	for field, raw := range entries {
		var cr cachedResponse
		if err := json.Unmarshal([]byte(raw), &cr); err != nil {
			r.logger.Warn().Err(err).Str("session_id", sessionID).Str("field", field).Msg("invalid cached response")
			continue
		}
		out = append(out, assessment.Response(cr))
	}
	slices.SortFunc(out, func(a, b assessment.Response) int { return a.SequenceIndex - b.SequenceIndex })
	return out, nil
}

// Result returns the cached result, or nil if none is stored.
func (r *Recorder) Result(ctx context.Context, sessionID string) (*assessment.Result, error) {
	raw, err := r.client.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", sessionID, err)
	}

	var result assessment.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", sessionID, err)
	}
	return &result, nil
}

// ArchivedSession rebuilds a session from its cached state hash,
// responses and result. It returns nil when nothing is cached for the id.
func (r *Recorder) ArchivedSession(ctx context.Context, sessionID string) (*assessment.SessionRecord, error) {
	fields, err := r.client.HGetAll(ctx, stateKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", sessionID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &assessment.SessionRecord{
		ID:      sessionID,
		Subject: fields["subject"],
		State:   assessment.State(fields["state"]),
		Reason:  fields["reason"],
	}
	rec.TotalItems, _ = strconv.Atoi(fields["total_items"])
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])

	if rec.Responses, err = r.Responses(ctx, sessionID); err != nil {
		return nil, err
	}
	if rec.Result, err = r.Result(ctx, sessionID); err != nil {
		return nil, err
	}
	return rec, nil
}
