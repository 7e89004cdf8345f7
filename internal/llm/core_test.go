package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerSchema() *Schema {
	return &Schema{
		Name:        "answer",
		Description: "A question with its answer",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"answer":   map[string]any{"type": "string"},
				"kind":     map[string]any{"type": "string", "enum": []any{"multiple_choice", "short_answer"}},
			},
			"required":             []any{"question", "answer"},
			"additionalProperties": false,
		},
	}
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"question":"2+2?","answer":"4","kind":"short_answer"}`, false},
		{"optional omitted", `{"question":"2+2?","answer":"4"}`, false},
		{"missing required", `{"question":"2+2?"}`, true},
		{"wrong type", `{"question":"2+2?","answer":4}`, true},
		{"enum violation", `{"question":"2+2?","answer":"4","kind":"essay"}`, true},
		{"extra property", `{"question":"2+2?","answer":"4","hint":"count"}`, true},
		{"not json", `Sure! Here is your item`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContent(answerSchema(), json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileSchemaIsCached(t *testing.T) {
	a, err := compileSchema(answerSchema())
	require.NoError(t, err)
	b, err := compileSchema(answerSchema())
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFinish(t *testing.T) {
	req := Request{Schema: answerSchema()}

	resp, err := finish("openai", req, `{"question":"q","answer":"a"}`, StopEnd, newUsage(3, 4), "m")
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "m", resp.Model)

	_, err = finish("openai", req, `{"question":"q"}`, StopEnd, Usage{}, "m")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrInvalidResponse, e.Kind)
	assert.Equal(t, `{"question":"q"}`, string(e.Content))

	_, err = finish("openai", req, `{"question":"q","answer":"a"}`, StopMaxTokens, Usage{}, "m")
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  *ModelCost
	}{
		{"gpt-4o-mini", &ModelCost{0.15, 0.6}},
		{"gpt-4o-mini-2024-07-18", &ModelCost{0.15, 0.6}},
		{"gpt-4o-2024-11-20", &ModelCost{2.5, 10}},
		{"claude-haiku-4-5-20251001", &ModelCost{1, 5}},
		{"claude-sonnet-4-5-20250929", &ModelCost{3, 15}},
		{"claude-opus-4-5-20251101", &ModelCost{5, 25}},
		{"openai/gpt-4.1-nano", &ModelCost{0.1, 0.4}},
		{"google/gemini-2.5-flash", &ModelCost{0.3, 2.5}},
		{"gemini-3-pro-preview", &ModelCost{2, 12}},
		{"o1x", nil},
		{"mock", nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupCost(tt.model))
		})
	}
}

func TestModelCost(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15}
	assert.InDelta(t, 0.0105, c.Cost(1000, 500), 1e-9)
	assert.Zero(t, c.Cost(0, 0))
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 2}})
	m.AddResponse(MockResponse{Err: errors.New("boom")})

	resp, err := m.Generate(context.Background(), Request{System: "first"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(resp.Content))
	assert.Equal(t, 2, resp.Usage.InputTokens)
	assert.Equal(t, "mock", resp.Model)

	_, err = m.Generate(context.Background(), Request{System: "second"})
	assert.EqualError(t, err, "boom")

	_, err = m.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, "first", m.Calls[0].System)
	assert.Equal(t, "second", m.Calls[1].System)
}

func TestPurpose(t *testing.T) {
	assert.Equal(t, "unknown", PurposeFrom(context.Background()))
	assert.Equal(t, "unknown", PurposeFrom(WithPurpose(context.Background(), "")))
	assert.Equal(t, "item-generation", PurposeFrom(WithPurpose(context.Background(), "item-generation")))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"openrouter with key", Config{Provider: ProviderOpenRouter, OpenRouter: OpenRouterConfig{APIKey: "k"}}, false},
		{"unknown provider", Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GRADEPROBE_LLM_PROVIDER", "GRADEPROBE_LLM_TIMEOUT",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("GRADEPROBE_LLM_PROVIDER", "openai")
	t.Setenv("GRADEPROBE_OPENAI_API_KEY", "sk-test")
	t.Setenv("GRADEPROBE_OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("GRADEPROBE_LLM_TIMEOUT", "12s")

	cfg := ConfigFromEnv()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Equal(t, "12s", cfg.Timeout.String())
	assert.Equal(t, "claude-haiku", cfg.Anthropic.Model)
	assert.NoError(t, cfg.Validate())
}

func TestDiscoverConfig(t *testing.T) {
	clearLLMEnv(t)
	_, found := DiscoverConfig()
	assert.False(t, found)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	cfg, found := DiscoverConfig()
	require.True(t, found)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)

	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, _ = DiscoverConfig()
	assert.Equal(t, ProviderGemini, cfg.Provider)
}

func TestLoadConfig(t *testing.T) {
	clearLLMEnv(t)
	_, err := LoadConfig()
	require.ErrorIs(t, err, errNoProvider)

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)

	t.Setenv("GRADEPROBE_LLM_PROVIDER", "anthropic")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "no API key")

	t.Setenv("GRADEPROBE_LLM_PROVIDER", "mock")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	p, err := NewProvider(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}
