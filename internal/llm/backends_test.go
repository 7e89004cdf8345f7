package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func anthropicStub(t *testing.T, h http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &AnthropicProvider{
		client: anthropic.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(srv.URL),
			option.WithMaxRetries(0),
		),
		model: "claude-haiku-4-5-20251001",
	}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func itemRequest() Request {
	return Request{
		System:    "You write diagnostic assessment items.",
		Messages:  []Message{{Role: RoleUser, Content: "One fractions item at grade 4."}},
		Schema:    answerSchema(),
		MaxTokens: 256,
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var got map[string]any
	p := anthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, anthropicMessage(`{"question":"1/2 + 1/4?","answer":"3/4"}`, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"1/2 + 1/4?","answer":"3/4"}`, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 50, OutputTokens: 30, TotalTokens: 80}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)

	assert.Equal(t, "claude-haiku-4-5-20251001", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])
	assert.NotNil(t, got["system"])
}

func TestAnthropicTruncatedOutput(t *testing.T) {
	p := anthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, anthropicMessage(`{"question":"1/2 + `, "max_tokens"))
	})

	_, err := p.Generate(context.Background(), itemRequest())
	require.ErrorIs(t, err, ErrTruncated)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "anthropic", e.Provider)
	assert.Equal(t, `{"question":"1/2 + `, string(e.Content))
}

func TestAnthropicSchemaMismatch(t *testing.T) {
	p := anthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, anthropicMessage(`{"question":"no answer"}`, "end_turn"))
	})

	_, err := p.Generate(context.Background(), itemRequest())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAnthropicErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		kind       error
		wait       time.Duration
	}{
		{"rate limited", http.StatusTooManyRequests, "7", ErrRateLimited, 7 * time.Second},
		{"rate limited without header", http.StatusTooManyRequests, "", ErrRateLimited, 0},
		{"server error", http.StatusInternalServerError, "", ErrUnavailable, 0},
		{"bad request", http.StatusBadRequest, "", ErrUnavailable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := anthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				writeJSON(w, tt.status, map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "api_error", "message": "nope"},
				})
			})

			_, err := p.Generate(context.Background(), itemRequest())
			require.ErrorIs(t, err, tt.kind)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wait, e.RetryAfter)
		})
	}
}

func openAIStub(t *testing.T, name string, h http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := newChatCompletions(name, "test-key", srv.URL+"/v1", "gpt-4o-mini")
	require.NoError(t, err)
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Messages       []openai.ChatCompletionMessage `json:"messages"`
		ResponseFormat struct {
			Type       string         `json:"type"`
			JSONSchema map[string]any `json:"json_schema"`
		} `json:"response_format"`
	}
	p := openAIStub(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, chatCompletion(`{"question":"2 x 3?","answer":"6"}`, "stop"))
	})

	resp, err := p.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 25, TotalTokens: 65}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, string(openai.ChatCompletionResponseFormatTypeJSONSchema), got.ResponseFormat.Type)
	assert.Equal(t, "answer", got.ResponseFormat.JSONSchema["name"])
	assert.Equal(t, true, got.ResponseFormat.JSONSchema["strict"])
}

func TestOpenAITruncatedOutput(t *testing.T) {
	p := openAIStub(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, chatCompletion(`{"question":"2 x`, "length"))
	})

	_, err := p.Generate(context.Background(), itemRequest())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestOpenAIFreeTextSkipsValidation(t *testing.T) {
	p := openAIStub(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, chatCompletion("plain words", "length"))
	})

	req := itemRequest()
	req.Schema = nil
	resp, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "plain words", string(resp.Content))
	assert.Equal(t, StopMaxTokens, resp.StopReason)
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := openAIStub(t, "openrouter", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{"message": "nope", "type": "server_error"},
				})
			})

			_, err := p.Generate(context.Background(), itemRequest())
			require.ErrorIs(t, err, tt.kind)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "openrouter", e.Provider)
		})
	}
}

func TestOpenAINoChoices(t *testing.T) {
	p := openAIStub(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		body := chatCompletion("", "stop")
		body["choices"] = []any{}
		writeJSON(w, http.StatusOK, body)
	})

	_, err := p.Generate(context.Background(), itemRequest())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestOpenRouterDefaults(t *testing.T) {
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or", Model: "openai/gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", p.ModelID())
	assert.Equal(t, "openrouter", p.name)

	_, err = NewOpenRouterProvider(OpenRouterConfig{})
	assert.ErrorContains(t, err, "openrouter")
}

func TestModelAliases(t *testing.T) {
	a, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", a.ModelID())

	a, err = NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-opus-4-6"})
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-6", a.ModelID())

	_, err = NewAnthropicProvider(AnthropicConfig{})
	assert.Error(t, err)

	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-flash", geminiAliases))
	assert.Equal(t, "gemini-3-pro-preview", resolveModel("gemini-3-pro-preview", geminiAliases))
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(map[string]any{
		"type":        "object",
		"description": "an item",
		"properties": map[string]any{
			"kind":    map[string]any{"type": "string", "enum": []any{"multiple_choice", "short_answer"}},
			"level":   map[string]any{"type": "integer"},
			"choices": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"kind"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, "an item", s.Description)
	assert.Equal(t, []string{"kind"}, s.Required)
	require.Contains(t, s.Properties, "kind")
	assert.Equal(t, []string{"multiple_choice", "short_answer"}, s.Properties["kind"].Enum)
	assert.Equal(t, genai.TypeInteger, s.Properties["level"].Type)
	require.NotNil(t, s.Properties["choices"].Items)
	assert.Equal(t, genai.TypeString, s.Properties["choices"].Items.Type)
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: ErrRateLimited, Provider: "openai", RetryAfter: 2 * time.Second, Err: errors.New("slow down")}
	assert.Equal(t, "openai: rate limited (retry after 2s): slow down", e.Error())
	assert.ErrorIs(t, e, ErrRateLimited)
	assert.NotErrorIs(t, e, ErrUnavailable)

	bare := &Error{Kind: ErrTruncated}
	assert.Equal(t, "response truncated", bare.Error())
	assert.False(t, bare.retryable())
}
