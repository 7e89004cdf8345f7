package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured output from a language model.
type Provider interface {
	// Generate runs one completion. When req.Schema is set the returned
	// Content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema asks the backend for JSON output using its native structured
	// output support. Nil means free text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Schema is a named JSON Schema document. Name doubles as the cache key for
// the compiled validator, so two schemas must not share a name.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// StopReason is the backend-neutral reason generation ended.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason StopReason
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func newUsage(input, output int) Usage {
	return Usage{InputTokens: input, OutputTokens: output, TotalTokens: input + output}
}

// finish turns raw backend output into a Response. Output cut off by the
// token budget is reported as ErrTruncated when a schema was requested,
// since partial JSON never validates.
func finish(provider string, req Request, text string, stop StopReason, usage Usage, model string) (*Response, error) {
	content := json.RawMessage(text)

	if req.Schema != nil {
		if stop == StopMaxTokens {
			return nil, &Error{Kind: ErrTruncated, Provider: provider, Content: content}
		}
		if err := validateContent(req.Schema, content); err != nil {
			return nil, invalidResponse(provider, content, err)
		}
	}

	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}

// resolveModel maps a short alias to a concrete model ID. Unknown names
// pass through so callers can pin exact IDs.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
