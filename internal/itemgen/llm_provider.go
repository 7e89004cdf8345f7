package itemgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/llm"
)

// Purpose labels item generation calls in the LLM event log.
const Purpose = "item-gen"

// LLMProvider implements assessment.ItemProvider using an LLM.
type LLMProvider struct {
	provider llm.Provider
	config   Config
	newID    func() string

	mu     sync.Mutex
	recent []string
}

var _ assessment.ItemProvider = (*LLMProvider)(nil)

// New creates a new LLMProvider with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMProvider {
	return &LLMProvider{
		provider: provider,
		config:   cfg,
		newID:    func() string { return uuid.New().String() },
	}
}

// RequestItem generates one item for req and runs the validator chain on it.
func (g *LLMProvider) RequestItem(ctx context.Context, req assessment.ItemRequest) (*assessment.Item, error) {
	ctx = llm.WithSession(llm.WithPurpose(ctx, Purpose), req.SessionID)

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(req, g.prior(), g.config)},
		},
		Schema:      ItemSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw draftOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	d := raw.draft()

	if err := runValidators(g.config.Validators, d, req); err != nil {
		return nil, err
	}

	item, err := toItem(g.newID(), d)
	if err != nil {
		return nil, err
	}
	g.remember(item.Text)
	return item, nil
}

func (g *LLMProvider) prior() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.recent...)
}

func (g *LLMProvider) remember(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recent = append(g.recent, text)
	if limit := g.config.MaxPriorQuestions; limit > 0 && len(g.recent) > limit {
		g.recent = g.recent[len(g.recent)-limit:]
	}
}

// toItem converts a validated draft into an assessment item.
func toItem(id string, d *Draft) (*assessment.Item, error) {
	kind, err := assessment.ParseKind(d.Kind, d.Choices)
	if err != nil {
		return nil, &ValidationError{Validator: "kind", Message: err.Error(), Retryable: true}
	}
	item := &assessment.Item{
		ID:            id,
		Text:          strings.TrimSpace(d.Text),
		Kind:          kind,
		CorrectAnswer: strings.TrimSpace(d.CorrectAnswer),
		SkillCode:     strings.TrimSpace(d.SkillCode),
		Difficulty:    d.Difficulty,
		Domain:        strings.TrimSpace(d.Domain),
	}
	if err := item.Validate(); err != nil {
		return nil, &ValidationError{Validator: "item", Message: err.Error(), Retryable: true}
	}
	return item, nil
}
