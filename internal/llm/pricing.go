package llm

import "strings"

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok) / 1e6
}

// LookupCost prices a model ID by its longest matching family prefix, so
// dated snapshots such as "gpt-4o-2024-11-20" resolve to "gpt-4o". Vendor
// namespaces used by OpenRouter ("openai/gpt-4o") are stripped first.
// It returns nil for unknown models.
func LookupCost(modelID string) *ModelCost {
	if i := strings.LastIndexByte(modelID, '/'); i >= 0 {
		modelID = modelID[i+1:]
	}

	best := ""
	for family := range modelCosts {
		if len(family) > len(best) && familyMatch(modelID, family) {
			best = family
		}
	}
	if best == "" {
		return nil
	}
	c := modelCosts[best]
	return &c
}

// familyMatch requires the prefix to end at a name boundary, so "o1"
// does not price "o1x" and "gpt-4o" does not price "gpt-4o-mini" unless
// nothing longer matches.
func familyMatch(id, family string) bool {
	if !strings.HasPrefix(id, family) {
		return false
	}
	return len(id) == len(family) || id[len(family)] == '-'
}

// Prices as listed on models.dev, February 2026.
var modelCosts = map[string]ModelCost{
	"claude-3-haiku":    {0.25, 1.25},
	"claude-3-5-haiku":  {0.8, 4},
	"claude-3-5-sonnet": {3, 15},
	"claude-3-7-sonnet": {3, 15},
	"claude-3-opus":     {15, 75},
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4":   {3, 15},
	"claude-opus-4":     {15, 75},
	"claude-opus-4-5":   {5, 25},
	"claude-opus-4-6":   {5, 25},

	"gpt-3.5-turbo": {0.5, 1.5},
	"gpt-4":         {30, 60},
	"gpt-4-turbo":   {10, 30},
	"gpt-4.1":       {2, 8},
	"gpt-4.1-mini":  {0.4, 1.6},
	"gpt-4.1-nano":  {0.1, 0.4},
	"gpt-4o":        {2.5, 10},
	"gpt-4o-mini":   {0.15, 0.6},
	"gpt-5":         {1.25, 10},
	"gpt-5-mini":    {0.25, 2},
	"gpt-5-nano":    {0.05, 0.4},
	"gpt-5-pro":     {15, 120},
	"gpt-5.1":       {1.25, 10},
	"gpt-5.2":       {1.75, 14},
	"gpt-5.2-pro":   {21, 168},
	"o1":            {15, 60},
	"o1-mini":       {1.1, 4.4},
	"o1-pro":        {150, 600},
	"o3":            {2, 8},
	"o3-mini":       {1.1, 4.4},
	"o3-pro":        {20, 80},
	"o4-mini":       {1.1, 4.4},

	"gemini-1.5-flash":      {0.075, 0.3},
	"gemini-1.5-pro":        {1.25, 5},
	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
	"gemini-3-flash":        {0.5, 3},
	"gemini-3-pro":          {2, 12},
}
