package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

const strategistSystemPrompt = "You are Strategist Agent for EN→FA subtitles. Be precise and structured."

// StrategistResult is the strict JSON contract the strategist model must
// return.
type StrategistResult struct {
	Genre                string   `json:"genre"`
	Tone                 string   `json:"tone"`
	DomainTags           []string `json:"domain_tags"`
	DifficultyScore      int      `json:"difficulty_score"`
	StrategistConfidence int      `json:"strategist_confidence"`
	NeedsTerminologist   bool     `json:"needs_terminologist"`
	NotesForTranslator   []string `json:"notes_for_translator"`
}

// Strategist profiles a transcript sample: genre, tone, domain tags,
// difficulty, and whether a glossary pass is warranted.
type Strategist struct {
	router *llmrouter.Router
}

// NewStrategist wraps an already-built router for the "strategist" agent.
// Callers pick the router's primary/fallback models based on riskLevel
// before construction (high risk gets the stronger, more expensive model).
func NewStrategist(router *llmrouter.Router) *Strategist {
	return &Strategist{router: router}
}

func (s *Strategist) Run(ctx context.Context, jobID, riskLevel, sampleText string) (StrategistResult, error) {
	usr := fmt.Sprintf(`Output STRICT JSON:
{
  "genre": "tech_tutorial|interview|documentary|casual|academic|legal|medical|entertainment|other",
  "tone": "formal|neutral|casual|humorous|persuasive|emotional",
  "domain_tags": ["..."],
  "difficulty_score": 1-10,
  "strategist_confidence": 0-100,
  "needs_terminologist": true/false,
  "notes_for_translator": ["..."]
}

Transcript:
%s`, sampleText)

	content, err := complete(ctx, s.router, jobID, llm.CompletionRequest{
		SystemPrompt: strategistSystemPrompt,
		Messages:     userMessage(usr),
		Temperature:  0.1,
		MaxTokens:    800,
	})
	if err != nil {
		return StrategistResult{}, fmt.Errorf("agents: strategist: %w", err)
	}

	var out StrategistResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return StrategistResult{}, fmt.Errorf("agents: strategist: decode response: %w", err)
	}
	return out, nil
}
