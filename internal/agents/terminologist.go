package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

const terminologistSystemPrompt = "You are Terminologist Agent for EN→FA subtitles. Build a strict bilingual glossary."

// GlossaryTermOut is one entry of the terminologist's strict JSON output.
type GlossaryTermOut struct {
	EnTerm     string `json:"en_term"`
	FaTerm     string `json:"fa_term"`
	TermType   string `json:"term_type"`
	Mandatory  bool   `json:"mandatory"`
	Confidence int    `json:"confidence"`
	Notes      string `json:"notes"`
}

// TerminologistResult is the strict JSON contract the terminologist model
// must return.
type TerminologistResult struct {
	Terms []GlossaryTermOut `json:"terms"`
}

// Terminologist extracts a bilingual glossary of specialized terms from the
// transcript so the translator and QA agents can apply them consistently.
type Terminologist struct {
	router *llmrouter.Router
}

// NewTerminologist wraps a router for the "terminologist" agent. Callers
// pick the router's primary model based on job difficulty before
// construction (difficulty >= 8 gets the stronger model).
func NewTerminologist(router *llmrouter.Router) *Terminologist {
	return &Terminologist{router: router}
}

func (t *Terminologist) Run(ctx context.Context, jobID, transcript string) (TerminologistResult, error) {
	usr := fmt.Sprintf(`Extract specialized terms and output STRICT JSON:
{
  "terms": [
    {
      "en_term": "...",
      "fa_term": "...",
      "term_type": "jargon|product|acronym|name|other",
      "mandatory": true,
      "confidence": 0-100,
      "notes": "short context"
    }
  ]
}

Transcript:
%s`, transcript)

	content, err := complete(ctx, t.router, jobID, llm.CompletionRequest{
		SystemPrompt: terminologistSystemPrompt,
		Messages:     userMessage(usr),
		Temperature:  0.1,
		MaxTokens:    1400,
	})
	if err != nil {
		return TerminologistResult{}, fmt.Errorf("agents: terminologist: %w", err)
	}

	var out TerminologistResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return TerminologistResult{}, fmt.Errorf("agents: terminologist: decode response: %w", err)
	}
	return out, nil
}
