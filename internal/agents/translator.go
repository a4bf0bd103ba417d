package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

const translatorSystemPrompt = "You are Translator Agent for EN→FA subtitles. Follow glossary strictly. No speaker IDs."

// Translator produces Persian text for a batch of cues, keyed by cue_id in
// its strict JSON response.
type Translator struct {
	router *llmrouter.Router
}

// NewTranslator wraps a router for the "translator" agent. Callers pick the
// router's primary/fallback models based on job difficulty before
// construction: easy jobs use a light model, mid and hard jobs escalate.
func NewTranslator(router *llmrouter.Router) *Translator {
	return &Translator{router: router}
}

// Run translates one batch of cues and returns a map of cue_id -> Persian
// text, already speaker-ID-stripped and spacing-normalized.
func (tr *Translator) Run(ctx context.Context, jobID string, glossary []store.GlossaryTerm, batch []CueInput) (map[string]string, error) {
	usr := fmt.Sprintf(`Translate cues to Persian. Output STRICT JSON mapping cue_id -> Persian text. No markdown.

Glossary (MANDATORY):
%s
Cues JSON:
%s`, glossaryLines(glossary), marshalCues(batch))

	content, err := complete(ctx, tr.router, jobID, llm.CompletionRequest{
		SystemPrompt: translatorSystemPrompt,
		Messages:     userMessage(usr),
		Temperature:  0.2,
		MaxTokens:    2600,
	})
	if err != nil {
		return nil, fmt.Errorf("agents: translator: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("agents: translator: decode response: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = polishMapValue(v)
	}
	return out, nil
}
