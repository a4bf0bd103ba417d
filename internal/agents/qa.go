package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

const qaSystemPrompt = "You are QA & Polisher Agent for EN→FA subtitles. Fix meaning, glossary compliance, punctuation, subtitle readability."

type qaPayload struct {
	Cues         []CueInput        `json:"cues"`
	Translations map[string]string `json:"translations"`
}

// QAResult is the strict JSON contract the QA/polisher model must return,
// keyed by cue_id in every map.
type QAResult struct {
	Polished map[string]string   `json:"polished"`
	QAScores map[string]int      `json:"qa_scores"`
	Issues   map[string][]string `json:"issues"`
}

// QAPolisher reviews and polishes a full job's translations in one pass,
// scoring each cue and flagging issues (e.g. meaning drift, glossary
// violations, number mismatches) for downstream reporting and librarian
// promotion decisions.
type QAPolisher struct {
	router *llmrouter.Router
}

// NewQAPolisher wraps a router for the "qa_polisher" agent. Callers pick the
// router's primary/fallback models based on job difficulty before
// construction.
func NewQAPolisher(router *llmrouter.Router) *QAPolisher {
	return &QAPolisher{router: router}
}

func (q *QAPolisher) Run(ctx context.Context, jobID string, glossary []store.GlossaryTerm, cues []CueInput, translations map[string]string) (QAResult, error) {
	payload := qaPayload{Cues: cues, Translations: translations}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return QAResult{}, fmt.Errorf("agents: qa_polisher: marshal payload: %w", err)
	}

	usr := fmt.Sprintf(`Output STRICT JSON:
{
  "polished": { "cue_id": "fa_text" },
  "qa_scores": { "cue_id": 0-100 },
  "issues": { "cue_id": ["..."] }
}

Glossary (MANDATORY):
%s
Input JSON:
%s`, glossaryLines(glossary), payloadJSON)

	content, err := complete(ctx, q.router, jobID, llm.CompletionRequest{
		SystemPrompt: qaSystemPrompt,
		Messages:     userMessage(usr),
		Temperature:  0.1,
		MaxTokens:    2600,
	})
	if err != nil {
		return QAResult{}, fmt.Errorf("agents: qa_polisher: %w", err)
	}

	var out QAResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return QAResult{}, fmt.Errorf("agents: qa_polisher: decode response: %w", err)
	}

	for k, v := range out.Polished {
		out.Polished[k] = polishMapValue(v)
	}
	return out, nil
}
