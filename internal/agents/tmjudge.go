package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

const tmJudgeSystemPrompt = "You are a strict bilingual subtitle QA judge (EN→FA)."

type tmJudgeResult struct {
	Reuse  bool   `json:"reuse"`
	Reason string `json:"reason"`
}

// TMJudge decides, for a cue whose top translation-memory match scored in
// the uncertain band, whether the matched Persian text may be reused as-is.
// It has no fallback chain in the original design: a judge failure falls
// back to translating the cue fresh rather than risking a bad reuse.
type TMJudge struct {
	router *llmrouter.Router
}

// NewTMJudge wraps a router for the "tm_judge" agent.
func NewTMJudge(router *llmrouter.Router) *TMJudge {
	return &TMJudge{router: router}
}

// ShouldReuse returns true only if the model explicitly confirms the match
// is reusable; any error or malformed response is treated as "no" so a
// questionable match never slips through as a free pass.
func (j *TMJudge) ShouldReuse(ctx context.Context, jobID, enText, faText string) bool {
	usr := fmt.Sprintf("Decide if the Persian translation can be reused AS-IS for the English sentence. "+
		"Return ONLY JSON: {\"reuse\": true/false, \"reason\": \"...\"}.\n\nEnglish: %s\nPersian: %s", enText, faText)

	content, err := complete(ctx, j.router, jobID, llm.CompletionRequest{
		SystemPrompt: tmJudgeSystemPrompt,
		Messages:     userMessage(usr),
		Temperature:  0,
		MaxTokens:    200,
	})
	if err != nil {
		return false
	}

	var out tmJudgeResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return false
	}
	return out.Reuse
}
