// Package agents implements the LLM-driven roles of the subtitling
// pipeline: the strategist that profiles a transcript, the terminologist
// that builds a job glossary, the translator and QA/polisher that produce
// and refine Persian cues, and the translation-memory reuse judge. Each
// agent owns its own internal/llmrouter.Router so it can be given its own
// primary model and fallback chain.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/persian"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
	"github.com/MrWong99/subtitled/pkg/types"
)

// CueInput is the minimal view of a cue an agent needs to translate or
// polish it. CueID is the store-assigned row id, stringified, since it
// doubles as a JSON object key in the wire contract with the model.
type CueInput struct {
	CueID   string `json:"cue_id"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
	EnText  string `json:"en_text"`
}

// CuesFromStore converts store cues into the agent-facing wire shape.
func CuesFromStore(cues []store.Cue) []CueInput {
	out := make([]CueInput, len(cues))
	for i, c := range cues {
		out[i] = CueInput{CueID: strconv.FormatInt(c.ID, 10), StartMs: c.StartMs, EndMs: c.EndMs, EnText: c.EnText}
	}
	return out
}

// complete runs req through router, returning the raw completion content.
func complete(ctx context.Context, router *llmrouter.Router, jobID string, req llm.CompletionRequest) (string, error) {
	resp, err := router.Call(ctx, jobID, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func userMessage(content string) []types.Message {
	return []types.Message{{Role: "user", Content: content}}
}

func glossaryLines(terms []store.GlossaryTerm) string {
	if len(terms) == 0 {
		return "(none)"
	}
	s := ""
	for _, t := range terms {
		s += fmt.Sprintf("- %s => %s\n", t.TermEn, t.TermFa)
	}
	return s
}

func marshalCues(cues []CueInput) string {
	b, _ := json.Marshal(cues)
	return string(b)
}

// polishMapValue cleans a single Persian translation the way every agent
// that emits Persian text must: strip any speaker-ID prefix the model
// echoed back, then normalize spacing around punctuation.
func polishMapValue(s string) string {
	return persian.NormalizeSpacing(persian.StripSpeakerIDs(s))
}
