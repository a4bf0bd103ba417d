package tm

import "context"

// Action is the outcome of a translation-memory gating decision for a cue.
type Action string

const (
	// ActionReuse means the top candidate's confidence cleared the
	// auto-reuse threshold: take its FaText verbatim, no LLM call needed.
	ActionReuse Action = "reuse"

	// ActionJudge means the top candidate's confidence is between the judge
	// and auto-reuse thresholds: ask the TM-judge agent to confirm reuse.
	ActionJudge Action = "judge"

	// ActionTranslate means no candidate cleared the judge threshold: the
	// cue must go through the full translate/QA pipeline.
	ActionTranslate Action = "translate"
)

// Thresholds holds the two confidence cutoffs that drive gating.
type Thresholds struct {
	// AutoReuse is the confidence above which a candidate is reused without
	// a judge call.
	AutoReuse float64

	// Judge is the confidence above which a candidate is worth asking the
	// judge agent about, but not high enough to auto-reuse.
	Judge float64
}

// DefaultThresholds mirrors the pipeline's default TM gate.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoReuse: 0.88, Judge: 0.82}
}

// Decision is the result of gating a single cue against the translation
// memory.
type Decision struct {
	Action     Action
	Candidate  *Candidate
	Confidence float64
}

// Gate recalls the closest TM entries for enText's embedding and decides
// whether to reuse, judge, or translate it from scratch.
//
// topK bounds how many candidates are recalled; only the nearest one
// (smallest cosine distance) is scored and returned in the Decision.
func Gate(ctx context.Context, store *Store, enText string, embedding []float32, domain string, topK int, th Thresholds) (Decision, error) {
	candidates, err := store.TopK(ctx, embedding, topK, domain)
	if err != nil {
		return Decision{}, err
	}
	if len(candidates) == 0 {
		return Decision{Action: ActionTranslate}, nil
	}

	best := candidates[0]
	sim := 1 - best.Distance
	confidence := CompositeConfidence(enText, best.EnText, sim)

	switch {
	case confidence >= th.AutoReuse:
		return Decision{Action: ActionReuse, Candidate: &best, Confidence: confidence}, nil
	case confidence >= th.Judge:
		return Decision{Action: ActionJudge, Candidate: &best, Confidence: confidence}, nil
	default:
		return Decision{Action: ActionTranslate, Candidate: &best, Confidence: confidence}, nil
	}
}
