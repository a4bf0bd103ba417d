// Package librarian implements the pipeline's final promotion gate: after
// QA, decide which polished cues are trustworthy enough to feed back into
// the translation memory for future reuse.
package librarian

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/internal/tm"
	"github.com/MrWong99/subtitled/pkg/provider/embeddings"
)

// MinQAScore is the minimum QA score a cue must clear before its
// translation is eligible for promotion into translation memory.
const MinQAScore = 85

// disqualifyingIssues are QA issue tags that veto promotion outright,
// regardless of score: a high score cannot compensate for a translation
// that drifted in meaning or garbled a number.
var disqualifyingIssues = map[string]bool{
	"meaning_drift":    true,
	"numbers_mismatch": true,
}

// ShouldStore reports whether a cue with the given QA score and issue tags
// qualifies for promotion into translation memory. Every cue passes through
// QA before reaching the librarian stage, so qaScore is always the model's
// actual score, never a "missing" sentinel.
func ShouldStore(qaScore int, issues []string) bool {
	if qaScore < MinQAScore {
		return false
	}
	for _, issue := range issues {
		if disqualifyingIssues[strings.ToLower(issue)] {
			return false
		}
	}
	return true
}

// Result summarizes one promotion pass over a job's cues.
type Result struct {
	Stored  int
	Skipped int
}

// Promote evaluates every finished cue of a job and inserts the qualifying
// ones into tm, keyed by the hash of their (normalized) English text; an
// English text already present in tm keeps its stored entry. It
// embeds each promoted cue's English text individually; callers that expect
// many promotions per job may prefer batching through EmbedBatch, but single
// cue promotions keep the librarian's failure surface per-cue instead of
// per-job.
func Promote(ctx context.Context, tmStore *tm.Store, embedder embeddings.Provider, domain string, cues []store.Cue) (Result, error) {
	var res Result
	for _, c := range cues {
		if !ShouldStore(c.QAScore, c.Issues) {
			res.Skipped++
			continue
		}

		en := strings.TrimSpace(c.EnText)
		fa := strings.TrimSpace(c.FaTextQA)
		if fa == "" {
			fa = strings.TrimSpace(c.FaText)
		}
		if en == "" || fa == "" {
			res.Skipped++
			continue
		}

		vec, err := embedder.Embed(ctx, en)
		if err != nil {
			return res, fmt.Errorf("librarian: embed cue %d: %w", c.ID, err)
		}

		entry := tm.Entry{
			EnHash:  tm.EnHash(en),
			EnText:  en,
			FaText:  fa,
			Domain:  domain,
			QAScore: c.QAScore,
		}
		entry.Embedding = vec
		if err := tmStore.Upsert(ctx, entry); err != nil {
			return res, fmt.Errorf("librarian: upsert cue %d: %w", c.ID, err)
		}
		res.Stored++
	}
	return res, nil
}
