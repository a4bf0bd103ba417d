package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReplaceCues deletes any existing cues for jobID and inserts the given
// ones, numbered 1-based in order. Used by the SEGMENT stage so re-running
// a job is idempotent.
func (s *Store) ReplaceCues(ctx context.Context, jobID string, cues []Cue) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: replace cues: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM job_cues WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("store: replace cues: delete: %w", err)
	}

	for i, c := range cues {
		const q = `
			INSERT INTO job_cues (job_id, seq, start_ms, end_ms, en_text)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, q, jobID, i+1, c.StartMs, c.EndMs, c.EnText); err != nil {
			return fmt.Errorf("store: replace cues: insert seq %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: replace cues: commit: %w", err)
	}
	return nil
}

// ListCues returns all cues for jobID ordered by seq.
func (s *Store) ListCues(ctx context.Context, jobID string) ([]Cue, error) {
	const q = `
		SELECT id, job_id, seq, start_ms, end_ms, en_text, fa_text, fa_text_qa,
		       tm_reused, tm_entry_id, tm_confidence, needs_translation,
		       qa_score, qa_issues
		FROM job_cues WHERE job_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: list cues %q: %w", jobID, err)
	}
	defer rows.Close()

	var cues []Cue
	for rows.Next() {
		var c Cue
		var issuesJSON string
		if err := rows.Scan(
			&c.ID, &c.JobID, &c.Seq, &c.StartMs, &c.EndMs, &c.EnText, &c.FaText, &c.FaTextQA,
			&c.TMReused, &c.TMEntryID, &c.TMConfidence, &c.NeedsTranslation,
			&c.QAScore, &issuesJSON,
		); err != nil {
			return nil, fmt.Errorf("store: list cues scan: %w", err)
		}
		if issuesJSON != "" {
			_ = json.Unmarshal([]byte(issuesJSON), &c.Issues)
		}
		cues = append(cues, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list cues %q: %w", jobID, err)
	}
	return cues, nil
}

// SetTMGating writes the TM_GATING stage's per-cue outcome.
func (s *Store) SetTMGating(ctx context.Context, cueID int64, reused bool, tmEntryID *int64, confidence float64, needsTranslation bool, faText string) error {
	const q = `
		UPDATE job_cues SET
		    tm_reused = $2, tm_entry_id = $3, tm_confidence = $4,
		    needs_translation = $5, fa_text = $6
		WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, cueID, reused, tmEntryID, confidence, needsTranslation, faText); err != nil {
		return fmt.Errorf("store: set tm gating cue %d: %w", cueID, err)
	}
	return nil
}

// SetTranslation writes the TRANSLATE stage's output for a single cue. Safe
// to call repeatedly for the same cue; the prior value is replaced.
func (s *Store) SetTranslation(ctx context.Context, cueID int64, faText string) error {
	const q = `UPDATE job_cues SET fa_text = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, cueID, faText); err != nil {
		return fmt.Errorf("store: set translation cue %d: %w", cueID, err)
	}
	return nil
}

// SetQA writes the QA stage's output for a single cue.
func (s *Store) SetQA(ctx context.Context, cueID int64, faTextQA string, score int, issues []string) error {
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("store: marshal issues: %w", err)
	}
	const q = `UPDATE job_cues SET fa_text_qa = $2, qa_score = $3, qa_issues = $4 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, cueID, faTextQA, score, string(issuesJSON)); err != nil {
		return fmt.Errorf("store: set qa cue %d: %w", cueID, err)
	}
	return nil
}
