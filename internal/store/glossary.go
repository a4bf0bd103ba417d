package store

import (
	"context"
	"fmt"
)

// ReplaceGlossary deletes a job's existing glossary terms and inserts the
// given ones. Used by the TERMS stage, which always replaces the full
// glossary rather than merging into it.
func (s *Store) ReplaceGlossary(ctx context.Context, jobID string, terms []GlossaryTerm) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: replace glossary: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM job_glossary_terms WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("store: replace glossary: delete: %w", err)
	}

	const q = `
		INSERT INTO job_glossary_terms (job_id, term_en, term_fa, term_type, mandatory, confidence, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, t := range terms {
		if _, err := tx.Exec(ctx, q, jobID, t.TermEn, t.TermFa, t.TermType, t.Mandatory, t.Confidence, t.Notes); err != nil {
			return fmt.Errorf("store: replace glossary: insert %q: %w", t.TermEn, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: replace glossary: commit: %w", err)
	}
	return nil
}

// ListGlossary returns all glossary terms bound to jobID.
func (s *Store) ListGlossary(ctx context.Context, jobID string) ([]GlossaryTerm, error) {
	const q = `
		SELECT id, job_id, term_en, term_fa, term_type, mandatory, confidence, notes
		FROM job_glossary_terms WHERE job_id = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: list glossary %q: %w", jobID, err)
	}
	defer rows.Close()

	var terms []GlossaryTerm
	for rows.Next() {
		var t GlossaryTerm
		if err := rows.Scan(&t.ID, &t.JobID, &t.TermEn, &t.TermFa, &t.TermType, &t.Mandatory, &t.Confidence, &t.Notes); err != nil {
			return nil, fmt.Errorf("store: list glossary scan: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list glossary %q: %w", jobID, err)
	}
	return terms, nil
}
