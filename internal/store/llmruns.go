package store

import (
	"context"
	"fmt"
)

// StartLLMRun inserts a new LLMRun row in the running state, before any
// model attempt is made. The router updates this same row in place as it
// iterates the primary model and its fallbacks; a run row always exists
// before the first attempt.
func (s *Store) StartLLMRun(ctx context.Context, jobID, agent, model, inputSHA string) (int64, error) {
	const q = `
		INSERT INTO llm_runs (job_id, agent, model, status, input_sha)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	if err := s.pool.QueryRow(ctx, q, jobID, agent, model, string(LLMRunRunning), inputSHA).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: start llm run: %w", err)
	}
	return id, nil
}

// RecordAttempt updates an in-flight LLMRun with the outcome of one model
// attempt. Call this after every attempt — failed or successful — so the
// row always reflects the most recent one; a later success overrides an
// earlier failure recorded on the same run.
func (s *Store) RecordAttempt(ctx context.Context, runID int64, model string, status LLMRunStatus, outputSHA string, promptTokens, completionTokens int) error {
	const q = `
		UPDATE llm_runs SET
		    model = $2, status = $3, output_sha = $4,
		    prompt_tokens = $5, completion_tokens = $6, finished_at = now()
		WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, runID, model, string(status), outputSHA, promptTokens, completionTokens); err != nil {
		return fmt.Errorf("store: record attempt run %d: %w", runID, err)
	}
	return nil
}
