package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateJob inserts a new Job with status UPLOADED.
func (s *Store) CreateJob(ctx context.Context, id, sourcePath string) (*Job, error) {
	const q = `
		INSERT INTO jobs (id, status, source_path)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	j := &Job{ID: id, Status: StatusUploaded, SourcePath: sourcePath}
	if err := s.pool.QueryRow(ctx, q, id, string(StatusUploaded), sourcePath).Scan(&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: create job: %w", err)
	}
	return j, nil
}

// GetJob retrieves a Job by ID. Returns (nil, nil) if not found.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	const q = `
		SELECT id, status, risk_level, difficulty_score, strategist_confidence,
		       genre, tone, domain_tags, source_path, error_message,
		       created_at, updated_at
		FROM jobs WHERE id = $1`

	var j Job
	var status, domainTags string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&j.ID, &status, &j.RiskLevel, &j.DifficultyScore, &j.StrategistConfidence,
		&j.Genre, &j.Tone, &domainTags, &j.SourcePath, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get job %q: %w", id, err)
	}
	j.Status = Status(status)
	if domainTags != "" {
		_ = json.Unmarshal([]byte(domainTags), &j.DomainTags)
	}
	return &j, nil
}

// SetStatus advances the Job's status. Called after each stage transition
// completes, before the next stage begins.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	const q = `UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return fmt.Errorf("store: set status %q -> %q: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: job %q not found", id)
	}
	return nil
}

// SetFailed marks a Job as failed, recording the stage it failed at and the
// error message. The job's status is left at the failing stage per the
// pipeline's failure semantics.
func (s *Store) SetFailed(ctx context.Context, id string, failingStage Status, errMsg string) error {
	const q = `UPDATE jobs SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, string(failingStage), errMsg)
	if err != nil {
		return fmt.Errorf("store: set failed %q: %w", id, err)
	}
	return nil
}

// SetStrategy writes the Strategist's output fields onto the Job.
func (s *Store) SetStrategy(ctx context.Context, id string, riskLevel, genre, tone string, domainTags []string, difficultyScore, confidence int) error {
	tagsJSON, err := json.Marshal(domainTags)
	if err != nil {
		return fmt.Errorf("store: marshal domain_tags: %w", err)
	}
	const q = `
		UPDATE jobs SET
		    risk_level = $2, genre = $3, tone = $4, domain_tags = $5,
		    difficulty_score = $6, strategist_confidence = $7, updated_at = now()
		WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id, riskLevel, genre, tone, string(tagsJSON), difficultyScore, confidence); err != nil {
		return fmt.Errorf("store: set strategy %q: %w", id, err)
	}
	return nil
}
