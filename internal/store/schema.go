// Package store provides the PostgreSQL-backed persistence layer for jobs,
// their cues, glossary terms, and LLM call audit records.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id                    TEXT         PRIMARY KEY,
    status                TEXT         NOT NULL,
    risk_level            TEXT         NOT NULL DEFAULT '',
    difficulty_score      INTEGER      NOT NULL DEFAULT 0,
    strategist_confidence INTEGER      NOT NULL DEFAULT 0,
    genre                 TEXT         NOT NULL DEFAULT '',
    tone                  TEXT         NOT NULL DEFAULT '',
    domain_tags           JSONB        NOT NULL DEFAULT '[]',
    source_path           TEXT         NOT NULL DEFAULT '',
    error_message         TEXT         NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);

CREATE TABLE IF NOT EXISTS job_cues (
    id           BIGSERIAL    PRIMARY KEY,
    job_id       TEXT         NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    seq          INTEGER      NOT NULL,
    start_ms     INTEGER      NOT NULL,
    end_ms       INTEGER      NOT NULL,
    en_text      TEXT         NOT NULL,
    fa_text      TEXT         NOT NULL DEFAULT '',
    fa_text_qa   TEXT         NOT NULL DEFAULT '',
    tm_reused    BOOLEAN      NOT NULL DEFAULT false,
    tm_entry_id  BIGINT,
    needs_translation BOOLEAN NOT NULL DEFAULT false,
    tm_action    TEXT         NOT NULL DEFAULT '',
    tm_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    qa_score     INTEGER      NOT NULL DEFAULT 0,
    qa_issues    JSONB        NOT NULL DEFAULT '[]',
    UNIQUE (job_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_job_cues_job_id ON job_cues (job_id);

CREATE TABLE IF NOT EXISTS job_glossary_terms (
    id          BIGSERIAL PRIMARY KEY,
    job_id      TEXT      NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    term_en     TEXT      NOT NULL,
    term_fa     TEXT      NOT NULL DEFAULT '',
    term_type   TEXT      NOT NULL DEFAULT 'other',
    mandatory   BOOLEAN   NOT NULL DEFAULT false,
    confidence  INTEGER   NOT NULL DEFAULT 0,
    notes       TEXT      NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_job_glossary_terms_job_id ON job_glossary_terms (job_id);

CREATE TABLE IF NOT EXISTS llm_runs (
    id                BIGSERIAL    PRIMARY KEY,
    job_id            TEXT         NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    agent             TEXT         NOT NULL,
    model             TEXT         NOT NULL,
    status            TEXT         NOT NULL DEFAULT 'running',
    input_sha         TEXT         NOT NULL DEFAULT '',
    output_sha        TEXT         NOT NULL DEFAULT '',
    prompt_tokens     INTEGER      NOT NULL DEFAULT 0,
    completion_tokens INTEGER      NOT NULL DEFAULT 0,
    started_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
    finished_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_llm_runs_job_id ON llm_runs (job_id);
`

// Migrate creates the jobs, job_cues, job_glossary_terms, and llm_runs
// tables if they do not already exist. Idempotent; safe on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}
