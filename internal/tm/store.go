// Package tm implements the translation-memory engine: a pgvector-backed
// store of previously promoted English/Persian cue pairs, top-k semantic
// recall by cosine distance, and the composite confidence score used to
// decide whether a recalled entry can be reused without a full translate
// pass.
package tm

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Entry is a single promoted translation pair.
type Entry struct {
	ID        int64
	EnHash    string
	EnText    string
	FaText    string
	Domain    string
	Embedding []float32
	QAScore   int
	CreatedAt time.Time
}

const ddl = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS tm_entries (
    id          BIGSERIAL    PRIMARY KEY,
    en_hash     TEXT         NOT NULL UNIQUE,
    en_text     TEXT         NOT NULL,
    fa_text     TEXT         NOT NULL,
    domain      TEXT         NOT NULL DEFAULT '',
    embedding   vector(%d)   NOT NULL,
    qa_score    INTEGER      NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tm_entries_domain
    ON tm_entries (domain);

CREATE INDEX IF NOT EXISTS idx_tm_entries_embedding
    ON tm_entries USING hnsw (embedding vector_cosine_ops);
`

// Migrate creates the tm_entries table, the pgvector extension, and its HNSW
// index if they do not already exist. Safe to call on every application
// start; embeddingDimensions must match the configured embeddings provider.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	stmt := fmt.Sprintf(ddl, embeddingDimensions)
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("tm: migrate: %w", err)
	}
	return nil
}

// Store is the PostgreSQL-backed translation memory. All methods are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, registers pgvector types on every connection,
// and runs [Migrate].
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("tm: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tm: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("tm: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Upsert inserts a promoted entry. If a row with the same EnHash already
// exists, that row is left unchanged and the call returns nil.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	const q = `
		INSERT INTO tm_entries (en_hash, en_text, fa_text, domain, embedding, qa_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (en_hash) DO NOTHING`

	vec := pgvector.NewVector(e.Embedding)
	_, err := s.pool.Exec(ctx, q, e.EnHash, e.EnText, e.FaText, e.Domain, vec, e.QAScore)
	if err != nil {
		return fmt.Errorf("tm: upsert: %w", err)
	}
	return nil
}

// Candidate is a recalled entry paired with its cosine distance to the query.
type Candidate struct {
	Entry
	Distance float64
}

// TopK returns the topK entries whose embeddings are closest (cosine
// distance) to embedding, optionally restricted to domain when domain is
// non-empty. Results are ordered by ascending distance (most similar first).
func (s *Store) TopK(ctx context.Context, embedding []float32, topK int, domain string) ([]Candidate, error) {
	queryVec := pgvector.NewVector(embedding)

	args := []any{queryVec}
	where := ""
	if domain != "" {
		args = append(args, domain)
		where = fmt.Sprintf("WHERE domain = $%d", len(args))
	}
	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT id, en_hash, en_text, fa_text, domain, embedding, qa_score, created_at,
		       embedding <=> $1 AS distance
		FROM   tm_entries
		%s
		ORDER  BY distance
		LIMIT  %s`, where, limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("tm: topk: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Candidate, error) {
		var (
			c   Candidate
			vec pgvector.Vector
		)
		if err := row.Scan(
			&c.ID, &c.EnHash, &c.EnText, &c.FaText, &c.Domain, &vec, &c.QAScore, &c.CreatedAt,
			&c.Distance,
		); err != nil {
			return Candidate{}, err
		}
		c.Embedding = vec.Slice()
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tm: topk scan: %w", err)
	}
	if results == nil {
		results = []Candidate{}
	}
	return results, nil
}
