package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/subtitled/internal/store"
)

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SUBTITLED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SUBTITLED_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS llm_runs CASCADE",
		"DROP TABLE IF EXISTS job_glossary_terms CASCADE",
		"DROP TABLE IF EXISTS job_cues CASCADE",
		"DROP TABLE IF EXISTS jobs CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("dropSchema %q: %v", stmt, err)
		}
	}

	s, err := store.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, "job-1", "s3://uploads/job-1.mp4")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != store.StatusUploaded {
		t.Errorf("initial status = %q, want %q", job.Status, store.StatusUploaded)
	}

	if err := s.SetStatus(ctx, job.ID, store.StatusAudioPrep); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.StatusAudioPrep {
		t.Errorf("status after SetStatus = %q, want %q", got.Status, store.StatusAudioPrep)
	}

	if err := s.SetStrategy(ctx, job.ID, "high", "documentary", "neutral", []string{"tech", "legal"}, 7, 82); err != nil {
		t.Fatalf("SetStrategy: %v", err)
	}
	got, _ = s.GetJob(ctx, job.ID)
	if got.RiskLevel != "high" || got.DifficultyScore != 7 || len(got.DomainTags) != 2 {
		t.Errorf("strategy fields not persisted: %+v", got)
	}

	if _, err := s.GetJob(ctx, "missing"); err != nil {
		t.Errorf("GetJob missing should return (nil, nil), got error: %v", err)
	}
}

func TestReplaceCues_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job, _ := s.CreateJob(ctx, "job-cues", "")

	first := []store.Cue{
		{StartMs: 0, EndMs: 1000, EnText: "hello"},
		{StartMs: 1000, EndMs: 2000, EnText: "world"},
	}
	if err := s.ReplaceCues(ctx, job.ID, first); err != nil {
		t.Fatalf("ReplaceCues: %v", err)
	}
	cues, err := s.ListCues(ctx, job.ID)
	if err != nil {
		t.Fatalf("ListCues: %v", err)
	}
	if len(cues) != 2 || cues[0].Seq != 1 || cues[1].Seq != 2 {
		t.Fatalf("unexpected cues: %+v", cues)
	}

	// Re-running segmentation replaces the prior cues entirely.
	second := []store.Cue{{StartMs: 0, EndMs: 500, EnText: "only one now"}}
	if err := s.ReplaceCues(ctx, job.ID, second); err != nil {
		t.Fatalf("ReplaceCues (2nd): %v", err)
	}
	cues, _ = s.ListCues(ctx, job.ID)
	if len(cues) != 1 || cues[0].EnText != "only one now" {
		t.Fatalf("replace did not clear prior cues: %+v", cues)
	}
}

func TestLLMRun_SingleRowAcrossAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job, _ := s.CreateJob(ctx, "job-llm", "")

	runID, err := s.StartLLMRun(ctx, job.ID, "translator", "gpt-4o", "deadbeef")
	if err != nil {
		t.Fatalf("StartLLMRun: %v", err)
	}

	// First attempt fails.
	if err := s.RecordAttempt(ctx, runID, "gpt-4o", store.LLMRunError, "", 0, 0); err != nil {
		t.Fatalf("RecordAttempt (failure): %v", err)
	}
	// Fallback attempt succeeds and overrides the row in place.
	if err := s.RecordAttempt(ctx, runID, "gpt-4o-mini", store.LLMRunSuccess, "cafebabe", 120, 40); err != nil {
		t.Fatalf("RecordAttempt (success): %v", err)
	}

	// No direct getter is exposed beyond what pipeline code needs; this test
	// only exercises that both calls succeed against the same row id without
	// creating a second row (no Insert is issued by RecordAttempt).
}
