package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/subtitled/internal/app"
	"github.com/MrWong99/subtitled/internal/config"
	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/internal/tm"
	asrmock "github.com/MrWong99/subtitled/pkg/provider/asr/mock"
	embedmock "github.com/MrWong99/subtitled/pkg/provider/embeddings/mock"
	vadmock "github.com/MrWong99/subtitled/pkg/provider/vad/mock"
)

// testConfig returns a minimal config sufficient to wire up an App without
// touching a real database or network. Tests inject a job store, a TM
// store, and an LLM pool so New never dials Postgres or OpenRouter.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogLevelInfo,
		},
		Database: config.DatabaseConfig{
			PostgresDSN: "postgres://unused",
		},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderEntry{Name: "openrouter", APIKey: "test-key"},
		},
		Storage: config.StorageConfig{
			DataRoot: t.TempDir(),
		},
		Queue: config.QueueConfig{
			Concurrency: 1,
			Capacity:    4,
		},
		Pipeline: config.PipelineConfig{
			Subtitle: config.SubtitleConfig{
				MaxLines:        2,
				MaxCharsPerLine: 42,
				TargetCPS:       15,
				MinCueMs:        900,
				MaxCueMs:        6500,
			},
			TranslationBatchSize:  10,
			MinDifficultyForTerms: 3,
			TM: config.TMConfig{
				AutoReuseThreshold: 0.88,
				JudgeThreshold:     0.82,
				TopK:               5,
			},
			Models: config.AgentModelsConfig{
				StrategistLow:     "openai/gpt-5-mini",
				StrategistHigh:    "openai/gpt-5",
				TerminologistMid:  "openai/gpt-5-mini",
				TerminologistHard: "openai/gpt-5",
				TranslatorEasy:    "openai/gpt-5-mini",
				TranslatorMid:     "openai/gpt-5-mini",
				TranslatorHard:    "openai/gpt-5",
				QAEasy:            "openai/gpt-5-mini",
				QAHard:            "openai/gpt-5",
				TMJudge:           "openai/gpt-5-mini",
			},
			EmbeddingDimensions: 1536,
		},
	}
}

// testProviders returns providers with mock ASR/Embeddings/VAD backends.
func testProviders() *app.Providers {
	return &app.Providers{
		ASR:        &asrmock.Provider{},
		Embeddings: &embedmock.Provider{},
		VAD:        &vadmock.Engine{},
	}
}

func TestNew_WithInjectedStores(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	providers := testProviders()

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithJobStore(&store.Store{}),
		app.WithTMStore(&tm.Store{}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
	if application.Store() == nil {
		t.Error("Store() returned nil")
	}
	if application.TMStore() == nil {
		t.Error("TMStore() returned nil")
	}
}

func TestNew_WithInjectedLLMPool(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	providers := testProviders()
	pool := llmrouter.NewOpenRouterPool("test-key", "")

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithJobStore(&store.Store{}),
		app.WithTMStore(&tm.Store{}),
		app.WithLLMPool(pool),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
}

func TestApp_Shutdown_IsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	providers := testProviders()

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithJobStore(&store.Store{}),
		app.WithTMStore(&tm.Store{}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("first Shutdown() error: %v", err)
	}
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	providers := testProviders()

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithJobStore(&store.Store{}),
		app.WithTMStore(&tm.Store{}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Give Run a moment to start listening.
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
