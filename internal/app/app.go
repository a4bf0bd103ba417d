// Package app wires all subtitle-pipeline subsystems into a running
// application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems and starts the worker pool, Run starts the HTTP server and
// blocks until the context is cancelled, and Shutdown tears everything down
// in reverse order.
//
// For testing, inject mock implementations via functional options
// (WithJobStore, WithTMStore, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/subtitled/internal/agents"
	"github.com/MrWong99/subtitled/internal/config"
	"github.com/MrWong99/subtitled/internal/health"
	"github.com/MrWong99/subtitled/internal/httpapi"
	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/observe"
	"github.com/MrWong99/subtitled/internal/pipeline"
	"github.com/MrWong99/subtitled/internal/segment"
	"github.com/MrWong99/subtitled/internal/storage"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/internal/tm"
	"github.com/MrWong99/subtitled/internal/worker"
	"github.com/MrWong99/subtitled/pkg/provider/asr"
	"github.com/MrWong99/subtitled/pkg/provider/embeddings"
	"github.com/MrWong99/subtitled/pkg/provider/vad"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
// LLM is intentionally absent: the pipeline routes per-call through
// [llmrouter.Pool], not a single resolved provider.
type Providers struct {
	ASR        asr.Provider
	Embeddings embeddings.Provider
	VAD        vad.Engine // nil disables the silence-trim sub-stage
}

// App owns all subsystem lifetimes and orchestrates the subtitle pipeline
// server: job intake over HTTP, the background worker pool, and the stage
// pipeline each worker runs.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store    *store.Store
	tmStore  *tm.Store
	pool     *llmrouter.Pool
	builder  *agents.Builder
	pipeline *pipeline.Pipeline
	layout   *storage.Layout
	queue    *worker.Queue
	api      *httpapi.Handler
	srv      *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithJobStore injects a job store instead of connecting to Postgres.
func WithJobStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithTMStore injects a translation-memory store instead of connecting to
// Postgres.
func WithTMStore(s *tm.Store) Option {
	return func(a *App) { a.tmStore = s }
}

// WithLLMPool injects an LLM pool instead of building one from config.
func WithLLMPool(p *llmrouter.Pool) Option {
	return func(a *App) { a.pool = p }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: store connections, the LLM
// pool, the agent builder, the pipeline, the on-disk artifact layout, the
// worker pool, and the HTTP handler.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initTM(ctx); err != nil {
		return nil, fmt.Errorf("app: init tm: %w", err)
	}
	a.initLLMPool()
	a.initAgentBuilder()
	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}
	a.initPipeline()
	a.initQueue()
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	s, err := store.NewStore(ctx, a.cfg.Database.PostgresDSN)
	if err != nil {
		return err
	}
	a.store = s
	a.closers = append(a.closers, func() error { s.Close(); return nil })
	return nil
}

func (a *App) initTM(ctx context.Context) error {
	if a.tmStore != nil {
		return nil
	}
	s, err := tm.NewStore(ctx, a.cfg.Database.PostgresDSN, a.cfg.Pipeline.EmbeddingDimensions)
	if err != nil {
		return err
	}
	a.tmStore = s
	a.closers = append(a.closers, func() error { s.Close(); return nil })
	return nil
}

// initLLMPool builds the OpenRouter-backed model pool the pipeline's agents
// resolve model identifiers through. LLM access has no single provider to
// inject via Providers — agents pick a model per call.
func (a *App) initLLMPool() {
	if a.pool != nil {
		return
	}
	entry := a.cfg.Providers.LLM
	a.pool = llmrouter.NewOpenRouterPool(entry.APIKey, entry.BaseURL)
}

func (a *App) initAgentBuilder() {
	if a.builder != nil {
		return
	}
	models := a.cfg.Pipeline.Models.ToAgentModelConfig()
	a.builder = agents.NewBuilder(a.pool, models, llmrouter.DefaultRetryConfig(), a.store)
}

func (a *App) initStorage() error {
	layout, err := storage.New(a.cfg.Storage.DataRoot)
	if err != nil {
		return err
	}
	a.layout = layout
	return nil
}

func (a *App) initPipeline() {
	subtitleCfg := a.cfg.Pipeline.Subtitle
	cfg := pipeline.Config{
		Segment: segment.Config{
			MaxLines:        subtitleCfg.MaxLines,
			MaxCharsPerLine: subtitleCfg.MaxCharsPerLine,
			MinCueMs:        subtitleCfg.MinCueMs,
			MaxCueMs:        subtitleCfg.MaxCueMs,
			PauseBreakMs:    segment.DefaultConfig().PauseBreakMs,
		},
		MinGapMs: 40,
		TM: tm.Thresholds{
			AutoReuse: a.cfg.Pipeline.TM.AutoReuseThreshold,
			Judge:     a.cfg.Pipeline.TM.JudgeThreshold,
		},
		TMTopK:                a.cfg.Pipeline.TM.TopK,
		BatchSize:             a.cfg.Pipeline.TranslationBatchSize,
		MinDifficultyForTerms: a.cfg.Pipeline.MinDifficultyForTerms,
	}

	a.pipeline = &pipeline.Pipeline{
		Store:    a.store,
		TM:       a.tmStore,
		Embedder: a.providers.Embeddings,
		ASR:      a.providers.ASR,
		VAD:      a.providers.VAD,
		Agents:   a.builder,
		WorkDir:  a.layout.Root,
		Config:   cfg,
	}
}

// initQueue builds the background worker pool. The runner persists the
// pipeline's outputs to disk and records the librarian promotion count
// before returning — the worker only needs pass/fail, callers read results
// back through the job store and the downloadable artifacts.
func (a *App) initQueue() {
	run := func(ctx context.Context, jobID, sourcePath string) error {
		outputs, err := a.pipeline.Run(ctx, jobID, sourcePath)
		if err != nil {
			return err
		}
		return persistOutputs(a.layout, jobID, outputs)
	}

	q := worker.New(a.cfg.Queue.Capacity, a.cfg.Queue.Concurrency, run)
	a.queue = q
	a.closers = append(a.closers, q.Close)
}

func (a *App) initHTTP() {
	a.api = httpapi.New(a.store, a.layout, a.queue)

	mux := http.NewServeMux()
	a.api.Register(mux)
	health.New(health.Checker{Name: "database", Check: a.store.Ping}).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	a.srv = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Store returns the job store.
func (a *App) Store() *store.Store { return a.store }

// TMStore returns the translation-memory store.
func (a *App) TMStore() *tm.Store { return a.tmStore }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails to serve.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.cfg.Server.ListenAddr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		_ = a.srv.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.srv != nil {
			if err := a.srv.Shutdown(ctx); err != nil {
				slog.Warn("http server shutdown error", "err", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
