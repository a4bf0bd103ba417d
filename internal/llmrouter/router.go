// Package llmrouter drives a single LLM call across a primary model and its
// configured fallback models, retrying each model with jittered exponential
// backoff before moving to the next, and persisting one audit row per call
// via internal/store — updated in place as attempts proceed, not inserted
// once per attempt.
package llmrouter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/MrWong99/subtitled/internal/resilience"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
)

// RetryConfig controls the per-model retry loop.
type RetryConfig struct {
	// MaxAttempts is the number of times a single model is tried before the
	// router moves on to the next fallback. Default: 3.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the jittered exponential backoff. Default: 10s.
	MaxBackoff time.Duration
}

// DefaultRetryConfig mirrors the pipeline's default per-model retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}
}

// modelEntry pairs a named model with its provider; the name is what the
// LLMRun audit row records.
type modelEntry struct {
	name     string
	provider llm.Provider
}

// Router fans a single logical call out across a primary model and ordered
// fallback models, retrying each one with backoff before advancing.
type Router struct {
	agent  string
	models []modelEntry
	retry  RetryConfig
	store  *store.Store
}

// New creates a Router for the named agent (e.g. "translator", "tm_judge"),
// trying primary first and then each fallback in order. store may be nil,
// in which case no LLMRun audit rows are written (useful in tests).
func New(agent string, primary llm.Provider, primaryModel string, fallbacks map[string]llm.Provider, fallbackOrder []string, retry RetryConfig, st *store.Store) *Router {
	entries := []modelEntry{{name: primaryModel, provider: primary}}
	for _, name := range fallbackOrder {
		if p, ok := fallbacks[name]; ok {
			entries = append(entries, modelEntry{name: name, provider: p})
		}
	}
	return &Router{agent: agent, models: entries, retry: retry, store: st}
}

// Call sends req through the model list, retrying each with jittered
// backoff, and returns the first successful completion. jobID may be empty
// for calls not tied to a job (none currently, but kept for symmetry with
// the LLMRun schema's optional back-reference).
func (r *Router) Call(ctx context.Context, jobID string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	inputSHA := hashMessages(req)

	var runID int64
	if r.store != nil {
		id, err := r.store.StartLLMRun(ctx, jobID, r.agent, r.models[0].name, inputSHA)
		if err != nil {
			slog.Warn("llmrouter: failed to start LLMRun audit row", "agent", r.agent, "err", err)
		} else {
			runID = id
		}
	}

	var lastErr error
	for _, m := range r.models {
		resp, err := r.callWithRetry(ctx, m, req)
		if err == nil {
			r.record(ctx, runID, m.name, store.LLMRunSuccess, resp)
			return resp, nil
		}
		lastErr = err
		r.record(ctx, runID, m.name, store.LLMRunError, nil)
		slog.Warn("llmrouter: model failed, trying next", "agent", r.agent, "model", m.name, "err", err)
	}
	return nil, fmt.Errorf("llmrouter: %s: %w: %v", r.agent, resilience.ErrAllFailed, lastErr)
}

// callWithRetry retries a single model up to MaxAttempts times with
// exponential backoff and full jitter. Each attempt is limited to 180s.
func (r *Router) callWithRetry(ctx context.Context, m modelEntry, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	const attemptTimeout = 180 * time.Second
	attempts := r.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffWithJitter(attempt, r.retry.InitialBackoff, r.retry.MaxBackoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		resp, err := m.provider.Complete(attemptCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// backoffWithJitter returns a random delay in [0, min(max, initial*2^attempt)).
func backoffWithJitter(attempt int, initial, max time.Duration) time.Duration {
	backoff := initial << attempt
	if backoff > max || backoff <= 0 {
		backoff = max
	}
	return time.Duration(rand.Int63n(int64(backoff)))
}

// record updates the LLMRun row for this call with the outcome of one
// attempt. A no-op when the router was built without a store.
func (r *Router) record(ctx context.Context, runID int64, model string, status store.LLMRunStatus, resp *llm.CompletionResponse) {
	if r.store == nil || runID == 0 {
		return
	}
	var outputSHA string
	var promptTokens, completionTokens int
	if resp != nil {
		outputSHA = hashText(resp.Content)
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	}
	if err := r.store.RecordAttempt(ctx, runID, model, status, outputSHA, promptTokens, completionTokens); err != nil {
		slog.Warn("llmrouter: failed to record LLMRun attempt", "agent", r.agent, "model", model, "err", err)
	}
}

func hashMessages(req llm.CompletionRequest) string {
	b, _ := json.Marshal(req.Messages)
	return hashText(string(b))
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
