package llmrouter

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/pkg/provider/llm"
	"github.com/MrWong99/subtitled/pkg/provider/llm/anyllm"
)

// Pool lazily builds and caches one llm.Provider per model identifier, so
// that agents sharing a model (e.g. two agents both falling back to the same
// model) reuse a single backend client instead of dialing out per call.
type Pool struct {
	mu    sync.Mutex
	cache map[string]llm.Provider
	build func(model string) (llm.Provider, error)
}

// NewPool creates a Pool that builds providers on demand with build.
func NewPool(build func(model string) (llm.Provider, error)) *Pool {
	return &Pool{cache: make(map[string]llm.Provider), build: build}
}

// NewOpenRouterPool creates a Pool backed by OpenRouter's OpenAI-compatible
// API, keyed by OpenRouter's "vendor/model" identifiers (e.g.
// "deepseek/deepseek-r1-0528", "google/gemini-3-pro"). baseURL defaults to
// OpenRouter's public endpoint when empty.
func NewOpenRouterPool(apiKey, baseURL string) *Pool {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return NewPool(func(model string) (llm.Provider, error) {
		return anyllm.New("openai", model, anyllmlib.WithAPIKey(apiKey), anyllmlib.WithBaseURL(baseURL))
	})
}

// Get returns the cached provider for model, building it on first use.
func (p *Pool) Get(model string) (llm.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prov, ok := p.cache[model]; ok {
		return prov, nil
	}
	prov, err := p.build(model)
	if err != nil {
		return nil, fmt.Errorf("llmrouter: build provider for model %q: %w", model, err)
	}
	p.cache[model] = prov
	return prov, nil
}

// ModelsFromCSV splits a comma-separated fallback list from configuration
// into trimmed, non-empty model identifiers, in order.
func ModelsFromCSV(csv string) []string {
	var out []string
	for _, m := range strings.Split(csv, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// BuildRouter resolves primaryModel and each of fallbackModels through pool
// and assembles a Router for agent. A fallback model that fails to resolve
// is dropped from the chain with a warning rather than aborting construction
// of the whole agent, since a missing backend for one fallback shouldn't
// prevent trying the rest.
func BuildRouter(pool *Pool, agent, primaryModel string, fallbackModels []string, retry RetryConfig, st *store.Store) (*Router, error) {
	primary, err := pool.Get(primaryModel)
	if err != nil {
		return nil, fmt.Errorf("llmrouter: %s: resolve primary model %q: %w", agent, primaryModel, err)
	}

	fallbacks := make(map[string]llm.Provider, len(fallbackModels))
	order := make([]string, 0, len(fallbackModels))
	for _, name := range fallbackModels {
		prov, err := pool.Get(name)
		if err != nil {
			slog.Warn("llmrouter: dropping unresolvable fallback model", "agent", agent, "model", name, "err", err)
			continue
		}
		fallbacks[name] = prov
		order = append(order, name)
	}

	return New(agent, primary, primaryModel, fallbacks, order, retry, st), nil
}
