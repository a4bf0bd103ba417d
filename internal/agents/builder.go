package agents

import (
	"github.com/MrWong99/subtitled/internal/llmrouter"
	"github.com/MrWong99/subtitled/internal/store"
)

// Builder constructs each agent on demand, picking its primary/fallback
// model pair according to the job's risk level or difficulty score — the
// Go equivalent of the pipeline's per-call model-selection branches.
type Builder struct {
	pool   *llmrouter.Pool
	models ModelConfig
	retry  llmrouter.RetryConfig
	store  *store.Store
}

// NewBuilder creates a Builder. store may be nil to disable LLMRun audit
// persistence (tests).
func NewBuilder(pool *llmrouter.Pool, models ModelConfig, retry llmrouter.RetryConfig, st *store.Store) *Builder {
	return &Builder{pool: pool, models: models, retry: retry, store: st}
}

func (b *Builder) router(agent, primary string, fallbacks []string) (*llmrouter.Router, error) {
	return llmrouter.BuildRouter(b.pool, agent, primary, fallbacks, b.retry, b.store)
}

// Strategist builds a Strategist routed to the stronger model when
// riskLevel is "high", and the lighter model otherwise.
func (b *Builder) Strategist(riskLevel string) (*Strategist, error) {
	primary, fallbacks := b.models.StrategistLow, b.models.FallbackStrategistLow
	if riskLevel == "high" {
		primary, fallbacks = b.models.StrategistHigh, b.models.FallbackStrategistHigh
	}
	r, err := b.router("strategist", primary, fallbacks)
	if err != nil {
		return nil, err
	}
	return NewStrategist(r), nil
}

// Terminologist builds a Terminologist routed to the harder model once
// difficulty reaches 8.
func (b *Builder) Terminologist(difficulty int) (*Terminologist, error) {
	primary := b.models.TerminologistMid
	if difficulty >= 8 {
		primary = b.models.TerminologistHard
	}
	r, err := b.router("terminologist", primary, b.models.FallbackTerminologist)
	if err != nil {
		return nil, err
	}
	return NewTerminologist(r), nil
}

// Translator builds a Translator routed by difficulty: <=3 easy, <=7 mid,
// otherwise hard.
func (b *Builder) Translator(difficulty int) (*Translator, error) {
	var primary string
	var fallbacks []string
	switch {
	case difficulty <= 3:
		primary, fallbacks = b.models.TranslatorEasy, b.models.FallbackTranslatorEasy
	case difficulty <= 7:
		primary, fallbacks = b.models.TranslatorMid, b.models.FallbackTranslatorMid
	default:
		primary, fallbacks = b.models.TranslatorHard, b.models.FallbackTranslatorHard
	}
	r, err := b.router("translator", primary, fallbacks)
	if err != nil {
		return nil, err
	}
	return NewTranslator(r), nil
}

// QAPolisher builds a QAPolisher routed to the stronger model once
// difficulty exceeds 3.
func (b *Builder) QAPolisher(difficulty int) (*QAPolisher, error) {
	primary, fallbacks := b.models.QAEasy, b.models.FallbackQAEasy
	if difficulty > 3 {
		primary, fallbacks = b.models.QAHard, b.models.FallbackQAHard
	}
	r, err := b.router("qa_polisher", primary, fallbacks)
	if err != nil {
		return nil, err
	}
	return NewQAPolisher(r), nil
}

// TMJudge builds the translation-memory reuse judge. It has no fallback
// chain by design: a judge failure should fall back to translating the cue
// fresh, not to a second opinion.
func (b *Builder) TMJudge() (*TMJudge, error) {
	r, err := b.router("tm_judge", b.models.TMJudge, nil)
	if err != nil {
		return nil, err
	}
	return NewTMJudge(r), nil
}
