package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/subtitled/internal/agents"
	"github.com/MrWong99/subtitled/internal/llmrouter"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openrouter", "anyllm"},
	"asr":        {"assemblyai", "whisper", "mock"},
	"embeddings": {"openai", "ollama", "mock"},
	"vad":        {"mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies [ApplyDefaults], and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with the pipeline's documented
// defaults. Values explicitly set in YAML are left untouched.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogLevelInfo
	}
	if cfg.Storage.DataRoot == "" {
		cfg.Storage.DataRoot = "./data"
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Queue.Capacity <= 0 {
		cfg.Queue.Capacity = 64
	}

	s := &cfg.Pipeline.Subtitle
	if s.MaxLines <= 0 {
		s.MaxLines = 2
	}
	if s.MaxCharsPerLine <= 0 {
		s.MaxCharsPerLine = 42
	}
	if s.TargetCPS <= 0 {
		s.TargetCPS = 15.0
	}
	if s.MinCueMs <= 0 {
		s.MinCueMs = 900
	}
	if s.MaxCueMs <= 0 {
		s.MaxCueMs = 6500
	}

	if cfg.Pipeline.TranslationBatchSize <= 0 {
		cfg.Pipeline.TranslationBatchSize = 20
	}
	if cfg.Pipeline.MinDifficultyForTerms <= 0 {
		cfg.Pipeline.MinDifficultyForTerms = 4
	}

	tm := &cfg.Pipeline.TM
	if tm.AutoReuseThreshold <= 0 {
		tm.AutoReuseThreshold = 0.88
	}
	if tm.JudgeThreshold <= 0 {
		tm.JudgeThreshold = 0.82
	}
	if tm.TopK <= 0 {
		tm.TopK = 8
	}

	if cfg.Pipeline.EmbeddingDimensions <= 0 {
		cfg.Pipeline.EmbeddingDimensions = 1536
	}

	defaults := agents.DefaultModelConfig()
	m := &cfg.Pipeline.Models
	applyModelDefaults(m, defaults)
}

// applyModelDefaults fills any unset model identifiers from defaults,
// letting operators override a single model without restating the rest.
func applyModelDefaults(m *AgentModelsConfig, defaults agents.ModelConfig) {
	if m.StrategistLow == "" {
		m.StrategistLow = defaults.StrategistLow
	}
	if m.StrategistHigh == "" {
		m.StrategistHigh = defaults.StrategistHigh
	}
	if m.StrategistLowFallback == "" {
		m.StrategistLowFallback = strings.Join(defaults.FallbackStrategistLow, ",")
	}
	if m.StrategistHighFallback == "" {
		m.StrategistHighFallback = strings.Join(defaults.FallbackStrategistHigh, ",")
	}
	if m.TerminologistMid == "" {
		m.TerminologistMid = defaults.TerminologistMid
	}
	if m.TerminologistHard == "" {
		m.TerminologistHard = defaults.TerminologistHard
	}
	if m.TerminologistFallback == "" {
		m.TerminologistFallback = strings.Join(defaults.FallbackTerminologist, ",")
	}
	if m.TranslatorEasy == "" {
		m.TranslatorEasy = defaults.TranslatorEasy
	}
	if m.TranslatorMid == "" {
		m.TranslatorMid = defaults.TranslatorMid
	}
	if m.TranslatorHard == "" {
		m.TranslatorHard = defaults.TranslatorHard
	}
	if m.TranslatorEasyFallback == "" {
		m.TranslatorEasyFallback = strings.Join(defaults.FallbackTranslatorEasy, ",")
	}
	if m.TranslatorMidFallback == "" {
		m.TranslatorMidFallback = strings.Join(defaults.FallbackTranslatorMid, ",")
	}
	if m.TranslatorHardFallback == "" {
		m.TranslatorHardFallback = strings.Join(defaults.FallbackTranslatorHard, ",")
	}
	if m.QAEasy == "" {
		m.QAEasy = defaults.QAEasy
	}
	if m.QAHard == "" {
		m.QAHard = defaults.QAHard
	}
	if m.QAEasyFallback == "" {
		m.QAEasyFallback = strings.Join(defaults.FallbackQAEasy, ",")
	}
	if m.QAHardFallback == "" {
		m.QAHardFallback = strings.Join(defaults.FallbackQAHard, ",")
	}
	if m.TMJudge == "" {
		m.TMJudge = defaults.TMJudge
	}
}

// ParseCSVList splits a comma-separated model identifier list, trimming
// whitespace and dropping empty entries. A thin alias over
// [llmrouter.ModelsFromCSV] kept local so config's test suite doesn't need
// to import llmrouter just to exercise parsing.
func ParseCSVList(csv string) []string {
	return llmrouter.ModelsFromCSV(csv)
}

// ToAgentModelConfig converts the YAML-friendly [AgentModelsConfig] (models
// plus CSV fallback strings) into the [agents.ModelConfig] the agent
// builder consumes.
func (m AgentModelsConfig) ToAgentModelConfig() agents.ModelConfig {
	return agents.ModelConfig{
		StrategistLow:          m.StrategistLow,
		StrategistHigh:         m.StrategistHigh,
		FallbackStrategistLow:  ParseCSVList(m.StrategistLowFallback),
		FallbackStrategistHigh: ParseCSVList(m.StrategistHighFallback),

		TerminologistMid:      m.TerminologistMid,
		TerminologistHard:     m.TerminologistHard,
		FallbackTerminologist: ParseCSVList(m.TerminologistFallback),

		TranslatorEasy:         m.TranslatorEasy,
		TranslatorMid:          m.TranslatorMid,
		TranslatorHard:         m.TranslatorHard,
		FallbackTranslatorEasy: ParseCSVList(m.TranslatorEasyFallback),
		FallbackTranslatorMid:  ParseCSVList(m.TranslatorMidFallback),
		FallbackTranslatorHard: ParseCSVList(m.TranslatorHardFallback),

		QAEasy:         m.QAEasy,
		QAHard:         m.QAHard,
		FallbackQAEasy: ParseCSVList(m.QAEasyFallback),
		FallbackQAHard: ParseCSVList(m.QAHardFallback),

		TMJudge: m.TMJudge,
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("database.postgres_dsn is required"))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr.name is required"))
	}
	if cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("providers.embeddings.name is required"))
	}

	tm := cfg.Pipeline.TM
	if tm.AutoReuseThreshold < 0 || tm.AutoReuseThreshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.tm.auto_reuse_threshold %.2f must be in [0,1]", tm.AutoReuseThreshold))
	}
	if tm.JudgeThreshold < 0 || tm.JudgeThreshold > tm.AutoReuseThreshold {
		errs = append(errs, fmt.Errorf("pipeline.tm.judge_threshold %.2f must be in [0, auto_reuse_threshold]", tm.JudgeThreshold))
	}

	s := cfg.Pipeline.Subtitle
	if s.MinCueMs > 0 && s.MaxCueMs > 0 && s.MinCueMs > s.MaxCueMs {
		errs = append(errs, fmt.Errorf("pipeline.subtitle.min_cue_ms %d exceeds max_cue_ms %d", s.MinCueMs, s.MaxCueMs))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind. Unknown names are not
// a validation error — third-party provider implementations can register
// under any name — only a signal worth a human's attention.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
