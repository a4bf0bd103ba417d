package config_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/MrWong99/subtitled/internal/config"
)

func TestParseCSVList(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}
	for _, c := range cases {
		got := config.ParseCSVList(c.in)
		if len(got) != len(c.want) {
			t.Errorf("ParseCSVList(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("ParseCSVList(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestToAgentModelConfig_RoundTripsFallbacks(t *testing.T) {
	t.Parallel()
	m := config.AgentModelsConfig{
		StrategistLow:          "vendor/low",
		StrategistHigh:         "vendor/high",
		StrategistLowFallback:  "vendor/a,vendor/b",
		StrategistHighFallback: "vendor/c",
		TerminologistMid:       "vendor/mid",
		TerminologistHard:      "vendor/hard",
		TerminologistFallback:  "vendor/d",
		TranslatorEasy:         "vendor/easy",
		TranslatorMid:          "vendor/mid2",
		TranslatorHard:         "vendor/hard2",
		QAEasy:                 "vendor/qa-easy",
		QAHard:                 "vendor/qa-hard",
		TMJudge:                "vendor/judge",
	}
	got := m.ToAgentModelConfig()
	if got.StrategistLow != "vendor/low" || got.StrategistHigh != "vendor/high" {
		t.Errorf("primary model identifiers not carried through: %+v", got)
	}
	want := []string{"vendor/a", "vendor/b"}
	if !reflect.DeepEqual(got.FallbackStrategistLow, want) {
		t.Errorf("FallbackStrategistLow = %v, want %v", got.FallbackStrategistLow, want)
	}
	if got.TMJudge != "vendor/judge" {
		t.Errorf("TMJudge = %q, want vendor/judge", got.TMJudge)
	}
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Server.ListenAddr = ":9999"
	cfg.Pipeline.Subtitle.MaxLines = 3
	cfg.Pipeline.Models.StrategistLow = "custom/model"

	config.ApplyDefaults(cfg)

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr overridden: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Pipeline.Subtitle.MaxLines != 3 {
		t.Errorf("MaxLines overridden: got %d", cfg.Pipeline.Subtitle.MaxLines)
	}
	if cfg.Pipeline.Models.StrategistLow != "custom/model" {
		t.Errorf("StrategistLow overridden: got %q", cfg.Pipeline.Models.StrategistLow)
	}
	// Unset sibling fields still get filled in.
	if cfg.Pipeline.Models.StrategistHigh == "" {
		t.Error("StrategistHigh should have been defaulted")
	}
}

func TestValidate_AutoReuseThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  postgres_dsn: postgres://localhost/subtitled
providers:
  llm: {name: openrouter}
  asr: {name: assemblyai}
  embeddings: {name: openai}
pipeline:
  tm:
    auto_reuse_threshold: 1.5
    judge_threshold: 0.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for auto_reuse_threshold out of [0,1]")
	}
	if !strings.Contains(err.Error(), "auto_reuse_threshold") {
		t.Errorf("error should mention auto_reuse_threshold, got: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "postgres_dsn", "providers.llm", "providers.asr", "providers.embeddings"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidProviderNames_CoversAllKinds(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{"llm", "asr", "embeddings", "vad"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("ValidProviderNames[%q] should not be empty", kind)
		}
	}
	found := false
	for _, n := range config.ValidProviderNames["asr"] {
		if n == "assemblyai" {
			found = true
		}
	}
	if !found {
		t.Error(`ValidProviderNames["asr"] should contain "assemblyai"`)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
