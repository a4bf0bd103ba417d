package agents

// ModelConfig lists the primary and fallback model identifiers for every
// agent, branching on risk level or difficulty exactly as the pipeline's
// original model-selection logic does. Identifiers are OpenRouter
// "vendor/model" strings (e.g. "google/gemini-3-flash").
type ModelConfig struct {
	StrategistLow          string
	StrategistHigh         string
	FallbackStrategistLow  []string
	FallbackStrategistHigh []string

	TerminologistMid     string
	TerminologistHard    string
	FallbackTerminologist []string

	TranslatorEasy         string
	TranslatorMid          string
	TranslatorHard         string
	FallbackTranslatorEasy []string
	FallbackTranslatorMid  []string
	FallbackTranslatorHard []string

	QAEasy         string
	QAHard         string
	FallbackQAEasy []string
	FallbackQAHard []string

	TMJudge string
}

// DefaultModelConfig mirrors the pipeline's default model assignments.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		StrategistLow:          "google/gemini-3-flash",
		StrategistHigh:         "deepseek/deepseek-r1-0528",
		FallbackStrategistLow:  []string{"anthropic/claude-haiku-4.5", "deepseek/deepseek-v3.2"},
		FallbackStrategistHigh: []string{"google/gemini-3-pro", "openai/gpt-5.2"},

		TerminologistMid:      "deepseek/deepseek-v3.2",
		TerminologistHard:     "deepseek/deepseek-r1-0528",
		FallbackTerminologist: []string{"google/gemini-3-pro", "openai/gpt-5.2"},

		TranslatorEasy:         "anthropic/claude-haiku-4.5",
		TranslatorMid:          "google/gemini-3-pro",
		TranslatorHard:         "openai/gpt-5.2",
		FallbackTranslatorEasy: []string{"google/gemini-3-flash", "deepseek/deepseek-v3.2"},
		FallbackTranslatorMid:  []string{"anthropic/claude-sonnet-4.5", "openai/gpt-5.2"},
		FallbackTranslatorHard: []string{"anthropic/claude-sonnet-4.5", "deepseek/deepseek-r1-0528"},

		QAEasy:         "google/gemini-3-flash",
		QAHard:         "google/gemini-3-pro",
		FallbackQAEasy: []string{"anthropic/claude-haiku-4.5"},
		FallbackQAHard: []string{"anthropic/claude-sonnet-4.5", "openai/gpt-5.2"},

		TMJudge: "google/gemini-3-flash",
	}
}
