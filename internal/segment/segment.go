// Package segment splits ASR output into subtitle cues, either from
// word-level timestamps when available or, as a fallback, from plain
// sentence-split transcript text with estimated timings.
package segment

import (
	"regexp"
	"strings"
)

// Word is a single timestamped token from an ASR result.
type Word struct {
	Text     string
	StartMs  int
	EndMs    int
}

// Cue is an unindexed, un-clamped subtitle cue produced by segmentation.
type Cue struct {
	StartMs int
	EndMs   int
	Text    string
}

// Config holds the shape limits that drive segmentation boundaries.
type Config struct {
	// MaxLines and MaxCharsPerLine bound the cue's rendered length: a cue is
	// flushed once its accumulated text reaches MaxLines*MaxCharsPerLine runes.
	MaxLines        int
	MaxCharsPerLine int

	// MinCueMs and MaxCueMs bound a single cue's duration.
	MinCueMs int
	MaxCueMs int

	// PauseBreakMs is the inter-word silence gap that forces a cue break.
	PauseBreakMs int
}

// DefaultConfig mirrors the pipeline's default subtitle shape.
func DefaultConfig() Config {
	return Config{
		MaxLines:        2,
		MaxCharsPerLine: 42,
		MinCueMs:        900,
		MaxCueMs:        6500,
		PauseBreakMs:    450,
	}
}

// FromWords builds cues from word-level ASR timestamps: a cue breaks on a
// pause longer than PauseBreakMs (once the minimum cue duration has been
// met), when the cue reaches MaxCueMs, or when its text would exceed the
// configured character budget.
func FromWords(words []Word, cfg Config) []Cue {
	if len(words) == 0 {
		return nil
	}
	maxChars := cfg.MaxCharsPerLine * cfg.MaxLines

	var cues []Cue
	var buf []string
	cueStart := words[0].StartMs
	lastEnd := words[0].EndMs

	flush := func(end int) {
		if len(buf) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, " "))
		if text != "" {
			cues = append(cues, Cue{StartMs: cueStart, EndMs: end, Text: text})
		}
		buf = nil
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		start := w.StartMs
		end := w.EndMs
		if end < start {
			end = start
		}
		pause := start - lastEnd

		if len(buf) > 0 && pause > cfg.PauseBreakMs && (lastEnd-cueStart) >= cfg.MinCueMs {
			flush(lastEnd)
			cueStart = start
		}

		buf = append(buf, text)
		lastEnd = end

		if (lastEnd - cueStart) >= cfg.MaxCueMs {
			flush(lastEnd)
			cueStart = lastEnd
		}
		if len(buf) > 0 && len(strings.Join(buf, " ")) >= maxChars {
			flush(lastEnd)
			cueStart = lastEnd
		}
	}
	flush(lastEnd)

	for i := range cues {
		if cues[i].EndMs < cues[i].StartMs+200 {
			cues[i].EndMs = cues[i].StartMs + 200
		}
	}
	return cues
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// FromText builds cues from plain transcript text when word timestamps are
// unavailable. Each sentence becomes one cue; its duration is estimated at
// 150ms per word with a 1200ms floor, and cues are placed back-to-back
// starting at t=0.
func FromText(text string) []Cue {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := sentenceSplit.Split(text, -1)

	var cues []Cue
	t := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words := len(strings.Fields(p))
		if words < 1 {
			words = 1
		}
		est := 150 * words
		if est < 1200 {
			est = 1200
		}
		cues = append(cues, Cue{StartMs: t, EndMs: t + est, Text: p})
		t += est
	}
	return cues
}
