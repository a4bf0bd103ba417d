// Package subtitle clamps a sequence of cue timings into a non-overlapping,
// monotonic timeline and renders it as a SubRip (.srt) file.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/MrWong99/subtitled/internal/segment"
)

// Cue is an indexed, timed subtitle line ready for rendering.
type Cue struct {
	Index   int
	StartMs int
	EndMs   int
	Text    string
}

// ClampNonOverlapping assigns sequential indices and pushes each cue's start
// forward so it never begins before the previous cue's end plus minGapMs,
// and never ends before its own (possibly pushed) start plus minGapMs.
// The input order is taken to already be chronological.
func ClampNonOverlapping(cues []segment.Cue, minGapMs int) []Cue {
	out := make([]Cue, 0, len(cues))
	lastEnd := -1
	for i, c := range cues {
		start := c.StartMs
		if start < lastEnd+minGapMs {
			start = lastEnd + minGapMs
		}
		end := c.EndMs
		if end < start+minGapMs {
			end = start + minGapMs
		}
		out = append(out, Cue{Index: i + 1, StartMs: start, EndMs: end, Text: c.Text})
		lastEnd = end
	}
	return out
}

// WriteSRT renders cues in SubRip format.
func WriteSRT(cues []Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(c.StartMs), formatTimestamp(c.EndMs))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(c.Text))
	}
	return b.String()
}

// formatTimestamp renders milliseconds as SubRip's HH:MM:SS,mmm timecode.
func formatTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1_000
	ms -= seconds * 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}
