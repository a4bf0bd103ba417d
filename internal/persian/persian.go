// Package persian implements text post-processing for Persian (Farsi)
// subtitle output: digit transliteration, punctuation spacing, and
// speaker-label stripping.
package persian

import (
	"regexp"
	"strings"
)

var digitReplacer = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// ToPersianDigits transliterates ASCII digits 0-9 to their Persian
// equivalents. Non-digit runes are left untouched.
func ToPersianDigits(s string) string {
	return digitReplacer.Replace(s)
}

var (
	multiSpace    = regexp.MustCompile(`[ \t]+`)
	punctSpacing  = regexp.MustCompile(`\s*([،؛:!؟])\s*`)
	periodSpacing = regexp.MustCompile(`\s*\.\s*`)
	collapseSpace = regexp.MustCompile(`\s+`)
	speakerLabel  = regexp.MustCompile(`(?i)^(speaker\s*\d+|[A-Z][A-Z0-9 _-]{1,30})\s*:\s*`)
)

// NormalizeSpacing tightens whitespace around Persian punctuation so that
// the result reads naturally in a right-to-left subtitle line: a single
// space follows each of ،؛:!؟ and each full stop, and all other runs of
// whitespace collapse to one space.
func NormalizeSpacing(s string) string {
	s = strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
	s = punctSpacing.ReplaceAllString(s, "$1 ")
	s = periodSpacing.ReplaceAllString(s, ". ")
	s = strings.TrimSpace(collapseSpace.ReplaceAllString(s, " "))
	return s
}

// StripSpeakerIDs removes a leading "SPEAKER 1:" or "JOHN:"-style label
// that ASR transcripts sometimes prepend to a line, so it never leaks into
// the translated cue text.
func StripSpeakerIDs(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(speakerLabel.ReplaceAllString(s, ""))
}

// Clean applies StripSpeakerIDs followed by NormalizeSpacing, the sequence
// used on every agent-produced Persian cue before it is persisted.
func Clean(s string) string {
	return NormalizeSpacing(StripSpeakerIDs(s))
}
