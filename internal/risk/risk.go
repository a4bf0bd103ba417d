// Package risk classifies English source text into a difficulty tier used
// to route jobs to stronger (and more expensive) LLM agents.
package risk

import "regexp"

// Level is a coarse difficulty tier assigned to a transcript.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

var (
	techMarkers = regexp.MustCompile(`(?i)\b(API|HTTP|SQL|Docker|Kubernetes|TLS|DNS|VLAN|OAuth|JWT|GPU|RAM|CPU|CLI|Regex)\b`)
	mathMarkers = regexp.MustCompile(`[=+\-*/]|(\b\d+(\.\d+)?\b)`)
	legalMarkers = regexp.MustCompile(`(?i)[§¶]|(\bAct\b|\bRegulation\b|\bArticle\b)`)
	medMarkers   = regexp.MustCompile(`(?i)\b(mg|ml|ICD|dose|diagnosis|patient)\b`)

	sentenceSplit = regexp.MustCompile(`[.!?]\s+`)
)

// Classify assigns a Level to text based on its length, the number of
// domain-marker categories it touches, and how many long (25+ word)
// sentences it contains.
func Classify(text string) Level {
	length := len(text)

	longSentences := 0
	for _, s := range sentenceSplit.Split(text, -1) {
		if wordCount(s) >= 25 {
			longSentences++
		}
	}

	markers := 0
	for _, re := range []*regexp.Regexp{techMarkers, mathMarkers, legalMarkers, medMarkers} {
		if re.MatchString(text) {
			markers++
		}
	}

	switch {
	case length > 25000 || markers >= 3 || longSentences >= 8:
		return High
	case length > 9000 || markers >= 2 || longSentences >= 4:
		return Medium
	default:
		return Low
	}
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !isSpace && !inWord {
			n++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return n
}
