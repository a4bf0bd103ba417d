package tm

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	collapseSpace = regexp.MustCompile(`\s+`)
	numberToken   = regexp.MustCompile(`\d+(\.\d+)?`)
)

// NormalizeForHash lowercases, trims, and collapses internal whitespace so
// that trivially-equivalent English source text hashes identically.
func NormalizeForHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return collapseSpace.ReplaceAllString(s, " ")
}

// EnHash returns the content hash used as the dedup key for a promoted TM
// entry and as the cache key for exact-match lookups.
func EnHash(enText string) string {
	sum := sha256.Sum256([]byte(NormalizeForHash(enText)))
	return hex.EncodeToString(sum[:])
}

// CompositeConfidence blends embedding similarity with two cheap structural
// signals — relative length and shared numeric tokens — into a single
// [0,1] reuse-confidence score:
//
//	0.75*sim + 0.15*lenRatio + 0.10*numMatch
//
// sim is the cosine similarity (1 - cosine distance) between the query and
// the candidate's embedding. lenRatio and numMatch are derived from the raw
// text pair.
func CompositeConfidence(queryText, candidateText string, sim float64) float64 {
	lenRatio := lengthRatio(queryText, candidateText)
	numMatch := numberOverlap(queryText, candidateText)

	score := 0.75*sim + 0.15*lenRatio + 0.10*numMatch
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// lengthRatio returns the ratio of the shorter rune length to the longer,
// in [0,1]. Two empty strings are considered a perfect match.
func lengthRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// numberOverlap returns the fraction of numeric tokens in a that also
// appear in b, out of the union of both token sets. Texts with no numbers
// at all are treated as a perfect match (nothing to disagree on).
func numberOverlap(a, b string) float64 {
	na := numberToken.FindAllString(a, -1)
	nb := numberToken.FindAllString(b, -1)
	if len(na) == 0 && len(nb) == 0 {
		return 1
	}

	setA := make(map[string]struct{}, len(na))
	for _, n := range na {
		setA[n] = struct{}{}
	}
	setB := make(map[string]struct{}, len(nb))
	for _, n := range nb {
		setB[n] = struct{}{}
	}

	union := map[string]struct{}{}
	for n := range setA {
		union[n] = struct{}{}
	}
	for n := range setB {
		union[n] = struct{}{}
	}
	if len(union) == 0 {
		return 1
	}

	matched := 0
	for n := range setA {
		if _, ok := setB[n]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(union))
}
