package utils

import (
	"strings"
	"unicode"
)

// SimilarQuestion is a past question that resembles the current one.
type SimilarQuestion struct {
	Question   string
	Similarity float64
	Note       string
}

// NormalizeText lowercases, replaces punctuation with spaces and collapses
// whitespace.
func NormalizeText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(NormalizeText(text)) {
		set[tok] = struct{}{}
	}
	return set
}

// TokenOverlap is |A ∩ B| / max(|A|, |B|) over normalized token sets.
func TokenOverlap(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(setA), len(setB)))
}

// FindSimilarQuestion picks the past question with the highest overlap at or
// above threshold. An identical question wins immediately.
func FindSimilarQuestion(current string, past []string, threshold float64) *SimilarQuestion {
	if len(tokenSet(current)) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(current)

	var best *SimilarQuestion
	for _, p := range past {
		if strings.TrimSpace(p) == trimmed {
			return &SimilarQuestion{Question: p, Similarity: 1.0, Note: "Same question asked before."}
		}
		ratio := TokenOverlap(current, p)
		if ratio >= threshold && (best == nil || ratio > best.Similarity) {
			best = &SimilarQuestion{Question: p, Similarity: ratio, Note: "Similar question asked before."}
		}
	}
	return best
}
