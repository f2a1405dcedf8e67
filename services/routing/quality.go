package routing

import (
	"strings"
	"unicode"

	"github.com/hyperdag/routing-plane/models"
)

// QualityScorer assesses an answer against the question that produced it.
// The default scorer is a keyword heuristic; callers may plug in anything
// that honors the three-axis output contract.
type QualityScorer interface {
	Assess(question, answer string, confidence float64) models.QualityVector
}

// KeywordScorer is the default QualityScorer: relevance from question-term
// overlap, completeness from answer length, accuracy from provider
// confidence blended with overlap.
type KeywordScorer struct{}

// NewKeywordScorer creates the default quality scorer
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

// completenessTarget is the answer length (in words) treated as fully
// complete.
const completenessTarget = 50

// Assess implements QualityScorer.
func (s *KeywordScorer) Assess(question, answer string, confidence float64) models.QualityVector {
	qWords := wordSet(question)
	aWords := wordSet(answer)

	overlap := 0.0
	if len(qWords) > 0 {
		matched := 0
		for w := range qWords {
			if aWords[w] {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(qWords))
	}

	completeness := float64(len(strings.Fields(answer))) / completenessTarget
	if completeness > 1 {
		completeness = 1
	}

	return models.QualityVector{
		EstimatedAccuracy: clamp01(0.7*confidence + 0.3*overlap),
		ResponseRelevance: clamp01(overlap),
		Completeness:      clamp01(completeness),
	}
}

func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) > 2 { // skip stopword-sized tokens
			set[w] = true
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
