package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordScorerAxesInUnitRange(t *testing.T) {
	scorer := NewKeywordScorer()

	tests := []struct {
		name       string
		question   string
		answer     string
		confidence float64
	}{
		{"normal", "what is the capital of france", "the capital of france is paris", 0.9},
		{"empty answer", "what is the capital", "", 0.5},
		{"empty question", "", "some answer text here", 0.5},
		{"both empty", "", "", 0},
		{"overconfident", "question", "answer", 1.5},
		{"long answer", "short question", strings.Repeat("word ", 500), 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := scorer.Assess(tt.question, tt.answer, tt.confidence)
			for _, axis := range []float64{q.EstimatedAccuracy, q.ResponseRelevance, q.Completeness} {
				assert.GreaterOrEqual(t, axis, 0.0)
				assert.LessOrEqual(t, axis, 1.0)
			}
		})
	}
}

func TestKeywordScorerRelevance(t *testing.T) {
	scorer := NewKeywordScorer()

	onTopic := scorer.Assess("capital france population", "france capital paris population two million", 0.8)
	offTopic := scorer.Assess("capital france population", "bananas are yellow fruit", 0.8)

	assert.Greater(t, onTopic.ResponseRelevance, offTopic.ResponseRelevance)
	assert.Zero(t, offTopic.ResponseRelevance)
}

func TestKeywordScorerCompleteness(t *testing.T) {
	scorer := NewKeywordScorer()

	terse := scorer.Assess("explain this topic", "yes", 0.8)
	thorough := scorer.Assess("explain this topic", strings.Repeat("detailed explanation content ", 30), 0.8)

	assert.Less(t, terse.Completeness, thorough.Completeness)
	assert.Equal(t, 1.0, thorough.Completeness)
}

func TestQualityOverall(t *testing.T) {
	scorer := NewKeywordScorer()
	q := scorer.Assess("capital of france", "the capital of france is paris and it has been the capital for centuries of french history", 0.9)
	overall := q.Overall()
	assert.Greater(t, overall, 0.0)
	assert.LessOrEqual(t, overall, 1.0)
}
