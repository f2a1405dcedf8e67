package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesCompliance(t *testing.T) {
	node := &Node{
		ID:   "p",
		Kind: NodeKindProvider,
		Geo:  NodeGeo{ComplianceTags: []string{"gdpr", "soc2"}},
	}

	tests := []struct {
		name    string
		allowed []string
		want    bool
	}{
		{"no constraints matches all", nil, true},
		{"matching tag", []string{"gdpr"}, true},
		{"one of several matches", []string{"hipaa", "soc2"}, true},
		{"no match", []string{"hipaa"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, node.MatchesCompliance(tt.allowed))
		})
	}

	t.Run("untagged node fails any constraint", func(t *testing.T) {
		bare := &Node{ID: "q", Kind: NodeKindProvider}
		assert.False(t, bare.MatchesCompliance([]string{"gdpr"}))
		assert.True(t, bare.MatchesCompliance(nil))
	})
}

func TestNodeClone(t *testing.T) {
	original := &Node{
		ID:   "p",
		Kind: NodeKindProvider,
		Capabilities: map[TaskType]float64{
			TaskTypeLLM: 0.8,
		},
		Geo:        NodeGeo{ComplianceTags: []string{"gdpr"}},
		Reputation: 0.9,
	}

	clone := original.Clone()
	clone.Capabilities[TaskTypeLLM] = 0.1
	clone.Geo.ComplianceTags[0] = "changed"
	clone.Reputation = 0.2

	assert.Equal(t, 0.8, original.Capability(TaskTypeLLM))
	assert.Equal(t, "gdpr", original.Geo.ComplianceTags[0])
	assert.Equal(t, 0.9, original.Reputation)
}

func TestCapabilityUnknownTask(t *testing.T) {
	node := &Node{ID: "p", Kind: NodeKindProvider}
	assert.Zero(t, node.Capability(TaskTypeVision))
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PrioritySpeed.Valid())
	assert.True(t, PriorityBalanced.Valid())
	assert.False(t, Priority("urgent").Valid())
	assert.False(t, Priority("").Valid())
}

func TestNewRouteRequest(t *testing.T) {
	req := NewRouteRequest("hello")
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, PriorityBalanced, req.Priority)
	assert.Equal(t, "hello", req.Content)
}

func TestPreferencesAvoided(t *testing.T) {
	var nilPrefs *Preferences
	assert.False(t, nilPrefs.Avoided("a"))

	prefs := &Preferences{AvoidProviders: []string{"a", "b"}}
	assert.True(t, prefs.Avoided("a"))
	assert.False(t, prefs.Avoided("c"))
}

func TestQualityVectorOverall(t *testing.T) {
	q := QualityVector{EstimatedAccuracy: 0.9, ResponseRelevance: 0.6, Completeness: 0.3}
	assert.InDelta(t, 0.6, q.Overall(), 1e-9)
}

func TestQualityVectorWeighted(t *testing.T) {
	q := QualityVector{EstimatedAccuracy: 1, ResponseRelevance: 0.5, Completeness: 0}

	assert.InDelta(t, q.Overall(), q.Weighted(nil), 1e-9)

	// Accuracy-only weighting collapses to the accuracy axis.
	assert.InDelta(t, 1, q.Weighted(map[string]float64{
		"accuracy": 1, "relevance": 0, "completeness": 0,
	}), 1e-9)

	// Missing keys default to weight 1.
	assert.InDelta(t, 0.75, q.Weighted(map[string]float64{"completeness": 0}), 1e-9)
}
