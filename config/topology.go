package config

import (
	"fmt"
	"os"

	"github.com/hyperdag/routing-plane/models"
	"gopkg.in/yaml.v3"
)

// TopologySeed is the YAML shape of a topology seed file
type TopologySeed struct {
	Nodes []SeedNode `yaml:"nodes"`
	Edges []SeedEdge `yaml:"edges"`
}

// SeedNode describes one node in a seed file
type SeedNode struct {
	ID           string             `yaml:"id"`
	Kind         string             `yaml:"kind"`
	Capabilities map[string]float64 `yaml:"capabilities,omitempty"`
	Region       string             `yaml:"region,omitempty"`
	LatencyMs    float64            `yaml:"latency_ms,omitempty"`
	Compliance   []string           `yaml:"compliance,omitempty"`
	CostPerToken float64            `yaml:"cost_per_token,omitempty"`
	ResponseMs   float64            `yaml:"response_ms,omitempty"`
	Availability float64            `yaml:"availability,omitempty"`
	Pricing      string             `yaml:"pricing,omitempty"`
	Discount     float64            `yaml:"discount,omitempty"`
	Reputation   float64            `yaml:"reputation,omitempty"`
}

// SeedEdge describes one edge in a seed file
type SeedEdge struct {
	From        string  `yaml:"from"`
	To          string  `yaml:"to"`
	Weight      float64 `yaml:"weight,omitempty"`
	LatencyMs   float64 `yaml:"latency_ms,omitempty"`
	Bandwidth   float64 `yaml:"bandwidth,omitempty"`
	Reliability float64 `yaml:"reliability,omitempty"`
}

// LoadTopology parses a YAML topology seed file.
func LoadTopology(path string) (*TopologySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology seed: %w", err)
	}
	var seed TopologySeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse topology seed: %w", err)
	}
	if len(seed.Nodes) == 0 {
		return nil, fmt.Errorf("topology seed %s has no nodes", path)
	}
	return &seed, nil
}

// Node converts a seed entry into a domain node with sensible defaults.
func (n SeedNode) Node() *models.Node {
	capabilities := make(map[models.TaskType]float64, len(n.Capabilities))
	for task, score := range n.Capabilities {
		capabilities[models.TaskType(task)] = score
	}

	availability := n.Availability
	if availability == 0 {
		availability = 1
	}
	reputation := n.Reputation
	if reputation == 0 {
		reputation = 0.8
	}
	pricing := models.PricingModel(n.Pricing)
	if pricing == "" {
		pricing = models.PricingOnDemand
	}
	discount := n.Discount
	if discount == 0 {
		discount = 1
	}

	return &models.Node{
		ID:           n.ID,
		Kind:         models.NodeKind(n.Kind),
		Capabilities: capabilities,
		Metrics: models.NodeMetrics{
			ResponseTimeMs: n.ResponseMs,
			Availability:   availability,
			CostPerToken:   n.CostPerToken,
		},
		Geo: models.NodeGeo{
			Region:         n.Region,
			LatencyMs:      n.LatencyMs,
			ComplianceTags: n.Compliance,
		},
		Pricing: models.NodePricing{
			Model:          pricing,
			DiscountFactor: discount,
		},
		Status:     models.NodeStatusActive,
		Reputation: reputation,
	}
}

// Edge converts a seed entry into a domain edge.
func (e SeedEdge) Edge() models.Edge {
	weight := e.Weight
	if weight == 0 {
		weight = 1
	}
	reliability := e.Reliability
	if reliability == 0 {
		reliability = 1
	}
	return models.Edge{
		From:        e.From,
		To:          e.To,
		Weight:      weight,
		LatencyMs:   e.LatencyMs,
		Bandwidth:   e.Bandwidth,
		Reliability: reliability,
	}
}
