package models

import (
	"time"
)

// NodeKind represents the role a node plays in the topology
type NodeKind string

const (
	NodeKindProvider  NodeKind = "provider"
	NodeKindGateway   NodeKind = "gateway"
	NodeKindCache     NodeKind = "cache"
	NodeKindValidator NodeKind = "validator"
)

// NodeStatus represents the health state of a node
type NodeStatus string

const (
	NodeStatusActive   NodeStatus = "active"
	NodeStatusDegraded NodeStatus = "degraded"
	NodeStatusFailed   NodeStatus = "failed"
)

// TaskType represents the kind of inference work a request needs
type TaskType string

const (
	TaskTypeLLM       TaskType = "llm"
	TaskTypeVision    TaskType = "vision"
	TaskTypeCode      TaskType = "code"
	TaskTypeReasoning TaskType = "reasoning"
)

// PricingModel represents how a provider bills for capacity
type PricingModel string

const (
	PricingSpot     PricingModel = "spot"
	PricingOnDemand PricingModel = "on_demand"
	PricingReserved PricingModel = "reserved"
)

// NodeMetrics holds the live operational metrics of a node.
// Updated only by the health monitor via probe results.
type NodeMetrics struct {
	GPUUtilization float64 `json:"gpu_utilization"` // 0.0 to 1.0
	ResponseTimeMs float64 `json:"response_time_ms"`
	Availability   float64 `json:"availability"` // 0.0 to 1.0
	CostPerToken   float64 `json:"cost_per_token"`
	ErrorRate      float64 `json:"error_rate"` // 0.0 to 1.0
}

// NodeGeo holds geographic and compliance information for a node
type NodeGeo struct {
	Region         string   `json:"region"`
	LatencyMs      float64  `json:"latency_ms"`
	ComplianceTags []string `json:"compliance_tags,omitempty"` // e.g. "gdpr", "hipaa"
}

// NodePricing holds the pricing model for a node
type NodePricing struct {
	Model          PricingModel `json:"model"`
	DiscountFactor float64      `json:"discount_factor"` // 1.0 = no discount
}

// Node represents a vertex in the provider topology.
// Owned exclusively by the topology store; mutated only through probe results.
type Node struct {
	ID              string                `json:"id"`
	Kind            NodeKind              `json:"kind"`
	Capabilities    map[TaskType]float64  `json:"capabilities"` // per task type, 0.0 to 1.0
	Metrics         NodeMetrics           `json:"metrics"`
	Geo             NodeGeo               `json:"geo"`
	Pricing         NodePricing           `json:"pricing"`
	Status          NodeStatus            `json:"status"`
	FailureCount    int                   `json:"failure_count"`
	Reputation      float64               `json:"reputation"` // 0.0 to 1.0
	LastHealthCheck time.Time             `json:"last_health_check"`
}

// Capability returns the node's capability score for a task type, 0 if unknown.
func (n *Node) Capability(task TaskType) float64 {
	if n.Capabilities == nil {
		return 0
	}
	return n.Capabilities[task]
}

// MatchesCompliance reports whether at least one of the node's compliance
// tags is in the allowed set. An empty allowed set matches every node.
func (n *Node) MatchesCompliance(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, want := range allowed {
		for _, tag := range n.Geo.ComplianceTags {
			if tag == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the node. Used by the topology store to keep
// published snapshots immutable.
func (n *Node) Clone() *Node {
	c := *n
	if n.Capabilities != nil {
		c.Capabilities = make(map[TaskType]float64, len(n.Capabilities))
		for k, v := range n.Capabilities {
			c.Capabilities[k] = v
		}
	}
	if n.Geo.ComplianceTags != nil {
		c.Geo.ComplianceTags = append([]string(nil), n.Geo.ComplianceTags...)
	}
	return &c
}

// Edge represents a directed connection between two topology nodes
type Edge struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Weight      float64 `json:"weight"`
	LatencyMs   float64 `json:"latency_ms"`
	Bandwidth   float64 `json:"bandwidth"`
	Reliability float64 `json:"reliability"` // 0.0 to 1.0
}

// ProbeResult represents the outcome of a single health probe against a node
type ProbeResult struct {
	NodeID         string    `json:"node_id"`
	Success        bool      `json:"success"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	GPUUtilization float64   `json:"gpu_utilization"`
	Availability   float64   `json:"availability"`
	ErrorRate      float64   `json:"error_rate"`
	CheckedAt      time.Time `json:"checked_at"`
}
