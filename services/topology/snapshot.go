package topology

import (
	"github.com/hyperdag/routing-plane/models"
)

// Snapshot is an immutable view of the topology at one point in time. Readers
// may hold a snapshot for the duration of a request without synchronization;
// concurrent store mutations produce new snapshots and never touch old ones.
type Snapshot struct {
	version uint64
	nodes   map[string]*models.Node
	edges   map[string][]models.Edge
}

func newSnapshot(nodes map[string]*models.Node, edges map[string][]models.Edge, version uint64) *Snapshot {
	if nodes == nil {
		nodes = make(map[string]*models.Node)
	}
	if edges == nil {
		edges = make(map[string][]models.Edge)
	}
	return &Snapshot{version: version, nodes: nodes, edges: edges}
}

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Node returns the node with the given ID.
func (s *Snapshot) Node(id string) (*models.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns every node in the snapshot.
func (s *Snapshot) Nodes() []*models.Node {
	out := make([]*models.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns the outgoing edges of a node.
func (s *Snapshot) Edges(from string) []models.Edge {
	return s.edges[from]
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int {
	total := 0
	for _, edges := range s.edges {
		total += len(edges)
	}
	return total
}

// HasCycle reports whether the snapshot's graph contains a directed cycle,
// using a three-color DFS.
func (s *Snapshot) HasCycle() bool {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(s.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, e := range s.edges[id] {
			switch color[e.To] {
			case gray:
				return true
			case white:
				if visit(e.To) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range s.nodes {
		if color[id] == white && visit(id) {
			return true
		}
	}
	return false
}

// reachable reports whether to is reachable from from by following edges.
func (s *Snapshot) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range s.edges[cur] {
			if e.To == to {
				return true
			}
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// cloneNodes returns a new snapshot sharing edge storage but with a fresh
// node map, ready for node mutation.
func (s *Snapshot) cloneNodes() *Snapshot {
	nodes := make(map[string]*models.Node, len(s.nodes))
	for id, n := range s.nodes {
		nodes[id] = n
	}
	return newSnapshot(nodes, s.edges, s.version+1)
}

// cloneEdges returns a new snapshot sharing node storage but with a fresh
// adjacency map, ready for edge mutation.
func (s *Snapshot) cloneEdges() *Snapshot {
	edges := make(map[string][]models.Edge, len(s.edges))
	for from, list := range s.edges {
		edges[from] = append([]models.Edge(nil), list...)
	}
	return newSnapshot(s.nodes, edges, s.version+1)
}
