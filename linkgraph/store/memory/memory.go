package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
)

// Static and compile-time check to ensure InMemoryGraph implements
// graph.Graph.
var _ graph.Graph = (*InMemoryGraph)(nil)

// InMemoryGraph implements an in-memory adjacency store over integer
// document IDs that can be concurrently accessed by multiple clients.
type InMemoryGraph struct {
	mu sync.RWMutex

	// from → to → last observed time.
	out map[int64]map[int64]time.Time

	// Inbound edge counts, kept incrementally so authority scoring does
	// not need to scan the whole graph.
	inCount map[int64]int64
}

// NewInMemoryGraph creates a new in-memory link graph.
func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{
		out:     make(map[int64]map[int64]time.Time),
		inCount: make(map[int64]int64),
	}
}

// UpsertEdge records a directed edge between two document IDs.
func (s *InMemoryGraph) UpsertEdge(from, to int64) error {
	if from <= 0 || to <= 0 {
		return fmt.Errorf("upsert edge (%d -> %d): %w", from, to, graph.ErrInvalidEdge)
	}

	// Self-links never contribute to authority.
	if from == to {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertEdgeLocked(from, to)

	return nil
}

func (s *InMemoryGraph) upsertEdgeLocked(from, to int64) {
	targets, exists := s.out[from]
	if !exists {
		targets = make(map[int64]time.Time)
		s.out[from] = targets
	}

	if _, exists := targets[to]; !exists {
		s.inCount[to]++
	}

	targets[to] = time.Now()
}

// ReplaceOutbound atomically replaces the outbound edge set of a document.
func (s *InMemoryGraph) ReplaceOutbound(from int64, to []int64) error {
	if from <= 0 {
		return fmt.Errorf("replace outbound of %d: %w", from, graph.ErrInvalidEdge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for target := range s.out[from] {
		s.inCount[target]--
		if s.inCount[target] <= 0 {
			delete(s.inCount, target)
		}
	}
	delete(s.out, from)

	for _, target := range to {
		if target <= 0 || target == from {
			continue
		}

		s.upsertEdgeLocked(from, target)
	}

	return nil
}

// Outbound returns the documents the given document links to.
func (s *InMemoryGraph) Outbound(from int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := s.out[from]
	if len(targets) == 0 {
		return nil, nil
	}

	result := make([]int64, 0, len(targets))
	for target := range targets {
		result = append(result, target)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })

	return result, nil
}

// InboundCount returns the number of documents linking to the given document.
func (s *InMemoryGraph) InboundCount(to int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inCount[to], nil
}

// Nodes returns the IDs of all documents that participate in at least one
// edge.
func (s *InMemoryGraph) Nodes() ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for from, targets := range s.out {
		seen[from] = struct{}{}
		for to := range targets {
			seen[to] = struct{}{}
		}
	}

	result := make([]int64, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })

	return result, nil
}

// Edges returns an iterator over a point-in-time snapshot of the graph
// edges.
func (s *InMemoryGraph) Edges() (graph.EdgeIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []graph.Edge
	for from, targets := range s.out {
		for to, updatedAt := range targets {
			edges = append(edges, graph.Edge{
				From:      from,
				To:        to,
				UpdatedAt: updatedAt,
			})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}

		return edges[i].To < edges[j].To
	})

	return &edgeIterator{edges: edges}, nil
}
