package memory

import "github.com/sokmotor/sokmotor/linkgraph/graph"

// Static and compile-time check to ensure edgeIterator implements
// graph.EdgeIterator.
var _ graph.EdgeIterator = (*edgeIterator)(nil)

// edgeIterator iterates a snapshot of in-memory graph edges. The snapshot
// is taken while holding the store read lock, so iteration itself needs no
// further synchronization.
type edgeIterator struct {
	edges        []graph.Edge
	currentIndex int
}

// Next advances the iterator. When no more edges are available calls to
// Next return false.
func (i *edgeIterator) Next() bool {
	if i.currentIndex >= len(i.edges) {
		return false
	}

	i.currentIndex++

	return true
}

// Error returns the last error encountered by the iterator.
func (i *edgeIterator) Error() error { return nil }

// Close releases any resources allocated to the iterator.
func (i *edgeIterator) Close() error { return nil }

// Edge returns the currently fetched edge.
func (i *edgeIterator) Edge() graph.Edge {
	return i.edges[i.currentIndex-1]
}
