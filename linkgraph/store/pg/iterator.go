package pg

import (
	"database/sql"
	"fmt"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
)

// Static and compile-time check to ensure edgeIterator implements
// graph.EdgeIterator.
var _ graph.EdgeIterator = (*edgeIterator)(nil)

// edgeIterator is a graph.EdgeIterator implementation for the postgres
// graph store.
type edgeIterator struct {
	rows     *sql.Rows
	lastErr  error
	lastEdge graph.Edge
}

// Next loads the next edge, returns false when no more edges are available
// or when an error occurs.
func (i *edgeIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	edge := graph.Edge{}
	i.lastErr = i.rows.Scan(&edge.From, &edge.To, &edge.UpdatedAt)
	if i.lastErr != nil {
		return false
	}

	i.lastEdge = edge

	return true
}

// Error returns the last error encountered by the iterator.
func (i *edgeIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}

	return i.rows.Err()
}

// Close releases any resources allocated to the iterator.
func (i *edgeIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return fmt.Errorf("edge iterator: %w", err)
	}

	return nil
}

// Edge returns the currently fetched edge.
func (i *edgeIterator) Edge() graph.Edge {
	return i.lastEdge
}
