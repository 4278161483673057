/*
	graph package defines the behavior of link graph stores. The graph is an
	adjacency structure over the stable integer document IDs assigned by the
	text index. Storing plain integer edges (instead of linked objects)
	keeps the naturally cyclic web graph trivially iterable, which is what
	the batch PageRank computation needs.
*/

package graph

import "time"

// Edge represents a directed link from the page with document ID From to
// the page with document ID To.
type Edge struct {
	// From is the document ID of the linking page.
	From int64

	// To is the document ID of the linked page.
	To int64

	// UpdatedAt is the last time the edge was observed by the crawler.
	UpdatedAt time.Time
}

// Graph should be implemented by link graph stores.
type Graph interface {
	// UpsertEdge records a directed edge between two document IDs.
	// Self-links are ignored and repeated upserts only refresh the
	// UpdatedAt timestamp.
	UpsertEdge(from, to int64) error

	// ReplaceOutbound atomically replaces the outbound edge set of a
	// document with the provided targets. The crawler invokes this after
	// each successful fetch so stale links disappear from the graph.
	ReplaceOutbound(from int64, to []int64) error

	// Outbound returns the documents the given document links to.
	Outbound(from int64) ([]int64, error)

	// InboundCount returns the number of documents linking to the given
	// document.
	InboundCount(to int64) (int64, error)

	// Nodes returns the IDs of all documents that participate in at
	// least one edge, as source or as target.
	Nodes() ([]int64, error)

	// Edges returns an iterator over all edges in the graph.
	Edges() (EdgeIterator, error)
}

// EdgeIterator is implemented by types that iterate graph edges.
type EdgeIterator interface {
	// Next loads the next edge, returns false when no more edges are
	// available or when an error occurs.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources allocated to the iterator.
	Close() error

	// Edge returns the currently fetched edge.
	Edge() Edge
}
