package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the postgres driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
)

const queryTimeout = 5 * time.Second

var (
	upsertEdgeQuery = `
					INSERT INTO link_edges (src, dest, updated_at)
					VALUES ($1, $2, NOW())
					ON CONFLICT (src, dest)
					DO UPDATE SET updated_at=NOW()
					`

	deleteOutboundQuery = "DELETE FROM link_edges WHERE src=$1"

	outboundQuery = "SELECT dest FROM link_edges WHERE src=$1 ORDER BY dest"

	inboundCountQuery = "SELECT COUNT(*) FROM link_edges WHERE dest=$1"

	nodesQuery = `
				SELECT src AS id FROM link_edges
				UNION
				SELECT dest AS id FROM link_edges
				ORDER BY id
				`

	edgesQuery = "SELECT src, dest, updated_at FROM link_edges ORDER BY src, dest"
)

// Static and compile-time check to ensure PostgresGraph implements
// graph.Graph.
var _ graph.Graph = (*PostgresGraph)(nil)

// PostgresGraph implements a persistent link graph on top of a postgres
// instance. It expects a link_edges(src BIGINT, dest BIGINT, updated_at
// TIMESTAMPTZ, PRIMARY KEY(src, dest)) table to exist.
type PostgresGraph struct {
	db *sql.DB
}

// NewPostgresGraph connects to the postgres instance described by dsn and
// returns a PostgresGraph backed by it.
func NewPostgresGraph(dsn string) (*PostgresGraph, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &PostgresGraph{db}, nil
}

// Close terminates the connection to the postgres instance.
func (s *PostgresGraph) Close() error {
	return s.db.Close()
}

// UpsertEdge records a directed edge between two document IDs.
func (s *PostgresGraph) UpsertEdge(from, to int64) error {
	if from <= 0 || to <= 0 {
		return fmt.Errorf("upsert edge (%d -> %d): %w", from, to, graph.ErrInvalidEdge)
	}

	if from == to {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, upsertEdgeQuery, from, to); err != nil {
		return fmt.Errorf("upsert edge: %w", err)
	}

	return nil
}

// ReplaceOutbound atomically replaces the outbound edge set of a document.
func (s *PostgresGraph) ReplaceOutbound(from int64, to []int64) error {
	if from <= 0 {
		return fmt.Errorf("replace outbound of %d: %w", from, graph.ErrInvalidEdge)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace outbound: %w", err)
	}

	if _, err = tx.ExecContext(ctx, deleteOutboundQuery, from); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("replace outbound: %w", err)
	}

	for _, target := range to {
		if target <= 0 || target == from {
			continue
		}

		if _, err = tx.ExecContext(ctx, upsertEdgeQuery, from, target); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("replace outbound: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("replace outbound: %w", err)
	}

	return nil
}

// Outbound returns the documents the given document links to.
func (s *PostgresGraph) Outbound(from int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, outboundQuery, from)
	if err != nil {
		return nil, fmt.Errorf("outbound: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []int64
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("outbound: %w", err)
		}

		result = append(result, target)
	}

	return result, rows.Err()
}

// InboundCount returns the number of documents linking to the given document.
func (s *PostgresGraph) InboundCount(to int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, inboundCountQuery, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("inbound count: %w", err)
	}

	return count, nil
}

// Nodes returns the IDs of all documents that participate in at least one
// edge.
func (s *PostgresGraph) Nodes() ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, nodesQuery)
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("nodes: %w", err)
		}

		result = append(result, id)
	}

	return result, rows.Err()
}

// Edges returns an iterator over all edges in the graph.
func (s *PostgresGraph) Edges() (graph.EdgeIterator, error) {
	rows, err := s.db.Query(edgesQuery)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}

	return &edgeIterator{rows: rows}, nil
}
