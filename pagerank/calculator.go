/*
	pagerank package executes the iterative version of the PageRank
	algorithm over the link graph until the desired level of convergence is
	reached. The computation is a batch job: it loads the graph into flat
	arrays (index arena + adjacency lists), iterates to convergence and
	publishes an immutable score snapshot. Nothing here runs on the query
	hot path.
*/

package pagerank

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
)

// Config encapsulates the tunables for the PageRank calculation.
type Config struct {
	// DampingFactor is the probability that a random surfer follows an
	// outgoing link instead of jumping to a random page.
	DampingFactor float64

	// MinDelta is the convergence threshold: iteration stops once the
	// largest per-node score change drops below it.
	MinDelta float64

	// MaxIterations caps the number of iterations regardless of
	// convergence.
	MaxIterations int
}

func (cfg *Config) validate() error {
	var err error

	if cfg.DampingFactor < 0 || cfg.DampingFactor > 1.0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for damping factor, must be in [0, 1]",
		))
	} else if cfg.DampingFactor == 0 {
		cfg.DampingFactor = 0.85
	}

	if cfg.MinDelta < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for min delta, must be >= 0",
		))
	} else if cfg.MinDelta == 0 {
		cfg.MinDelta = 1e-6
	}

	if cfg.MaxIterations < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for max iterations, must be >= 0",
		))
	} else if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 30
	}

	return err
}

// Calculator computes PageRank scores for the documents in a link graph.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator instance using the provided config
// options.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf(
			"PageRank calculator config validation failed: %w", err,
		)
	}

	return &Calculator{cfg: cfg}, nil
}

// Calculate loads the graph into an index arena and iterates
//
//	rank(d) = (1-δ)/N + δ·Σ(rank(p)/outdegree(p))
//
// until the largest per-node change drops below MinDelta or MaxIterations
// is reached. The accumulated score of dead-end nodes (no outgoing links)
// is redistributed evenly across the whole graph on every iteration, as if
// those nodes linked to every page. Calculate honors context cancellation
// between iterations.
func (c *Calculator) Calculate(ctx context.Context, g graph.Graph) (*Snapshot, error) {
	arena, err := newArena(g)
	if err != nil {
		return nil, fmt.Errorf("pagerank: unable to load link graph: %w", err)
	}

	n := len(arena.ids)
	if n == 0 {
		return emptySnapshot(), nil
	}

	var (
		damping = c.cfg.DampingFactor
		ranks   = make([]float64, n)
		next    = make([]float64, n)
	)

	for i := range ranks {
		ranks[i] = 1.0 / float64(n)
	}

	for iteration := 0; iteration < c.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pagerank: calculation aborted: %w", err)
		}

		// Score mass sitting on dead ends is treated as if those nodes
		// linked to every page in the graph.
		var deadEndMass float64
		for i, targets := range arena.out {
			if len(targets) == 0 {
				deadEndMass += ranks[i]
			}
		}

		base := (1.0-damping)/float64(n) + damping*deadEndMass/float64(n)
		for i := range next {
			next[i] = base
		}

		for i, targets := range arena.out {
			if len(targets) == 0 {
				continue
			}

			share := damping * ranks[i] / float64(len(targets))
			for _, j := range targets {
				next[j] += share
			}
		}

		var maxDelta float64
		for i := range ranks {
			if delta := math.Abs(next[i] - ranks[i]); delta > maxDelta {
				maxDelta = delta
			}
		}

		ranks, next = next, ranks

		if maxDelta < c.cfg.MinDelta {
			break
		}
	}

	return newSnapshot(arena.ids, ranks), nil
}

// arena holds the link graph as flat arrays: node IDs, an ID → index
// mapping and per-node adjacency lists of indexes.
type arena struct {
	ids   []int64
	index map[int64]int
	out   [][]int
}

func newArena(g graph.Graph) (*arena, error) {
	ids, err := g.Nodes()
	if err != nil {
		return nil, err
	}

	a := &arena{
		ids:   ids,
		index: make(map[int64]int, len(ids)),
		out:   make([][]int, len(ids)),
	}
	for i, id := range ids {
		a.index[id] = i
	}

	it, err := g.Edges()
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
		edge := it.Edge()
		from, fromOK := a.index[edge.From]
		to, toOK := a.index[edge.To]
		if !fromOK || !toOK {
			continue
		}

		a.out[from] = append(a.out[from], to)
	}

	return a, it.Error()
}
