package pagerank_test

import (
	"context"
	"math"
	"testing"

	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/linkgraph/store/memory"
	"github.com/sokmotor/sokmotor/pagerank"
)

var _ = check.Suite(new(calculatorTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type edge struct {
	src, dest int64
}

type spec struct {
	description string
	edges       []edge
	expScores   map[int64]float64
}

type calculatorTestSuite struct{}

func (s *calculatorTestSuite) TestSimpleCycle(c *check.C) {
	spec := spec{
		description: `
(1) -> (2) -> (3)
 ^             |
 +-------------+
Expect the score to be distributed evenly across the three nodes.
`,
		edges: []edge{
			{1, 2},
			{2, 3},
			{3, 1},
		},
		expScores: map[int64]float64{
			1: 1.0 / 3.0,
			2: 1.0 / 3.0,
			3: 1.0 / 3.0,
		},
	}

	s.assertScores(c, spec)
}

func (s *calculatorTestSuite) TestBackLinkFavorsTarget(c *check.C) {
	spec := spec{
		description: `
  +--(1)<-+
  |       |
  V       |
 (2) <-> (3)

Expect 2 and 3 to score better than 1 due to the back-link between them,
with 2 slightly ahead since two nodes point at it.
`,
		edges: []edge{
			{1, 2},
			{2, 3},
			{3, 1},
			{3, 2},
		},
		expScores: map[int64]float64{
			1: 0.2145,
			2: 0.3937,
			3: 0.3879,
		},
	}

	s.assertScores(c, spec)
}

func (s *calculatorTestSuite) TestDeadEndRedistribution(c *check.C) {
	spec := spec{
		description: `
(1) -> (2) -> (3)

Node 3 is a dead end; its score mass is redistributed across the graph so
the total score still sums to 1.
`,
		edges: []edge{
			{1, 2},
			{2, 3},
		},
		expScores: nil, // only the sum is asserted
	}

	s.assertScores(c, spec)
}

func (s *calculatorTestSuite) TestEmptyGraph(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	snapshot, err := calc.Calculate(context.Background(), memory.NewInMemoryGraph())
	c.Assert(err, check.IsNil)
	c.Assert(snapshot.Len(), check.Equals, 0)
}

func (s *calculatorTestSuite) TestCancelledContext(c *check.C) {
	g := memory.NewInMemoryGraph()
	c.Assert(g.UpsertEdge(1, 2), check.IsNil)

	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = calc.Calculate(ctx, g)
	c.Assert(err, check.ErrorMatches, ".*calculation aborted.*")
}

func (s *calculatorTestSuite) TestInvalidConfig(c *check.C) {
	_, err := pagerank.NewCalculator(pagerank.Config{DampingFactor: 1.5})
	c.Assert(err, check.ErrorMatches, "(?s).*damping factor.*")
}

func (s *calculatorTestSuite) TestHolderSwapsSnapshotsAtomically(c *check.C) {
	var holder pagerank.Holder
	c.Assert(holder.Current().Len(), check.Equals, 0)

	g := memory.NewInMemoryGraph()
	c.Assert(g.UpsertEdge(1, 2), check.IsNil)

	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	snapshot, err := calc.Calculate(context.Background(), g)
	c.Assert(err, check.IsNil)

	holder.Publish(snapshot)
	c.Assert(holder.Current(), check.Equals, snapshot)
}

func (s *calculatorTestSuite) assertScores(c *check.C, spec spec) {
	c.Log(spec.description)

	g := memory.NewInMemoryGraph()
	for _, e := range spec.edges {
		c.Assert(g.UpsertEdge(e.src, e.dest), check.IsNil)
	}

	calc, err := pagerank.NewCalculator(pagerank.Config{
		MinDelta:      1e-9,
		MaxIterations: 100,
	})
	c.Assert(err, check.IsNil)

	snapshot, err := calc.Calculate(context.Background(), g)
	c.Assert(err, check.IsNil)

	var sum float64
	nodes, err := g.Nodes()
	c.Assert(err, check.IsNil)
	for _, id := range nodes {
		sum += snapshot.Score(id)
	}
	c.Assert(math.Abs(sum-1.0) < 1e-6, check.Equals, true,
		check.Commentf("expected scores to sum to 1, got %f", sum))

	for id, expected := range spec.expScores {
		got := snapshot.Score(id)
		c.Assert(math.Abs(got-expected) < 0.01, check.Equals, true,
			check.Commentf("node %d: expected score %f, got %f", id, expected, got))
	}
}
