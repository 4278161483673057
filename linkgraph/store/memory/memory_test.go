package memory

import (
	"testing"

	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
)

var _ = check.Suite(new(inMemoryGraphTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type inMemoryGraphTestSuite struct {
	g *InMemoryGraph
}

func (s *inMemoryGraphTestSuite) SetUpTest(c *check.C) {
	s.g = NewInMemoryGraph()
}

func (s *inMemoryGraphTestSuite) TestUpsertEdgeAndLookups(c *check.C) {
	c.Assert(s.g.UpsertEdge(1, 2), check.IsNil)
	c.Assert(s.g.UpsertEdge(1, 3), check.IsNil)
	c.Assert(s.g.UpsertEdge(2, 3), check.IsNil)

	out, err := s.g.Outbound(1)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.DeepEquals, []int64{2, 3})

	in, err := s.g.InboundCount(3)
	c.Assert(err, check.IsNil)
	c.Assert(in, check.Equals, int64(2))

	nodes, err := s.g.Nodes()
	c.Assert(err, check.IsNil)
	c.Assert(nodes, check.DeepEquals, []int64{1, 2, 3})
}

func (s *inMemoryGraphTestSuite) TestUpsertEdgeIgnoresSelfLinks(c *check.C) {
	c.Assert(s.g.UpsertEdge(7, 7), check.IsNil)

	out, err := s.g.Outbound(7)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.IsNil)
}

func (s *inMemoryGraphTestSuite) TestUpsertEdgeRejectsInvalidIDs(c *check.C) {
	err := s.g.UpsertEdge(0, 3)
	c.Assert(err, check.ErrorMatches, ".*invalid document ID.*")
}

func (s *inMemoryGraphTestSuite) TestUpsertEdgeIsIdempotentForInboundCounts(c *check.C) {
	c.Assert(s.g.UpsertEdge(1, 2), check.IsNil)
	c.Assert(s.g.UpsertEdge(1, 2), check.IsNil)

	in, err := s.g.InboundCount(2)
	c.Assert(err, check.IsNil)
	c.Assert(in, check.Equals, int64(1))
}

func (s *inMemoryGraphTestSuite) TestReplaceOutboundDropsStaleEdges(c *check.C) {
	c.Assert(s.g.UpsertEdge(1, 2), check.IsNil)
	c.Assert(s.g.UpsertEdge(1, 3), check.IsNil)

	c.Assert(s.g.ReplaceOutbound(1, []int64{3, 4}), check.IsNil)

	out, err := s.g.Outbound(1)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.DeepEquals, []int64{3, 4})

	in, err := s.g.InboundCount(2)
	c.Assert(err, check.IsNil)
	c.Assert(in, check.Equals, int64(0))
}

func (s *inMemoryGraphTestSuite) TestEdgeIteration(c *check.C) {
	c.Assert(s.g.UpsertEdge(1, 2), check.IsNil)
	c.Assert(s.g.UpsertEdge(2, 1), check.IsNil)

	it, err := s.g.Edges()
	c.Assert(err, check.IsNil)
	defer func() { c.Assert(it.Close(), check.IsNil) }()

	var edges []graph.Edge
	for it.Next() {
		edges = append(edges, it.Edge())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(len(edges), check.Equals, 2)
	c.Assert(edges[0].From, check.Equals, int64(1))
	c.Assert(edges[1].From, check.Equals, int64(2))
}
