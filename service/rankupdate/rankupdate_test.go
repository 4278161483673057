package rankupdate

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/linkgraph/store/memory"
	"github.com/sokmotor/sokmotor/pagerank"
)

var _ = check.Suite(new(configTestSuite))
var _ = check.Suite(new(rankUpdateServiceTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type configTestSuite struct{}

func (s *configTestSuite) TestConfigValidation(c *check.C) {
	original := Config{
		Graph:          memory.NewInMemoryGraph(),
		Scores:         new(pagerank.Holder),
		UpdateInterval: time.Minute,
	}

	cfg := original
	c.Assert(cfg.validate(), check.IsNil)
	c.Assert(cfg.Clock, check.NotNil)
	c.Assert(cfg.Logger, check.NotNil)
	c.Assert(cfg.MinChangedDocs, check.Equals, 1)

	cfg = original
	cfg.Graph = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*link graph has not been provided.*")

	cfg = original
	cfg.Scores = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*score holder has not been provided.*")

	cfg = original
	cfg.UpdateInterval = 0
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*invalid value for update interval.*")
}

type rankUpdateServiceTestSuite struct{}

func (s *rankUpdateServiceTestSuite) TestFullRun(c *check.C) {
	g := memory.NewInMemoryGraph()
	c.Assert(g.UpsertEdge(1, 2), check.IsNil)
	c.Assert(g.UpsertEdge(2, 1), check.IsNil)

	scores := new(pagerank.Holder)
	clk := testclock.NewClock(time.Now())

	svc, err := New(Config{
		Graph:          g,
		Scores:         scores,
		Clock:          clk,
		UpdateInterval: time.Minute,
	})
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		// Wait until the main loop blocks on the timer, advance past the
		// interval to trigger a pass, then cancel once the loop is back
		// on the timer.
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), check.IsNil)
		c.Assert(clk.WaitAdvance(time.Millisecond, 10*time.Second, 1), check.IsNil)
		cancel()
	}()

	c.Assert(svc.Run(ctx), check.IsNil)

	snapshot := scores.Current()
	c.Assert(snapshot.Len(), check.Equals, 2)

	// A symmetric two-node graph splits the score mass evenly.
	c.Assert(snapshot.Score(1) > 0.49 && snapshot.Score(1) < 0.51, check.Equals, true,
		check.Commentf("got score %f", snapshot.Score(1)))
	c.Assert(snapshot.Score(2) > 0.49 && snapshot.Score(2) < 0.51, check.Equals, true,
		check.Commentf("got score %f", snapshot.Score(2)))
}

func (s *rankUpdateServiceTestSuite) TestUnchangedGraphSkipsPass(c *check.C) {
	g := memory.NewInMemoryGraph()
	c.Assert(g.UpsertEdge(1, 2), check.IsNil)

	scores := new(pagerank.Holder)
	clk := testclock.NewClock(time.Now())

	svc, err := New(Config{
		Graph:          g,
		Scores:         scores,
		Clock:          clk,
		UpdateInterval: time.Minute,
	})
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		// First pass computes and publishes; the second finds the graph
		// unchanged and must not publish a new snapshot.
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), check.IsNil)
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), check.IsNil)
		c.Assert(clk.WaitAdvance(time.Millisecond, 10*time.Second, 1), check.IsNil)
		cancel()
	}()

	c.Assert(svc.Run(ctx), check.IsNil)

	first := scores.Current()
	c.Assert(first.Len(), check.Equals, 2)

	// The published snapshot is still the one from the first pass.
	c.Assert(scores.Current(), check.Equals, first)
}
