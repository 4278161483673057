package frontier_test

import (
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/frontier"
)

var _ = check.Suite(new(frontierTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type frontierTestSuite struct {
	clk *testclock.Clock
}

func (s *frontierTestSuite) SetUpTest(c *check.C) {
	s.clk = testclock.NewClock(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
}

func (s *frontierTestSuite) newFrontier(c *check.C, cfg frontier.Config) *frontier.Frontier {
	if cfg.Clock == nil {
		cfg.Clock = s.clk
	}

	f, err := frontier.New(cfg)
	c.Assert(err, check.IsNil)

	return f
}

func (s *frontierTestSuite) TestNormalizeURL(c *check.C) {
	specs := []struct {
		in, out string
	}{
		{"HTTPS://Example.SE:443/Sida?q=1#avsnitt", "https://example.se/Sida?q=1"},
		{"http://example.se:80", "http://example.se/"},
		{"http://example.se:8080/a", "http://example.se:8080/a"},
	}

	for _, spec := range specs {
		normalized, domain, err := frontier.NormalizeURL(spec.in)
		c.Assert(err, check.IsNil)
		c.Assert(normalized, check.Equals, spec.out)
		c.Assert(domain, check.Equals, "example.se")
	}

	_, _, err := frontier.NormalizeURL("ftp://example.se/fil")
	c.Assert(errors.Is(err, frontier.ErrInvalidURL), check.Equals, true)

	_, _, err = frontier.NormalizeURL("/relativ/sida")
	c.Assert(errors.Is(err, frontier.ErrInvalidURL), check.Equals, true)
}

func (s *frontierTestSuite) TestDuplicateDetection(c *check.C) {
	f := s.newFrontier(c, frontier.Config{})

	c.Assert(f.AddURL("https://example.se/sida", 5), check.IsNil)

	// Same URL modulo case, default port and fragment.
	err := f.AddURL("HTTPS://EXAMPLE.SE:443/sida#top", 5)
	c.Assert(errors.Is(err, frontier.ErrDuplicate), check.Equals, true)

	c.Assert(f.Stats().Queued, check.Equals, 1)
}

func (s *frontierTestSuite) TestNextURLPrefersHigherPriority(c *check.C) {
	f := s.newFrontier(c, frontier.Config{})

	c.Assert(f.AddURL("https://a.se/low", 2), check.IsNil)
	c.Assert(f.AddURL("https://b.se/high", 9), check.IsNil)
	c.Assert(f.AddURL("https://c.se/mid", 5), check.IsNil)

	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(entry.URL, check.Equals, "https://b.se/high")
	c.Assert(entry.Status, check.Equals, frontier.StatusFetching)
}

func (s *frontierTestSuite) TestPolitenessDelayPerDomain(c *check.C) {
	f := s.newFrontier(c, frontier.Config{PolitenessDelay: time.Second})

	c.Assert(f.AddURL("https://a.se/1", 5), check.IsNil)
	c.Assert(f.AddURL("https://a.se/2", 5), check.IsNil)

	first, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(f.MarkResult(first.URL, frontier.OutcomeSucceeded, ""), check.IsNil)

	// The second entry for the same domain must wait out the delay.
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrUnavailable), check.Equals, true)

	var unavailable *frontier.UnavailableError
	c.Assert(errors.As(err, &unavailable), check.Equals, true)
	c.Assert(unavailable.RetryAt.After(s.clk.Now()), check.Equals, true)

	s.clk.Advance(time.Second)

	second, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(second.URL, check.Equals, "https://a.se/2")
}

func (s *frontierTestSuite) TestCooldownDoesNotBlockOtherDomains(c *check.C) {
	f := s.newFrontier(c, frontier.Config{PolitenessDelay: time.Second})

	c.Assert(f.AddURL("https://a.se/1", 5), check.IsNil)
	c.Assert(f.AddURL("https://a.se/2", 9), check.IsNil)
	c.Assert(f.AddURL("https://b.se/1", 2), check.IsNil)

	first, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(first.Domain, check.Equals, "a.se")

	// a.se is cooling down, so the lower-priority b.se entry goes next.
	second, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(second.Domain, check.Equals, "b.se")
}

func (s *frontierTestSuite) TestEmptyVersusUnavailable(c *check.C) {
	f := s.newFrontier(c, frontier.Config{})

	_, err := f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrEmpty), check.Equals, true)

	c.Assert(f.AddURL("https://a.se/1", 5), check.IsNil)
	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)

	// Nothing queued but the fetch is still in flight; the frontier is
	// not drained yet.
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrUnavailable), check.Equals, true)

	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeSucceeded, ""), check.IsNil)
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrEmpty), check.Equals, true)
}

func (s *frontierTestSuite) TestRetryableFailureBacksOffExponentially(c *check.C) {
	f := s.newFrontier(c, frontier.Config{
		PolitenessDelay: time.Millisecond,
		MaxAttempts:     3,
		BaseBackoff:     time.Second,
	})

	c.Assert(f.AddURL("https://a.se/flaky", 5), check.IsNil)

	// First attempt fails; backoff 1s.
	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeFailedRetryable, "timeout"), check.IsNil)

	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrUnavailable), check.Equals, true)

	s.clk.Advance(time.Second)
	entry, err = f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(entry.AttemptCount, check.Equals, 1)

	// Second attempt fails; backoff doubles to 2s.
	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeFailedRetryable, "timeout"), check.IsNil)

	s.clk.Advance(time.Second)
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrUnavailable), check.Equals, true)

	s.clk.Advance(time.Second)
	entry, err = f.NextURL()
	c.Assert(err, check.IsNil)

	// Third failure exhausts the budget; the entry is retired.
	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeFailedRetryable, "timeout"), check.IsNil)

	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrEmpty), check.Equals, true)
	c.Assert(f.Stats().FailedPermanent, check.Equals, 1)
}

func (s *frontierTestSuite) TestPermanentFailureRetiresImmediately(c *check.C) {
	f := s.newFrontier(c, frontier.Config{})

	c.Assert(f.AddURL("https://a.se/borta", 5), check.IsNil)

	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeFailedPermanent, "404"), check.IsNil)

	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrEmpty), check.Equals, true)

	stats := f.Stats()
	c.Assert(stats.FailedPermanent, check.Equals, 1)
	c.Assert(stats.InFlight, check.Equals, 0)
}

func (s *frontierTestSuite) TestReclaimInFlightRequeuesAbandonedEntries(c *check.C) {
	f := s.newFrontier(c, frontier.Config{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
	})

	c.Assert(f.AddURL("https://a.se/sida", 5), check.IsNil)

	_, err := f.NextURL()
	c.Assert(err, check.IsNil)

	// The fetch never reports back (aborted pass). Without reclaiming, the
	// entry would sit in flight forever and the frontier would never drain.
	c.Assert(f.ReclaimInFlight(), check.Equals, 1)

	stats := f.Stats()
	c.Assert(stats.InFlight, check.Equals, 0)
	c.Assert(stats.Queued, check.Equals, 1)

	// The lost attempt counts against the retry budget and backs off.
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrUnavailable), check.Equals, true)

	s.clk.Advance(time.Second)
	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(entry.URL, check.Equals, "https://a.se/sida")
	c.Assert(entry.AttemptCount, check.Equals, 1)

	c.Assert(f.ReclaimInFlight(), check.Equals, 1)
	s.clk.Advance(2 * time.Second)
	_, err = f.NextURL()
	c.Assert(err, check.IsNil)

	// A third abandoned attempt exhausts the budget; the entry retires and
	// the frontier finally reports empty.
	c.Assert(f.ReclaimInFlight(), check.Equals, 1)
	_, err = f.NextURL()
	c.Assert(errors.Is(err, frontier.ErrEmpty), check.Equals, true)
	c.Assert(f.Stats().FailedPermanent, check.Equals, 1)
}

func (s *frontierTestSuite) TestRefreshURLBypassesVisitedDedup(c *check.C) {
	f := s.newFrontier(c, frontier.Config{PolitenessDelay: time.Millisecond})

	c.Assert(f.AddURL("https://a.se/sida", 5), check.IsNil)

	entry, err := f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(f.MarkResult(entry.URL, frontier.OutcomeSucceeded, ""), check.IsNil)

	// AddURL keeps rejecting the crawled URL, but a refresh re-enqueues it
	// for change detection.
	err = f.AddURL("https://a.se/sida", 5)
	c.Assert(errors.Is(err, frontier.ErrDuplicate), check.Equals, true)
	c.Assert(f.RefreshURL("https://a.se/sida", 1), check.IsNil)

	// While queued a second refresh is rejected.
	err = f.RefreshURL("https://a.se/sida", 1)
	c.Assert(errors.Is(err, frontier.ErrDuplicate), check.Equals, true)

	s.clk.Advance(time.Millisecond)
	entry, err = f.NextURL()
	c.Assert(err, check.IsNil)
	c.Assert(entry.URL, check.Equals, "https://a.se/sida")
	c.Assert(entry.AttemptCount, check.Equals, 0)

	// While in flight a refresh is rejected too.
	err = f.RefreshURL("https://a.se/sida", 1)
	c.Assert(errors.Is(err, frontier.ErrDuplicate), check.Equals, true)
}

func (s *frontierTestSuite) TestMarkResultForUnknownURL(c *check.C) {
	f := s.newFrontier(c, frontier.Config{})

	err := f.MarkResult("https://a.se/okand", frontier.OutcomeSucceeded, "")
	c.Assert(errors.Is(err, frontier.ErrNotInFlight), check.Equals, true)
}
