package crawler

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/temoto/robotstxt"

	"github.com/sokmotor/sokmotor/pipeline"
)

// Static and compile-time check to ensure robotsGate implements the
// pipeline.Processor interface.
var _ pipeline.Processor = (*robotsGate)(nil)

// robotsGate enforces robots.txt compliance as the first content stage.
// Robots files are fetched once per domain and cached for a configurable
// TTL; a disallowed URL terminates the entry with OutcomeDisallowed.
type robotsGate struct {
	urlGetter URLGetter
	clock     clock.Clock
	userAgent string
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]*robotsCacheEntry
}

type robotsCacheEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func newRobotsGate(urlGetter URLGetter, clk clock.Clock, userAgent string, ttl time.Duration) *robotsGate {
	return &robotsGate{
		urlGetter: urlGetter,
		clock:     clk,
		userAgent: userAgent,
		ttl:       ttl,
		cache:     make(map[string]*robotsCacheEntry),
	}
}

// Process checks the payload URL against the domain's robots rules. Robots
// lookups that fail with a transport error fall open: the page itself will
// be classified by the fetch stage.
func (g *robotsGate) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	parsed, err := url.Parse(cp.URL)
	if err != nil {
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = fmt.Sprintf("unparseable url: %v", err)

		return cp, nil
	}

	data := g.robotsFor(parsed.Scheme, parsed.Host)
	if data != nil && !data.TestAgent(parsed.RequestURI(), g.userAgent) {
		cp.Outcome = OutcomeDisallowed
		cp.Reason = "blocked by robots.txt"
	}

	return cp, nil
}

// robotsFor returns the cached robots rules for a host, fetching them if
// the cache entry is missing or expired. A nil return means no usable rules
// were obtained and the gate falls open.
func (g *robotsGate) robotsFor(scheme, host string) *robotstxt.RobotsData {
	now := g.clock.Now()

	g.mu.Lock()
	entry, cached := g.cache[host]
	g.mu.Unlock()

	if cached && now.Before(entry.expiresAt) {
		return entry.data
	}

	data := g.fetchRobots(scheme, host)

	g.mu.Lock()
	g.cache[host] = &robotsCacheEntry{data: data, expiresAt: now.Add(g.ttl)}
	g.mu.Unlock()

	return data
}

func (g *robotsGate) fetchRobots(scheme, host string) *robotstxt.RobotsData {
	resp, err := g.urlGetter.Get(scheme + "://" + host + "/robots.txt")
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	// A missing robots.txt (4xx) parses as allow-all; 5xx parses as
	// disallow-all until the cache entry expires.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}

	return data
}
