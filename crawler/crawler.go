/*
	crawler package implements the fetch half of the search engine as a
	multi-stage pipeline over frontier entries:

		1. robots gate  — per-domain robots.txt compliance (cached).
		2. fetcher      — HTTP GET with timeout, size cap and content-type
		                  checks; failures classified into outcomes.
		3. extractor    — title / description / visible text / language /
		                  link extraction plus content-hash change detection.
		4. feeder       — discovered internal links re-enter the frontier.
		5. graph update — outbound follow links replace the page's edge set.
		6. indexer      — the document lands in the inverted index.

	Every entry that enters the pipeline reaches the sink, whatever happens
	to it on the way; the sink reports the outcome back to the frontier so
	retries and politeness stay centralized there.
*/

package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/pipeline"
)

const defaultUserAgent = "sokmotorbot/1.0"

// Config encapsulates the settings for creating a new Crawler.
type Config struct {
	// Frontier supplies the URLs to fetch and receives results and
	// discovered links.
	Frontier MiniFrontier

	// Graph receives the outbound edge set of each crawled page.
	Graph MiniGraph

	// Indexer receives extracted documents and answers content-hash
	// lookups.
	Indexer MiniIndexer

	// URLGetter performs the HTTP requests. Its client should carry the
	// fetch timeout. A nil value selects an http.Client with a 10s
	// timeout.
	URLGetter URLGetter

	// NetDetector guards against fetching private network addresses.
	NetDetector PrivateNetworkDetector

	// Clock drives robots cache expiry and fetch timestamps. A nil value
	// selects the wall clock.
	Clock clock.Clock

	// Logger receives per-entry diagnostics. A nil value discards them.
	Logger *logrus.Entry

	// FetchWorkers is the number of concurrent fetch workers. Defaults
	// to 4.
	FetchWorkers int

	// MaxBodyBytes caps the page body size; the read is aborted
	// mid-transfer when exceeded. Defaults to 5MB.
	MaxBodyBytes int64

	// RobotsTTL is how long per-domain robots rules are cached. Defaults
	// to 1h.
	RobotsTTL time.Duration

	// UserAgent is matched against robots.txt groups.
	UserAgent string
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Frontier == nil {
		err = multierror.Append(err, fmt.Errorf("frontier has not been provided"))
	}

	if cfg.Graph == nil {
		err = multierror.Append(err, fmt.Errorf("link graph has not been provided"))
	}

	if cfg.Indexer == nil {
		err = multierror.Append(err, fmt.Errorf("indexer has not been provided"))
	}

	if cfg.NetDetector == nil {
		err = multierror.Append(err, fmt.Errorf("private network detector has not been provided"))
	}

	if cfg.URLGetter == nil {
		cfg.URLGetter = &http.Client{Timeout: 10 * time.Second}
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(discard)
	}

	if cfg.FetchWorkers < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for fetch workers, must be >= 0",
		))
	} else if cfg.FetchWorkers == 0 {
		cfg.FetchWorkers = 4
	}

	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 5 << 20
	}

	if cfg.RobotsTTL == 0 {
		cfg.RobotsTTL = time.Hour
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return err
}

// Crawler drains the frontier through the crawl pipeline.
type Crawler struct {
	cfg Config

	robots    *robotsGate
	fetch     *fetcher
	extract   *extractor
	feeder    *frontierFeeder
	graphUpd  *graphUpdater
	indexStep *docIndexer

	p *pipeline.Pipeline
}

// New creates a Crawler instance using the provided config options.
func New(cfg Config) (*Crawler, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("crawler config validation failed: %w", err)
	}

	c := &Crawler{
		cfg:       cfg,
		robots:    newRobotsGate(cfg.URLGetter, cfg.Clock, cfg.UserAgent, cfg.RobotsTTL),
		fetch:     newFetcher(cfg.URLGetter, cfg.NetDetector, cfg.Clock, cfg.MaxBodyBytes),
		extract:   newExtractor(cfg.Indexer),
		feeder:    newFrontierFeeder(cfg.Frontier),
		graphUpd:  newGraphUpdater(cfg.Graph, cfg.Indexer),
		indexStep: newDocIndexer(cfg.Indexer),
	}

	c.p = pipeline.New(
		pipeline.NewWorkerPool(c.robots, cfg.FetchWorkers),
		pipeline.NewWorkerPool(c.fetch, cfg.FetchWorkers),
		pipeline.NewSerial(c.extract),
		pipeline.NewSerial(c.feeder),
		pipeline.NewSerial(c.graphUpd),
		pipeline.NewSerial(c.indexStep),
	)

	return c, nil
}

// Crawl runs one pass: it drains the frontier until it reports empty, the
// context is cancelled or a pipeline component fails. It returns the pass
// counters. Entries whose outcome never reached the sink (a component
// failure or cancellation aborts the pipeline mid-flight) are handed back
// to the frontier as retryable, so an aborted pass cannot strand them.
func (c *Crawler) Crawl(ctx context.Context) (Stats, error) {
	src := newFrontierSource(c.cfg.Frontier, c.cfg.Clock)
	sink := newResultSink(c.cfg.Frontier, c.cfg.Logger)

	err := c.p.Execute(ctx, src, sink)

	if reclaimed := c.cfg.Frontier.ReclaimInFlight(); reclaimed > 0 {
		c.cfg.Logger.WithField("reclaimed", reclaimed).
			Warn("re-queued entries abandoned by an aborted crawl pass")
	}

	return sink.snapshot(), err
}

// ProcessNext pulls a single entry from the frontier and pushes it through
// every stage synchronously, reporting the outcome back to the frontier.
// Frontier errors (empty, cooldown) pass through unchanged so the caller
// can drive its own loop.
func (c *Crawler) ProcessNext(ctx context.Context) (*FetchResult, error) {
	entry, err := c.cfg.Frontier.NextURL()
	if err != nil {
		return nil, err
	}

	payload := payloadPool.Get().(*crawlPayload)
	defer payload.MarkAsProcessed()

	payload.URL = entry.URL
	payload.Domain = entry.Domain
	payload.Priority = entry.Priority
	payload.Outcome = OutcomePending

	stages := []pipeline.Processor{
		c.robots, c.fetch, c.extract, c.feeder, c.graphUpd, c.indexStep,
	}
	var current pipeline.Payload = payload
	for _, stage := range stages {
		if current, err = stage.Process(ctx, current); err != nil {
			markErr := c.cfg.Frontier.MarkResult(
				entry.URL, frontier.OutcomeFailedRetryable, err.Error(),
			)
			if markErr != nil {
				err = multierror.Append(err, markErr)
			}

			return nil, err
		}
	}

	cp := current.(*crawlPayload)
	outcome, reason := frontierOutcome(cp)
	if err := c.cfg.Frontier.MarkResult(cp.URL, outcome, reason); err != nil {
		return nil, err
	}

	return &FetchResult{
		URL:           cp.URL,
		Outcome:       cp.Outcome,
		Reason:        cp.Reason,
		StatusCode:    cp.StatusCode,
		Title:         cp.Title,
		Description:   cp.Description,
		TextContent:   cp.TextContent,
		Language:      cp.Language,
		ContentHash:   cp.ContentHash,
		InternalLinks: append([]string(nil), cp.InternalLinks...),
		ExternalLinks: append([]string(nil), cp.ExternalLinks...),
	}, nil
}

// FetchOne pushes a single frontier entry through the content stages
// synchronously and reports the outcome without consulting or updating the
// frontier. It exists for diagnostics and tests of the fetch path.
func (c *Crawler) FetchOne(ctx context.Context, rawURL string) (*FetchResult, error) {
	payload := payloadPool.Get().(*crawlPayload)
	defer payload.MarkAsProcessed()

	normalized, domain, err := frontier.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	payload.URL = normalized
	payload.Domain = domain
	payload.Priority = 1
	payload.Outcome = OutcomePending

	stages := []pipeline.Processor{c.robots, c.fetch, c.extract}
	var current pipeline.Payload = payload
	for _, stage := range stages {
		current, err = stage.Process(ctx, current)
		if err != nil {
			return nil, err
		}
	}

	cp := current.(*crawlPayload)
	if !cp.Outcome.terminal() {
		cp.Outcome = OutcomeSucceeded
	}

	return &FetchResult{
		URL:           cp.URL,
		Outcome:       cp.Outcome,
		Reason:        cp.Reason,
		StatusCode:    cp.StatusCode,
		Title:         cp.Title,
		Description:   cp.Description,
		TextContent:   cp.TextContent,
		Language:      cp.Language,
		ContentHash:   cp.ContentHash,
		InternalLinks: append([]string(nil), cp.InternalLinks...),
		ExternalLinks: append([]string(nil), cp.ExternalLinks...),
	}, nil
}
