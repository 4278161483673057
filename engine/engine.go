/*
	engine package is the facade over the whole search core. It wires the
	frontier, crawler, index, link graph, ranker and search pipeline
	together behind three operation groups: crawl control (AddSeedURLs,
	FetchNext, Stop), indexing (IndexDocument, ValidateIntegrity) and
	querying (Search).

	The engine does not own a scheduling loop: callers drive the crawl by
	invoking FetchNext repeatedly, or run the periodic services from the
	service package instead.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/crawler"
	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/linkgraph/graph"
	"github.com/sokmotor/sokmotor/pagerank"
	"github.com/sokmotor/sokmotor/rank"
	"github.com/sokmotor/sokmotor/search"
	"github.com/sokmotor/sokmotor/textindex"
)

// ErrStopped is returned by FetchNext after Stop has been called.
var ErrStopped = errors.New("engine has been stopped")

// seedPriority is the frontier priority assigned to seed URLs. Seeds jump
// the queue ahead of discovered links.
const seedPriority = 10

// Config encapsulates the settings for creating a new Engine.
type Config struct {
	// Frontier is the crawl queue. Required.
	Frontier *frontier.Frontier

	// Graph is the link graph store. Required.
	Graph graph.Graph

	// Index is the inverted index and document store. Required.
	Index *textindex.Index

	// Scores holds the published PageRank snapshots. A nil value selects a
	// fresh holder serving an empty snapshot.
	Scores *pagerank.Holder

	// Weights selects the ranking profile. A zero value selects the
	// simplified profile.
	Weights rank.Weights

	// URLGetter performs the HTTP requests. A nil value selects the
	// crawler default.
	URLGetter crawler.URLGetter

	// NetDetector guards against fetching private network addresses.
	NetDetector crawler.PrivateNetworkDetector

	// Clock drives politeness, recency scoring and robots cache expiry. A
	// nil value selects the wall clock.
	Clock clock.Clock

	// Logger receives diagnostics. A nil value discards them.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Frontier == nil {
		err = multierror.Append(err, fmt.Errorf("frontier has not been provided"))
	}

	if cfg.Graph == nil {
		err = multierror.Append(err, fmt.Errorf("link graph has not been provided"))
	}

	if cfg.Index == nil {
		err = multierror.Append(err, fmt.Errorf("index has not been provided"))
	}

	if cfg.Scores == nil {
		cfg.Scores = new(pagerank.Holder)
	}

	if cfg.NetDetector == nil {
		err = multierror.Append(err, fmt.Errorf("private network detector has not been provided"))
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(discard)
	}

	return err
}

// Engine exposes the search core to external callers.
type Engine struct {
	cfg Config

	crawler  *crawler.Crawler
	searcher *search.Searcher

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates an Engine instance using the provided config options.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("engine config validation failed: %w", err)
	}

	c, err := crawler.New(crawler.Config{
		Frontier:    cfg.Frontier,
		Graph:       cfg.Graph,
		Indexer:     cfg.Index,
		URLGetter:   cfg.URLGetter,
		NetDetector: cfg.NetDetector,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine config validation failed: %w", err)
	}

	ranker, err := rank.NewRanker(rank.Config{
		Index:    cfg.Index,
		Graph:    cfg.Graph,
		PageRank: cfg.Scores,
		Clock:    cfg.Clock,
		Weights:  cfg.Weights,
	})
	if err != nil {
		return nil, fmt.Errorf("engine config validation failed: %w", err)
	}

	searcher, err := search.NewSearcher(search.Config{
		Index:  cfg.Index,
		Ranker: ranker,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine config validation failed: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		crawler:  c,
		searcher: searcher,
		stopped:  make(chan struct{}),
	}, nil
}

// AddSeedURLs enqueues the given URLs at the highest frontier priority.
// URLs whose normalized form has already been seen are silently skipped;
// invalid URLs are reported, each wrapped with the offending input.
func (e *Engine) AddSeedURLs(urls []string) error {
	var err error
	for _, rawURL := range urls {
		addErr := e.cfg.Frontier.AddURL(rawURL, seedPriority)
		if addErr != nil && !errors.Is(addErr, frontier.ErrDuplicate) {
			err = multierror.Append(err, fmt.Errorf("seed %q: %w", rawURL, addErr))
		}
	}

	return err
}

// FetchNext processes a single frontier entry end to end: fetch, extract,
// feed discovered links, update the link graph and index the document.
// It returns frontier.ErrEmpty when the frontier is drained, a
// frontier.UnavailableError while every domain is in cooldown and
// ErrStopped after Stop has been called. In-flight work is never
// interrupted by Stop; the check happens before new work starts.
func (e *Engine) FetchNext(ctx context.Context) (*crawler.FetchResult, error) {
	select {
	case <-e.stopped:
		return nil, ErrStopped
	default:
	}

	return e.crawler.ProcessNext(ctx)
}

// Stop signals the engine to stop handing out new work. It is idempotent
// and safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopped) })
}

// IndexDocument adds or refreshes a document in the inverted index.
func (e *Engine) IndexDocument(doc *textindex.Document) (*textindex.IndexStats, error) {
	return e.cfg.Index.IndexDocument(doc)
}

// ValidateIntegrity checks the index invariants and reports every
// violation found.
func (e *Engine) ValidateIntegrity() *textindex.Validation {
	return e.cfg.Index.ValidateIntegrity()
}

// SearchResponse is the transport-neutral reply to a search call. Exactly
// one of Results, Info or Error is populated: Results carries matches,
// Info describes a query that produced nothing actionable and Error means
// the engine itself is in a bad state.
type SearchResponse struct {
	Results *search.ResultSet
	Info    string
	Error   string
}

// Search runs the query pipeline and folds its three-valued outcome into a
// SearchResponse.
func (e *Engine) Search(text string, offset, pageSize int, filters search.Filters) *SearchResponse {
	rs, err := e.searcher.Search(text, offset, pageSize, filters)
	if err != nil {
		return &SearchResponse{Error: err.Error()}
	}

	if rs.Notice != "" {
		return &SearchResponse{Info: rs.Notice}
	}

	return &SearchResponse{Results: rs}
}
