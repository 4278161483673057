package crawl

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/crawler"
	"github.com/sokmotor/sokmotor/frontier"
)

// FrontierAPI is the slice of the frontier API the service needs: the
// crawler-facing methods, the dedup-bypassing refresh used to re-crawl
// stale pages and the pass-level counters it logs.
type FrontierAPI interface {
	crawler.MiniFrontier

	// RefreshURL re-enqueues an already-visited URL for a fresh fetch.
	RefreshURL(rawURL string, priority int) error

	// Stats returns the frontier counters for pass reporting.
	Stats() frontier.Stats
}

// IndexerAPI is the slice of the index API the service needs: the
// crawler-facing methods plus the stale-document listing that drives
// periodic re-crawls.
type IndexerAPI interface {
	crawler.MiniIndexer

	// StaleURLs lists the URLs of documents last crawled before the cutoff.
	StaleURLs(olderThan time.Time) []string
}

// Config defines the settings for the crawl service.
type Config struct {
	// Frontier supplies URLs for each pass and receives outcomes.
	Frontier FrontierAPI

	// Graph receives the outbound edge set of each crawled page.
	Graph crawler.MiniGraph

	// Indexer receives the extracted documents and reports stale ones.
	Indexer IndexerAPI

	// URLGetter performs the HTTP requests. A nil value selects the
	// crawler default.
	URLGetter crawler.URLGetter

	// NetDetector guards against fetching private network addresses.
	NetDetector crawler.PrivateNetworkDetector

	// Clock drives the pass schedule. A nil value selects the wall clock.
	Clock clock.Clock

	// FetchWorkers is the number of concurrent fetch workers per pass.
	FetchWorkers int

	// CrawlInterval is the pause between consecutive crawl passes.
	CrawlInterval time.Duration

	// RefreshInterval is the age at which an indexed document is considered
	// stale and re-enqueued for a change-detection fetch at the start of a
	// pass. Defaults to 24h; a negative value disables re-crawling.
	RefreshInterval time.Duration

	// UserAgent identifies the bot to robots.txt and fetched servers.
	UserAgent string

	// Logger receives pass-level diagnostics. A nil value discards them.
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

	if cfg.Indexer == nil {
		err = multierror.Append(err, fmt.Errorf("indexer has not been provided"))
	}

	if cfg.NetDetector == nil {
		err = multierror.Append(err, fmt.Errorf("private network detector has not been provided"))
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.CrawlInterval == 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for crawl interval"))
	}

	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 24 * time.Hour
	}

	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(discard)
	}

	return err
}
