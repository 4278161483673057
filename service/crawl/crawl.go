// Package crawl runs the crawler as a periodic service: every interval it
// drains the frontier through one crawl pass and reports the pass counters.
package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/crawler"
	"github.com/sokmotor/sokmotor/frontier"
)

// refreshPriority ranks stale re-crawls below freshly discovered links.
const refreshPriority = 1

// Service periodically drains the frontier through the crawl pipeline. It
// satisfies the service.Service interface.
type Service struct {
	cfg     Config
	crawler *crawler.Crawler
}

// New creates a fully configured crawl service instance.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("crawl service config validation failed: %w", err)
	}

	c, err := crawler.New(crawler.Config{
		Frontier:     cfg.Frontier,
		Graph:        cfg.Graph,
		Indexer:      cfg.Indexer,
		URLGetter:    cfg.URLGetter,
		NetDetector:  cfg.NetDetector,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
		FetchWorkers: cfg.FetchWorkers,
		UserAgent:    cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("crawl service config validation failed: %w", err)
	}

	return &Service{cfg: cfg, crawler: c}, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "crawl" }

// Run executes the service and blocks until the context is cancelled or a
// pass fails.
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField(
		"crawl_interval", svc.cfg.CrawlInterval.String(),
	).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.CrawlInterval):
			if err := svc.crawlPass(ctx); err != nil {
				return err
			}
		}
	}
}

func (svc *Service) crawlPass(ctx context.Context) error {
	passID := uuid.New()
	startedAt := svc.cfg.Clock.Now()

	svc.cfg.Logger.WithField("pass", passID).Info("starting crawl pass")

	refreshed := svc.refreshStale(passID)

	stats, err := svc.crawler.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl pass %s: %w", passID, err)
	}

	frontierStats := svc.cfg.Frontier.Stats()
	svc.cfg.Logger.WithFields(logrus.Fields{
		"pass":             passID,
		"fetched":          stats.Fetched,
		"unchanged":        stats.Unchanged,
		"disallowed":       stats.Disallowed,
		"failed":           stats.Failed,
		"refreshed":        refreshed,
		"queued":           frontierStats.Queued,
		"failed_permanent": frontierStats.FailedPermanent,
		"elapsed_time":     svc.cfg.Clock.Now().Sub(startedAt).String(),
	}).Info("completed crawl pass")

	return nil
}

// refreshStale re-enqueues indexed documents whose last crawl is older than
// the refresh interval, so content changes are eventually picked up. URLs
// already queued or in flight are skipped.
func (svc *Service) refreshStale(passID uuid.UUID) int {
	if svc.cfg.RefreshInterval < 0 {
		return 0
	}

	cutoff := svc.cfg.Clock.Now().Add(-svc.cfg.RefreshInterval)

	var refreshed int
	for _, url := range svc.cfg.Indexer.StaleURLs(cutoff) {
		err := svc.cfg.Frontier.RefreshURL(url, refreshPriority)
		if err != nil {
			if !errors.Is(err, frontier.ErrDuplicate) {
				svc.cfg.Logger.WithFields(logrus.Fields{
					"pass": passID,
					"url":  url,
					"err":  err,
				}).Warn("unable to re-enqueue stale url")
			}

			continue
		}

		refreshed++
	}

	return refreshed
}
