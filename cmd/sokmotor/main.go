package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/crawler/privnet"
	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/frontier/boltvisited"
	"github.com/sokmotor/sokmotor/linkgraph/graph"
	"github.com/sokmotor/sokmotor/linkgraph/store/memory"
	"github.com/sokmotor/sokmotor/linkgraph/store/pg"
	"github.com/sokmotor/sokmotor/pagerank"
	"github.com/sokmotor/sokmotor/service"
	"github.com/sokmotor/sokmotor/service/crawl"
	"github.com/sokmotor/sokmotor/service/rankupdate"
	"github.com/sokmotor/sokmotor/textindex"
)

const appName = "sokmotor"

func main() {
	configPath := flag.String("config", "", "Path to an optional config file")
	flag.Parse()

	host, _ := os.Hostname()
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"host": host,
	})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.WithField("err", err).Error("shutting down due to a configuration error")
		return
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		rootLogger.SetLevel(level)
	}

	svcGroup, cleanup, err := configureServices(cfg, logger)
	if err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")
		return
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case s := <-signalChan:
			logger.WithField("signal", s.String()).Info("shutting down due to os signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := svcGroup.Run(ctx); err != nil {
		logger.WithField("err", err).Error("shutting down due to an error")
		return
	}

	logger.Info("shutdown complete")
}

func configureServices(cfg appConfig, logger *logrus.Entry) (service.Group, func(), error) {
	cleanup := func() {}

	linkGraph, err := getLinkGraph(cfg.Graph.URI, logger)
	if err != nil {
		return nil, cleanup, err
	}

	frontierCfg := frontier.Config{
		PolitenessDelay: cfg.politenessDelay(),
		MaxAttempts:     cfg.Frontier.MaxAttempts,
	}

	if cfg.Frontier.VisitedPath != "" {
		visited, err := boltvisited.Open(cfg.Frontier.VisitedPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("unable to open visited store: %w", err)
		}

		logger.WithField("path", cfg.Frontier.VisitedPath).
			Info("using durable visited store")
		frontierCfg.Visited = visited
		cleanup = func() { _ = visited.Close() }
	}

	fr, err := frontier.New(frontierCfg)
	if err != nil {
		return nil, cleanup, err
	}

	for _, seed := range cfg.Crawler.SeedURLs {
		err := fr.AddURL(seed, 10)
		if errors.Is(err, frontier.ErrDuplicate) {
			// Known from the durable visited set. Re-enqueue it anyway so
			// a restarted process still has work to start from.
			err = fr.RefreshURL(seed, 10)
			if errors.Is(err, frontier.ErrDuplicate) {
				err = nil
			}
		}
		if err != nil {
			return nil, cleanup, fmt.Errorf("seed %q: %w", seed, err)
		}
	}

	detector, err := privnet.NewDetector()
	if err != nil {
		return nil, cleanup, err
	}

	idx := textindex.New()
	scores := new(pagerank.Holder)

	var svcGroup service.Group

	crawlSvc, err := crawl.New(crawl.Config{
		Frontier:        fr,
		Graph:           linkGraph,
		Indexer:         idx,
		NetDetector:     detector,
		FetchWorkers:    cfg.Crawler.FetchWorkers,
		CrawlInterval:   cfg.crawlInterval(),
		RefreshInterval: cfg.refreshInterval(),
		UserAgent:       cfg.Crawler.UserAgent,
		Logger:          logger.WithField("service", "crawl"),
	})
	if err != nil {
		return nil, cleanup, err
	}
	svcGroup = append(svcGroup, crawlSvc)

	rankSvc, err := rankupdate.New(rankupdate.Config{
		Graph:          linkGraph,
		Scores:         scores,
		UpdateInterval: cfg.pageRankInterval(),
		Logger:         logger.WithField("service", "rank-update"),
	})
	if err != nil {
		return nil, cleanup, err
	}
	svcGroup = append(svcGroup, rankSvc)

	return svcGroup, cleanup, nil
}

func getLinkGraph(graphURI string, logger *logrus.Entry) (graph.Graph, error) {
	parsed, err := url.Parse(graphURI)
	if err != nil {
		return nil, fmt.Errorf("unable to parse link graph URI: %w", err)
	}

	switch parsed.Scheme {
	case "in-memory":
		logger.Info("using in-memory link graph store")

		return memory.NewInMemoryGraph(), nil
	case "postgres", "postgresql":
		logger.Info("using postgres link graph store")

		return pg.NewPostgresGraph(graphURI)
	default:
		return nil, fmt.Errorf("unsupported link graph URI scheme: %q", parsed.Scheme)
	}
}
