package crawl

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/linkgraph/store/memory"
	"github.com/sokmotor/sokmotor/textindex"
)

var _ = check.Suite(new(configTestSuite))
var _ = check.Suite(new(crawlServiceTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type configTestSuite struct{}

func (s *configTestSuite) TestConfigValidation(c *check.C) {
	fr, err := frontier.New(frontier.Config{})
	c.Assert(err, check.IsNil)

	original := Config{
		Frontier:      fr,
		Graph:         memory.NewInMemoryGraph(),
		Indexer:       textindex.New(),
		NetDetector:   publicNetStub{},
		CrawlInterval: time.Minute,
	}

	cfg := original
	c.Assert(cfg.validate(), check.IsNil)
	c.Assert(cfg.Clock, check.NotNil)
	c.Assert(cfg.Logger, check.NotNil)
	c.Assert(cfg.RefreshInterval, check.Equals, 24*time.Hour)

	cfg = original
	cfg.Frontier = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*frontier has not been provided.*")

	cfg = original
	cfg.Graph = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*link graph has not been provided.*")

	cfg = original
	cfg.Indexer = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*indexer has not been provided.*")

	cfg = original
	cfg.NetDetector = nil
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*private network detector has not been provided.*")

	cfg = original
	cfg.CrawlInterval = 0
	c.Assert(cfg.validate(), check.ErrorMatches, "(?ms).*invalid value for crawl interval.*")
}

type crawlServiceTestSuite struct{}

func (s *crawlServiceTestSuite) TestPeriodicPassDrainsFrontier(c *check.C) {
	fr, err := frontier.New(frontier.Config{
		PolitenessDelay: time.Millisecond,
		BaseBackoff:     time.Millisecond,
	})
	c.Assert(err, check.IsNil)
	c.Assert(fr.AddURL("https://exempel.se/", 5), check.IsNil)

	idx := textindex.New()

	svc, err := New(Config{
		Frontier: fr,
		Graph:    memory.NewInMemoryGraph(),
		Indexer:  idx,
		URLGetter: stubGetter{
			"https://exempel.se/": `<html><head><title>Exempel</title></head>` +
				`<body>Det är en sida om katter och hundar som alla kan läsa.</body></html>`,
		},
		NetDetector:   publicNetStub{},
		CrawlInterval: 10 * time.Millisecond,
	})
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Wait for the first pass to drain the seeded URL into the index.
	deadline := time.After(5 * time.Second)
	for idx.DocCount() == 0 {
		select {
		case <-deadline:
			c.Fatal("timed out waiting for the crawl pass to index the seed URL")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	c.Assert(<-done, check.IsNil)

	c.Assert(idx.DocCount(), check.Equals, 1)
	c.Assert(fr.Stats().Succeeded, check.Equals, 1)
}

func (s *crawlServiceTestSuite) TestStalePagesAreRefreshed(c *check.C) {
	fr, err := frontier.New(frontier.Config{
		PolitenessDelay: time.Millisecond,
		BaseBackoff:     time.Millisecond,
	})
	c.Assert(err, check.IsNil)

	// An indexed page well past the refresh interval, with nothing queued:
	// only the stale-page refresh can make the service fetch anything.
	idx := textindex.New()
	_, err = idx.IndexDocument(&textindex.Document{
		URL:       "https://exempel.se/",
		Title:     "Gammal titel",
		Content:   "föråldrat innehåll",
		Domain:    "exempel.se",
		CrawledAt: time.Now().Add(-48 * time.Hour),
	})
	c.Assert(err, check.IsNil)

	svc, err := New(Config{
		Frontier: fr,
		Graph:    memory.NewInMemoryGraph(),
		Indexer:  idx,
		URLGetter: stubGetter{
			"https://exempel.se/": `<html><head><title>Ny titel</title></head>` +
				`<body>Det är en sida om katter och hundar som alla kan läsa.</body></html>`,
		},
		NetDetector:   publicNetStub{},
		CrawlInterval: 10 * time.Millisecond,
	})
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for fr.Stats().Succeeded == 0 {
		select {
		case <-deadline:
			c.Fatal("timed out waiting for the stale page to be re-crawled")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	c.Assert(<-done, check.IsNil)

	id, exists := idx.DocIDForURL("https://exempel.se/")
	c.Assert(exists, check.Equals, true)

	doc, err := idx.Document(id)
	c.Assert(err, check.IsNil)
	c.Assert(doc.Title, check.Equals, "Ny titel")
}

type stubGetter map[string]string

func (g stubGetter) Get(url string) (*http.Response, error) {
	body, exists := g[url]
	if !exists {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       http.NoBody,
			Header:     http.Header{},
		}, nil
	}

	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       newBodyReader(body),
		Header:     header,
	}, nil
}

func newBodyReader(body string) *bodyReader {
	return &bodyReader{Reader: strings.NewReader(body)}
}

type bodyReader struct {
	*strings.Reader
}

func (r *bodyReader) Close() error { return nil }

type publicNetStub struct{}

func (publicNetStub) IsPrivate(string) (bool, error) { return false, nil }
