package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/pipeline"
	"github.com/sokmotor/sokmotor/textindex"
)

// Static and compile-time checks to ensure all updater stages implement the
// pipeline.Processor interface.
var (
	_ pipeline.Processor = (*frontierFeeder)(nil)
	_ pipeline.Processor = (*graphUpdater)(nil)
	_ pipeline.Processor = (*docIndexer)(nil)
)

// frontierFeeder feeds the internal links discovered on a page back into
// the frontier at one priority step below the page they were found on.
// External links are left to the graph updater: they contribute to
// authority scoring but are not auto-crawled.
type frontierFeeder struct {
	frontier MiniFrontier
}

func newFrontierFeeder(f MiniFrontier) *frontierFeeder {
	return &frontierFeeder{frontier: f}
}

func (u *frontierFeeder) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	priority := cp.Priority - 1
	if priority < 1 {
		priority = 1
	}

	for _, link := range cp.InternalLinks {
		err := u.frontier.AddURL(link, priority)
		if err != nil && !errors.Is(err, frontier.ErrDuplicate) &&
			!errors.Is(err, frontier.ErrInvalidURL) {
			return nil, fmt.Errorf("frontier feeder: %w", err)
		}
	}

	return cp, nil
}

// graphUpdater replaces the outbound edge set of the crawled page with the
// follow links discovered on it. Nofollow links never enter the graph, so
// they cannot influence PageRank.
type graphUpdater struct {
	graph   MiniGraph
	indexer MiniIndexer
}

func newGraphUpdater(graph MiniGraph, indexer MiniIndexer) *graphUpdater {
	return &graphUpdater{graph: graph, indexer: indexer}
}

func (u *graphUpdater) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	from := u.indexer.RegisterURL(cp.URL)

	targets := make([]int64, 0, len(cp.FollowLinks))
	for _, link := range cp.FollowLinks {
		targets = append(targets, u.indexer.RegisterURL(link))
	}

	if err := u.graph.ReplaceOutbound(from, targets); err != nil {
		return nil, fmt.Errorf("graph updater: %w", err)
	}

	return cp, nil
}

// docIndexer writes the extracted document into the inverted index and
// promotes the entry to OutcomeSucceeded. Unchanged entries pass through
// without touching the index.
type docIndexer struct {
	indexer MiniIndexer
}

func newDocIndexer(indexer MiniIndexer) *docIndexer {
	return &docIndexer{indexer: indexer}
}

func (u *docIndexer) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	_, err := u.indexer.IndexDocument(&textindex.Document{
		URL:         cp.URL,
		Title:       cp.Title,
		Description: cp.Description,
		Content:     cp.TextContent,
		Domain:      cp.Domain,
		ContentHash: cp.ContentHash,
		CrawledAt:   cp.FetchedAt,
		Language:    cp.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("doc indexer: %w", err)
	}

	cp.Outcome = OutcomeSucceeded

	return cp, nil
}
