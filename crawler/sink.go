package crawler

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/pipeline"
)

// Static and compile-time check to ensure resultSink implements the
// pipeline.Sink interface.
var _ pipeline.Sink = (*resultSink)(nil)

// Stats aggregates the per-pass crawl counters.
type Stats struct {
	Fetched    int
	Unchanged  int
	Disallowed int
	Failed     int
}

// resultSink closes the loop with the frontier: every payload that reaches
// the end of the pipeline is reported back as a fetch result, whatever its
// outcome.
type resultSink struct {
	frontier MiniFrontier
	logger   *logrus.Entry

	mu    sync.Mutex
	stats Stats
}

func newResultSink(f MiniFrontier, logger *logrus.Entry) *resultSink {
	return &resultSink{frontier: f, logger: logger}
}

func (s *resultSink) Consume(_ context.Context, payload pipeline.Payload) error {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil
	}

	outcome, reason := frontierOutcome(cp)
	if err := s.frontier.MarkResult(cp.URL, outcome, reason); err != nil {
		return fmt.Errorf("result sink: %w", err)
	}

	s.mu.Lock()
	switch cp.Outcome {
	case OutcomeSucceeded:
		s.stats.Fetched++
	case OutcomeUnchanged:
		s.stats.Unchanged++
	case OutcomeDisallowed:
		s.stats.Disallowed++
	default:
		s.stats.Failed++
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"url":     cp.URL,
		"outcome": cp.Outcome.String(),
		"reason":  cp.Reason,
	}).Debug("crawl entry finished")

	return nil
}

func (s *resultSink) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// frontierOutcome maps the crawler's outcome taxonomy onto the three
// results the frontier understands.
func frontierOutcome(cp *crawlPayload) (frontier.Outcome, string) {
	switch cp.Outcome {
	case OutcomeSucceeded, OutcomeUnchanged:
		return frontier.OutcomeSucceeded, ""
	case OutcomeFailedRetryable:
		return frontier.OutcomeFailedRetryable, cp.Reason
	default:
		// Disallowed, TooLarge, NotHTML and permanent failures are all
		// final: retrying cannot change them.
		return frontier.OutcomeFailedPermanent, cp.Reason
	}
}
