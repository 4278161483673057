package crawler

import (
	"context"
	"errors"

	"github.com/juju/clock"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/pipeline"
)

// Static and compile-time check to ensure frontierSource implements the
// pipeline.Source interface.
var _ pipeline.Source = (*frontierSource)(nil)

// frontierSource pumps frontier entries into the pipeline. When every
// domain is in cooldown it sleeps until the frontier's advertised retry
// time instead of spinning; it stops once the frontier reports empty.
type frontierSource struct {
	frontier MiniFrontier
	clock    clock.Clock

	current *frontier.Entry
	err     error
}

func newFrontierSource(f MiniFrontier, clk clock.Clock) *frontierSource {
	return &frontierSource{frontier: f, clock: clk}
}

func (s *frontierSource) Next(ctx context.Context) bool {
	for {
		entry, err := s.frontier.NextURL()
		if err == nil {
			s.current = entry
			return true
		}

		if errors.Is(err, frontier.ErrEmpty) {
			return false
		}

		var unavailable *frontier.UnavailableError
		if errors.As(err, &unavailable) {
			wait := unavailable.RetryAt.Sub(s.clock.Now())
			select {
			case <-ctx.Done():
				return false
			case <-s.clock.After(wait):
				continue
			}
		}

		s.err = err

		return false
	}
}

func (s *frontierSource) Payload() pipeline.Payload {
	payload := payloadPool.Get().(*crawlPayload)

	payload.URL = s.current.URL
	payload.Domain = s.current.Domain
	payload.Priority = s.current.Priority
	payload.Outcome = OutcomePending

	return payload
}

func (s *frontierSource) Error() error {
	return s.err
}
