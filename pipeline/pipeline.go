/*
	pipeline package implements the asynchronous multi-stage pipeline the
	crawler is built on. A pipeline strings together a payload source, zero
	or more processing stages and a sink; each stage runs in its own
	goroutine and hands payloads to the next stage over a channel.

	Execute exposes the whole machinery through a synchronous call: it
	blocks until the source drains, an error surfaces or the context is
	cancelled.
*/

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Pipeline assembles a set of stage runners into a processing chain.
type Pipeline struct {
	stages []StageRunner
}

// New creates a pipeline from the given stages. Payloads traverse the
// stages in the order they are listed.
func New(stages ...StageRunner) *Pipeline {
	return &Pipeline{stages: stages}
}

// Execute pumps payloads from src through every stage and into sink. It
// blocks until the source is exhausted, any component reports an error or
// ctx is cancelled, and returns the accumulated errors.
//
// Execute is safe to call concurrently with distinct sources and sinks.
func (p *Pipeline) Execute(ctx context.Context, src Source, sink Sink) error {
	runCtx, cancel := context.WithCancel(ctx)

	// One channel between each pair of adjacent components. The extra
	// channel covers the degenerate zero-stage pipeline where the source
	// feeds the sink directly.
	links := make([]chan Payload, len(p.stages)+1)
	for i := range links {
		links[i] = make(chan Payload)
	}

	// Buffered so every component can report one error without blocking.
	errChan := make(chan error, len(p.stages)+2)

	var wg sync.WaitGroup
	for i, stage := range p.stages {
		wg.Add(1)

		go func(i int, stage StageRunner) {
			defer wg.Done()

			stage.Run(runCtx, &workerParams{
				stage:   i,
				inChan:  links[i],
				outChan: links[i+1],
				errChan: errChan,
			})

			// Run only returns once its input channel closes (or on
			// error); closing the output propagates the shutdown to the
			// next stage.
			close(links[i+1])
		}(i, stage)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()

		pumpSource(runCtx, src, links[0], errChan)
		close(links[0])
	}()

	go func() {
		defer wg.Done()

		drainIntoSink(runCtx, sink, links[len(links)-1], errChan)
	}()

	go func() {
		wg.Wait()
		close(errChan)
		cancel()
	}()

	var err error
	for componentErr := range errChan {
		err = multierror.Append(err, componentErr)

		// First error tears down the whole pipeline.
		cancel()
	}

	return err
}

// pumpSource copies payloads from the source into the first stage channel
// until the source drains or the context is cancelled.
func pumpSource(ctx context.Context, src Source, out chan<- Payload, errChan chan<- error) {
	for src.Next(ctx) {
		select {
		case <-ctx.Done():
			return
		case out <- src.Payload():
		}
	}

	if err := src.Error(); err != nil {
		tryEmitError(fmt.Errorf("pipeline source: %w", err), errChan)
	}
}

// drainIntoSink feeds the final stage output into the sink until the channel
// closes or the context is cancelled.
func drainIntoSink(ctx context.Context, sink Sink, in <-chan Payload, errChan chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-in:
			if !open {
				return
			}

			if err := sink.Consume(ctx, payload); err != nil {
				tryEmitError(fmt.Errorf("pipeline sink: %w", err), errChan)
				return
			}

			payload.MarkAsProcessed()
		}
	}
}

// tryEmitError writes the error unless the channel is already full, in
// which case the error is dropped; the first buffered error is enough to
// abort the run.
func tryEmitError(err error, errChan chan<- error) {
	select {
	case errChan <- err:
	default:
	}
}
