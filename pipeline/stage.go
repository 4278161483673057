package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// serial processes payloads one at a time, preserving their order.
type serial struct {
	proc Processor
}

// NewSerial returns a StageRunner that processes payloads strictly in the
// order they arrive.
func NewSerial(proc Processor) StageRunner {
	return serial{proc: proc}
}

// Run reads payloads until the input channel closes or the context is
// cancelled. A processing error aborts the stage; a nil processed payload
// is discarded and the next one is read.
func (r serial) Run(ctx context.Context, params StageParams) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-params.Input():
			if !open {
				return
			}

			processed, err := r.proc.Process(ctx, payload)
			if err != nil {
				tryEmitError(fmt.Errorf(
					"pipeline stage %d: %w", params.StageIndex(), err,
				), params.Error())

				return
			}

			if processed == nil {
				payload.MarkAsProcessed()
				continue
			}

			select {
			case <-ctx.Done():
				return
			case params.Output() <- processed:
			}
		}
	}
}

// workerPool fans payloads out to a fixed number of serial runners that
// share the stage's input and output channels.
type workerPool struct {
	workers []StageRunner
}

// NewWorkerPool returns a StageRunner that distributes payloads among
// numWorkers concurrently running copies of the processor. Output order is
// not preserved.
func NewWorkerPool(proc Processor, numWorkers int) StageRunner {
	if numWorkers <= 0 {
		panic("WorkerPool: numWorkers must be > 0")
	}

	workers := make([]StageRunner, numWorkers)
	for i := range workers {
		workers[i] = NewSerial(proc)
	}

	return workerPool{workers: workers}
}

// Run launches every worker against the shared stage params and waits for
// all of them to drain.
func (r workerPool) Run(ctx context.Context, params StageParams) {
	var wg sync.WaitGroup

	for _, worker := range r.workers {
		wg.Add(1)

		go func(worker StageRunner) {
			defer wg.Done()

			worker.Run(ctx, params)
		}(worker)
	}

	wg.Wait()
}

// broadcast clones each payload to a set of processors that all feed the
// same downstream channel.
type broadcast struct {
	workers []StageRunner
}

// NewBroadcast returns a StageRunner that hands a copy of every incoming
// payload to each of the given processors.
func NewBroadcast(procs ...Processor) StageRunner {
	if len(procs) == 0 {
		panic("Broadcast: at least one processor must be specified")
	}

	workers := make([]StageRunner, len(procs))
	for i, proc := range procs {
		workers[i] = NewSerial(proc)
	}

	return broadcast{workers: workers}
}

// Run gives each processor a dedicated input channel while sharing the
// stage output, then fans every incoming payload out to all of them.
func (r broadcast) Run(ctx context.Context, params StageParams) {
	var (
		wg     sync.WaitGroup
		inputs = make([]chan Payload, len(r.workers))
	)

	for i, worker := range r.workers {
		wg.Add(1)
		inputs[i] = make(chan Payload)

		go func(worker StageRunner, input chan Payload) {
			defer wg.Done()

			worker.Run(ctx, &workerParams{
				stage:   params.StageIndex(),
				inChan:  input,
				outChan: params.Output(),
				errChan: params.Error(),
			})
		}(worker, inputs[i])
	}

done:
	for {
		select {
		case <-ctx.Done():
			break done
		case payload, open := <-params.Input():
			if !open {
				break done
			}

			for i := range inputs {
				// Each worker may mutate its payload; all but the first
				// receive a clone.
				forwarded := payload
				if i != 0 {
					forwarded = payload.Clone()
				}

				select {
				case <-ctx.Done():
					break done
				case inputs[i] <- forwarded:
				}
			}
		}
	}

	for _, input := range inputs {
		close(input)
	}

	wg.Wait()
}
