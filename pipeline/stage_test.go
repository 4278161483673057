package pipeline_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/pipeline"
)

var _ = check.Suite(new(stageRunnerTestSuite))

type stageRunnerTestSuite struct{}

func (s *stageRunnerTestSuite) TestSerialPreservesOrder(c *check.C) {
	stages := make([]pipeline.StageRunner, 10)
	for i := range stages {
		stages[i] = pipeline.NewSerial(passThroughProcessor())
	}

	src := &stubSource{data: makePayloads(3)}
	sink := new(stubSink)

	err := pipeline.New(stages...).Execute(context.TODO(), src, sink)
	c.Assert(err, check.IsNil)
	c.Assert(sink.data, check.DeepEquals, src.data)
	assertAllProcessed(c, src.data...)
}

func (s *stageRunnerTestSuite) TestWorkerPoolRunsWorkersConcurrently(c *check.C) {
	numWorkers := 10
	arrived := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	proc := pipeline.ProcessorFunc(
		func(context.Context, pipeline.Payload) (pipeline.Payload, error) {
			arrived <- struct{}{}
			<-release

			return nil, nil
		})

	src := &stubSource{data: makePayloads(numWorkers)}

	go func() {
		err := pipeline.New(pipeline.NewWorkerPool(proc, numWorkers)).
			Execute(context.TODO(), src, new(stubSink))
		c.Assert(err, check.IsNil)

		close(done)
	}()

	// Every payload must be in a different worker before any of them is
	// released.
	for i := 0; i < numWorkers; i++ {
		select {
		case <-arrived:
		case <-time.After(10 * time.Second):
			c.Fatalf("timed out waiting for worker %d to pick up a payload", i)
		}
	}

	close(release)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for pipeline to complete")
	}
}

func (s *stageRunnerTestSuite) TestBroadcastClonesPayloads(c *check.C) {
	procs := make([]pipeline.Processor, 3)
	for i := range procs {
		procs[i] = suffixingProcessor(i)
	}

	src := &stubSource{data: makePayloads(1)}
	sink := new(stubSink)

	err := pipeline.New(pipeline.NewBroadcast(procs...)).
		Execute(context.TODO(), src, sink)
	c.Assert(err, check.IsNil)

	var values []string
	for _, p := range sink.data {
		values = append(values, p.(*stubPayload).value)
	}
	sort.Strings(values)

	c.Assert(values, check.DeepEquals, []string{"0_0", "0_1", "0_2"})
}

func passThroughProcessor() pipeline.Processor {
	return pipeline.ProcessorFunc(
		func(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
			return p, nil
		})
}

// suffixingProcessor mutates the payload so the test can verify each
// broadcast branch received its own copy.
func suffixingProcessor(index int) pipeline.Processor {
	return pipeline.ProcessorFunc(
		func(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
			payload := p.(*stubPayload)
			payload.value = fmt.Sprintf("%s_%d", payload.value, index)

			return payload, nil
		})
}
