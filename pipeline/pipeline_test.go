package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	check "gopkg.in/check.v1"

	"github.com/sokmotor/sokmotor/pipeline"
)

var _ = check.Suite(new(pipelineTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type pipelineTestSuite struct{}

func (s *pipelineTestSuite) TestPayloadsTraverseAllStages(c *check.C) {
	stages := make([]pipeline.StageRunner, 10)
	for i := range stages {
		stages[i] = &passThroughStage{c: c}
	}

	src := &stubSource{data: makePayloads(3)}
	sink := new(stubSink)

	err := pipeline.New(stages...).Execute(context.TODO(), src, sink)
	c.Assert(err, check.IsNil)
	c.Assert(sink.data, check.DeepEquals, src.data)
	assertAllProcessed(c, sink.data...)
}

func (s *pipelineTestSuite) TestStageErrorAbortsExecution(c *check.C) {
	stageErr := errors.New("processor error")
	stages := make([]pipeline.StageRunner, 10)
	for i := range stages {
		var err error
		if i%5 == 0 {
			err = stageErr
		}

		stages[i] = &passThroughStage{c: c, err: err}
	}

	src := &stubSource{data: makePayloads(3)}

	err := pipeline.New(stages...).Execute(context.TODO(), src, new(stubSink))
	c.Assert(err, check.ErrorMatches, "(?s).*processor error.*")
}

func (s *pipelineTestSuite) TestDroppedPayloadsAreStillMarkedProcessed(c *check.C) {
	src := &stubSource{data: makePayloads(1)}
	sink := new(stubSink)

	err := pipeline.New(&passThroughStage{c: c, drop: true}).
		Execute(context.TODO(), src, sink)
	c.Assert(err, check.IsNil)
	c.Assert(sink.data, check.HasLen, 0)
	assertAllProcessed(c, src.data...)
}

func (s *pipelineTestSuite) TestSourceErrorSurfaces(c *check.C) {
	src := &stubSource{
		data: makePayloads(3),
		err:  errors.New("source error"),
	}

	err := pipeline.New(&passThroughStage{c: c}).
		Execute(context.TODO(), src, new(stubSink))
	c.Assert(err, check.ErrorMatches, "(?s).*source error.*")
}

func (s *pipelineTestSuite) TestSinkErrorSurfaces(c *check.C) {
	src := &stubSource{data: makePayloads(1)}
	sink := &stubSink{err: errors.New("sink error")}

	err := pipeline.New(&passThroughStage{c: c}).
		Execute(context.TODO(), src, sink)
	c.Assert(err, check.ErrorMatches, "(?s).*sink error.*")
}

func assertAllProcessed(c *check.C, payloads ...pipeline.Payload) {
	for i, p := range payloads {
		c.Assert(
			p.(*stubPayload).processed, check.Equals, true,
			check.Commentf("payload %d not marked as processed", i),
		)
	}
}

type stubSource struct {
	index int
	data  []pipeline.Payload
	err   error
}

func (s *stubSource) Next(context.Context) bool {
	if s.err != nil || s.index >= len(s.data) {
		return false
	}
	s.index++

	return true
}

func (s *stubSource) Payload() pipeline.Payload { return s.data[s.index-1] }
func (s *stubSource) Error() error              { return s.err }

type stubSink struct {
	data []pipeline.Payload
	err  error
}

func (s *stubSink) Consume(_ context.Context, p pipeline.Payload) error {
	s.data = append(s.data, p)

	return s.err
}

type stubPayload struct {
	value     string
	processed bool
}

func (p *stubPayload) Clone() pipeline.Payload { return &stubPayload{value: p.value} }
func (p *stubPayload) MarkAsProcessed()        { p.processed = true }

func makePayloads(n int) []pipeline.Payload {
	payloads := make([]pipeline.Payload, n)
	for i := range payloads {
		payloads[i] = &stubPayload{value: fmt.Sprint(i)}
	}

	return payloads
}

// passThroughStage forwards payloads unchanged, optionally dropping them or
// failing with a fixed error.
type passThroughStage struct {
	c    *check.C
	drop bool
	err  error
}

func (s *passThroughStage) Run(ctx context.Context, params pipeline.StageParams) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-params.Input():
			if !open {
				return
			}

			if s.err != nil {
				params.Error() <- s.err
				return
			}

			if s.drop {
				payload.MarkAsProcessed()
				continue
			}

			select {
			case <-ctx.Done():
				return
			case params.Output() <- payload:
			}
		}
	}
}
