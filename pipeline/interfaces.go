package pipeline

import "context"

// Payload is the unit of work that flows through a pipeline. Implementations
// carry the accumulated state of a crawl item as it moves from stage to
// stage.
type Payload interface {
	// Clone returns a deep copy of the payload so concurrent stages can
	// mutate their copies independently.
	Clone() Payload

	// MarkAsProcessed is invoked exactly once per payload, either when it
	// reaches the sink or when a stage discards it.
	MarkAsProcessed()
}

// Source feeds payloads into the first stage of a pipeline.
type Source interface {
	// Next advances the source. It returns false when no more payloads are
	// available or an error occurred.
	Next(context.Context) bool

	// Payload returns the payload produced by the last successful Next call.
	Payload() Payload

	// Error returns the last error observed by the source.
	Error() error
}

// Sink consumes the payloads that survive all pipeline stages.
type Sink interface {
	// Consume handles a fully processed payload.
	Consume(context.Context, Payload) error
}

// Processor transforms a payload for a single pipeline stage. Returning a
// nil payload (with a nil error) discards the item instead of forwarding it.
type Processor interface {
	Process(context.Context, Payload) (Payload, error)
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(context.Context, Payload) (Payload, error)

// Process calls f(ctx, p).
func (f ProcessorFunc) Process(ctx context.Context, p Payload) (Payload, error) {
	return f(ctx, p)
}

// StageRunner executes one stage of a pipeline. Implementations decide the
// dispatch strategy (serial, worker pool, broadcast) for the stage's
// processor.
type StageRunner interface {
	// Run blocks until the stage input channel is closed, the context is
	// cancelled or processing fails.
	Run(context.Context, StageParams)
}

// StageParams carries the wiring a StageRunner needs: its position in the
// pipeline plus the input, output and error channels.
type StageParams interface {
	// StageIndex returns the position of this stage in the pipeline.
	StageIndex() int

	// Input returns the channel the stage reads payloads from.
	Input() <-chan Payload

	// Output returns the channel the stage writes processed payloads to.
	Output() chan<- Payload

	// Error returns the channel the stage reports failures on.
	Error() chan<- error
}
