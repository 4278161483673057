package pipeline

// Static and compile-time check to ensure workerParams implements the
// StageParams interface.
var _ StageParams = (*workerParams)(nil)

type workerParams struct {
	stage int

	inChan  <-chan Payload
	outChan chan<- Payload
	errChan chan<- error
}

func (p *workerParams) StageIndex() int        { return p.stage }
func (p *workerParams) Input() <-chan Payload  { return p.inChan }
func (p *workerParams) Output() chan<- Payload { return p.outChan }
func (p *workerParams) Error() chan<- error    { return p.errChan }
