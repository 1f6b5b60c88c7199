package vision

import (
	"context"
	"sync"
)

// StaticProvider replays scripted frames and errors, primarily for tests.
// Emit calls must not race with Close.
type StaticProvider struct {
	results   chan frameResult
	closeOnce sync.Once
}

// NewStaticProvider builds a provider with the given queue depth.
func NewStaticProvider(buffer int) *StaticProvider {
	if buffer <= 0 {
		buffer = frameBuffer
	}
	return &StaticProvider{results: make(chan frameResult, buffer)}
}

// EmitFrame queues a frame for the next caller.
func (p *StaticProvider) EmitFrame(frame Frame) {
	p.results <- frameResult{frame: frame}
}

// EmitError queues an error for the next caller.
func (p *StaticProvider) EmitError(err error) {
	p.results <- frameResult{err: err}
}

// Next returns the next scripted result, ErrProviderClosed after Close.
func (p *StaticProvider) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case res, ok := <-p.results:
		if !ok {
			return Frame{}, ErrProviderClosed
		}
		return res.frame, res.err
	}
}

// Close drains the queue; queued results are still delivered first.
func (p *StaticProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.results)
	})
	return nil
}

var _ Provider = (*StaticProvider)(nil)
