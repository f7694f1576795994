package transient

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

type sample struct {
	t float64
	x State
}

// AsyncSink decouples a slow sink from the solve loop. Samples are queued on
// a buffered channel and delivered in order by one goroutine; OnStep blocks
// only while the buffer is full, so nothing is dropped.
type AsyncSink struct {
	next Sink
	ch   chan sample
	g    errgroup.Group

	mu       sync.Mutex
	failures int
	first    error
	once     sync.Once
}

// NewAsyncSink starts the delivery goroutine. Close must be called after the
// run to flush the queue.
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	a := &AsyncSink{next: next, ch: make(chan sample, buffer)}
	a.g.Go(a.drain)
	return a
}

func (a *AsyncSink) drain() error {
	for s := range a.ch {
		if err := a.next.OnStep(s.t, s.x); err != nil {
			a.mu.Lock()
			a.failures++
			if a.first == nil {
				a.first = err
			}
			a.mu.Unlock()
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		return fmt.Errorf("%d of the delivered steps failed, first: %w", a.failures, a.first)
	}
	return nil
}

func (a *AsyncSink) OnStep(t float64, x State) error {
	a.ch <- sample{t: t, x: x}
	return nil
}

// Close flushes pending samples and waits for delivery. It reports the
// downstream failures, if any. Close is idempotent.
func (a *AsyncSink) Close() error {
	a.once.Do(func() { close(a.ch) })
	return a.g.Wait()
}

// Failures is the number of downstream errors seen so far.
func (a *AsyncSink) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}
