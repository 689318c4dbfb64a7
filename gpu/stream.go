// Package gpu models the ordered, asynchronous device work queue that all
// mapping work is enqueued on. Work submitted to one stream executes in
// submission order, so producers and consumers of a reused buffer need no
// extra synchronization as long as they share a stream.
package gpu

import (
	"sync"

	"github.com/edaniels/golog"
	"go.viam.com/utils"
)

// Stream is an ordered asynchronous work queue. Enqueue never blocks the
// caller; Synchronize blocks until everything enqueued before it has run.
type Stream interface {
	Enqueue(work func())
	Synchronize()
}

// OwningStream creates and owns the underlying work queue. Its lifecycle is
// create -> active -> draining -> destroyed: Close first synchronizes,
// guaranteeing every piece of enqueued work has completed before the queue
// is released. Releasing first would tear resources out from under work
// still in flight.
type OwningStream struct {
	logger golog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool

	workers sync.WaitGroup
}

// NewOwningStream creates the queue and starts its worker.
func NewOwningStream(logger golog.Logger) *OwningStream {
	s := &OwningStream{logger: logger}
	s.cond = sync.NewCond(&s.mu)
	s.workers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.workers.Done()
		s.run()
	})
	return s
}

func (s *OwningStream) run() {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		work := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		work()
	}
}

// Enqueue submits work to the back of the queue and returns immediately.
// Work enqueued after Close is dropped.
func (s *OwningStream) Enqueue(work func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Error("work enqueued on a closed stream; dropping")
		return
	}
	s.pending = append(s.pending, work)
	s.cond.Signal()
}

// Synchronize blocks until all work enqueued before this call has completed.
// On a closed stream it returns immediately; Close already drained.
func (s *OwningStream) Synchronize() {
	done := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, func() { close(done) })
	s.cond.Signal()
	s.mu.Unlock()
	<-done
}

// Close drains the queue and then releases it. After Close returns, every
// effect of previously enqueued work is observable. Safe to call twice.
func (s *OwningStream) Close() error {
	s.Synchronize()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.workers.Wait()
	return nil
}

// Borrowed is a non-owning view of a stream owned elsewhere. It forwards
// work to the owner and can never transition the owner's lifecycle; it must
// not outlive the owner.
type Borrowed struct {
	owner Stream
}

// Borrow wraps an existing stream in a non-owning view.
func Borrow(owner Stream) *Borrowed {
	return &Borrowed{owner: owner}
}

// Enqueue submits work to the owning stream's queue.
func (b *Borrowed) Enqueue(work func()) { b.owner.Enqueue(work) }

// Synchronize blocks until the owning stream has drained work enqueued so far.
func (b *Borrowed) Synchronize() { b.owner.Synchronize() }
