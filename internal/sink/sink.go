// Package sink serializes matched paths from many crawl workers into ordered
// streams for one or more destinations.
//
// Workers call Publish, which only appends to an in-memory queue and never
// waits on a destination. A single consumer goroutine owns every destination
// and writes each path to all of them in publish order, so destinations need no
// locking of their own.
package sink

import (
	"errors"
	"fmt"
	"sync"
)

// Destination receives published paths from the sink's consumer goroutine.
type Destination interface {
	Name() string
	Write(path string) error
	Close() error
}

// WriteError reports a destination that could not be opened or written.
type WriteError struct {
	Destination string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrorHandler is told about write failures after the sink has started. It is
// called from the consumer goroutine.
type ErrorHandler func(err *WriteError)

// Sink fans published paths out to its destinations.
type Sink struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []string
	closed  bool

	dests   []Destination
	onError ErrorHandler
	done    chan struct{}

	published int
	failures  int
}

// New starts a sink writing to dests. onError may be nil.
func New(dests []Destination, onError ErrorHandler) *Sink {
	s := &Sink{
		dests:   dests,
		onError: onError,
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.consume()
	return s
}

// Publish queues path for every destination. Paths published after Close are
// dropped and reported as false.
func (s *Sink) Publish(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.pending = append(s.pending, path)
	s.published++
	s.cond.Signal()
	return true
}

// Close waits for every queued path to be written, then closes each
// destination. It returns the close errors joined together. Calling Close more
// than once is safe.
func (s *Sink) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()

	<-s.done
	if alreadyClosed {
		return nil
	}

	var errs []error
	for _, d := range s.dests {
		if err := d.Close(); err != nil {
			errs = append(errs, &WriteError{Destination: d.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Published returns how many paths were accepted by Publish.
func (s *Sink) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

// Failures returns how many destination writes failed.
func (s *Sink) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Sink) consume() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, path := range batch {
			s.write(path)
		}
	}
}

func (s *Sink) write(path string) {
	for _, d := range s.dests {
		if err := d.Write(path); err != nil {
			s.mu.Lock()
			s.failures++
			s.mu.Unlock()
			if s.onError != nil {
				s.onError(&WriteError{Destination: d.Name(), Err: err})
			}
		}
	}
}
