package refcount

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Shared is the single reference count shared by the two halves of a
// composed object, together with the controlling identity handle.
//
// The transition to zero is claimed exactly once. The claiming call runs the
// teardown function; acquire/release pairs issued from inside teardown move
// the count but never start a second teardown.
type Shared struct {
	counter  counter
	identity capability.Unknown
	teardown func()
	freed    atomic.Bool
	model    ThreadModel
}

// New creates a counter holding one reference. teardown runs when the count
// first returns to zero.
func New(model ThreadModel, identity capability.Unknown, teardown func()) *Shared {
	s := &Shared{
		counter:  newCounter(model),
		identity: identity,
		teardown: teardown,
		model:    model,
	}
	s.counter.add(1)
	return s
}

// Acquire increments the count and returns the new value.
func (s *Shared) Acquire() int32 {
	return s.counter.add(1)
}

// Release decrements the count and reports whether this call performed the
// transition that tears the object down.
func (s *Shared) Release() (int32, bool) {
	n := s.counter.add(-1)
	if n < 0 {
		fatal(errors.Underflow(n))
	}
	if n != 0 {
		return n, false
	}
	if !s.counter.claim() {
		return 0, false
	}

	Logger().Debug("shared count reached zero", zap.String("thread_model", s.model.String()))
	if s.teardown != nil {
		s.teardown()
	}
	s.free()
	return 0, true
}

// Count returns the current count.
func (s *Shared) Count() int32 {
	return s.counter.load()
}

// Identity returns the controlling identity handle, or nil once freed.
func (s *Shared) Identity() capability.Unknown {
	if s.freed.Load() {
		return nil
	}
	return s.identity
}

// TornDown reports whether the zero transition has been claimed.
func (s *Shared) TornDown() bool {
	return s.counter.claimed()
}

// Freed reports whether teardown finished and the counter was released.
func (s *Shared) Freed() bool {
	return s.freed.Load()
}

// ThreadModel returns the counter's threading model.
func (s *Shared) ThreadModel() ThreadModel {
	return s.model
}

func (s *Shared) free() {
	s.identity = nil
	s.teardown = nil
	s.freed.Store(true)
}

// fatal reports an unrecoverable lifetime bug and aborts the caller.
func fatal(err *errors.Error) {
	Logger().Error("reference count invariant violated", zap.Error(err))
	panic(err)
}
