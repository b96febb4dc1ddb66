package resolve

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Shim fronts a target's handle with the wrapper's identity.
//
// Every query, including Identity, goes to the controlling unknown, so the
// handle is indistinguishable from one the wrapper implements itself. Each
// reference on the shim is also a reference on the controlling unknown. The
// target's handle is released when the shim's own count reaches zero.
type Shim struct {
	controlling capability.Unknown
	raw         capability.Unknown
	id          capability.ID
	refs        atomic.Int32
}

// NewShim takes ownership of one reference on raw and acquires one on
// controlling. If a descriptor with a WrapFunc is registered for id, the
// typed handle it builds is returned instead of the bare shim.
func NewShim(controlling, raw capability.Unknown, id capability.ID) capability.Unknown {
	s := &Shim{
		controlling: controlling,
		raw:         raw,
		id:          id,
	}
	s.refs.Store(1)
	controlling.AddRef()

	if d, ok := capability.Lookup(id); ok && d.Wrap != nil {
		return d.Wrap(s, raw)
	}
	return s
}

// QueryCapability asks the controlling unknown.
func (s *Shim) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return s.controlling.QueryCapability(id)
}

// AddRef acquires a reference on the shim and on the controlling unknown.
func (s *Shim) AddRef() int32 {
	s.refs.Add(1)
	return s.controlling.AddRef()
}

// Release drops a reference on the shim and on the controlling unknown.
func (s *Shim) Release() int32 {
	n := s.refs.Add(-1)
	if n < 0 {
		err := errors.Underflow(n)
		Logger().Error("forwarding handle released too often",
			zap.String("capability", capability.Name(s.id)),
			zap.Error(err))
		panic(err)
	}
	if n == 0 {
		s.raw.Release()
	}
	return s.controlling.Release()
}

// Unwrap returns the target's handle.
func (s *Shim) Unwrap() capability.Unknown { return s.raw }

// Controlling returns the identity the shim reports.
func (s *Shim) Controlling() capability.Unknown { return s.controlling }

// ID returns the capability the shim was created for.
func (s *Shim) ID() capability.ID { return s.id }
