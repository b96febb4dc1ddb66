package compose

import (
	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/resolve"
)

// Object is one half of a pair. Types satisfy it by embedding Base and
// declaring a Capabilities table.
type Object interface {
	capability.Unknown
	resolve.Wrapper
	base() *Base
}

// Constructor is implemented by objects that need initialization once both
// halves are attached. A failure aborts the whole pair.
type Constructor interface {
	Construct() error
}

// TearDowner is implemented by objects that release extra resources before
// the shared count is freed. The other half is still reachable while it runs.
type TearDowner interface {
	OnTearDown()
}

// Base is the part of a pair half that the pair manages: its back-reference,
// its bound targets and its delegating unknown.
//
// The back-reference is a plain Go pointer; it never counts toward the pair's
// lifetime.
type Base struct {
	pair    *Pair
	side    Side
	targets resolve.Targets
}

func (b *Base) base() *Base { return b }

// Capabilities returns no table. Embedding types override it.
func (b *Base) Capabilities() *resolve.Table { return nil }

// Targets returns the half's bound targets.
func (b *Base) Targets() *resolve.Targets { return &b.targets }

// Pair returns the owning pair, or nil before attachment.
func (b *Base) Pair() *Pair { return b.pair }

// Side returns which half this is.
func (b *Base) Side() Side { return b.side }

// Sibling returns the other half of the pair.
func (b *Base) Sibling() Object {
	if b.pair == nil {
		return nil
	}
	return b.pair.object(b.side.other())
}

// QueryCapability is the delegating query. An aggregated pair defers to the
// outer controller; otherwise this half's table is tried before the other's.
func (b *Base) QueryCapability(id capability.ID) (capability.Unknown, error) {
	p := b.pair
	if p == nil {
		return nil, errDetached()
	}
	if p.outer != nil {
		return p.outer.QueryCapability(id)
	}
	return p.query(b.side, id)
}

// AddRef acquires a reference on the controlling unknown.
func (b *Base) AddRef() int32 {
	if b.pair == nil {
		return 0
	}
	return b.pair.Controlling().AddRef()
}

// Release drops a reference on the controlling unknown.
func (b *Base) Release() int32 {
	if b.pair == nil {
		return 0
	}
	return b.pair.Controlling().Release()
}

func errDetached() error {
	return errors.InvalidState(errors.PhaseQuery, "object is not attached to a pair")
}
