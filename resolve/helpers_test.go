package resolve

import (
	"sync/atomic"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

var (
	capA = capability.NameID("resolve-test-a")
	capB = capability.NameID("resolve-test-b")
	capC = capability.NameID("resolve-test-c")
	capD = capability.NameID("resolve-test-d")
)

// target is a reference counted object supporting a fixed capability set.
type target struct {
	caps []capability.ID
	refs atomic.Int32
}

func newTarget(caps ...capability.ID) *target {
	return &target{caps: caps}
}

func (t *target) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		t.AddRef()
		return t, nil
	}
	for _, c := range t.caps {
		if c == id {
			t.AddRef()
			return &facet{owner: t, id: id}, nil
		}
	}
	return nil, errors.NotFound(id.String())
}

func (t *target) AddRef() int32  { return t.refs.Add(1) }
func (t *target) Release() int32 { return t.refs.Add(-1) }

func (t *target) Capabilities() []capability.ID { return t.caps }

// facet is the handle a target returns for one capability.
type facet struct {
	owner *target
	id    capability.ID
}

func (f *facet) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return f.owner.QueryCapability(id)
}
func (f *facet) AddRef() int32  { return f.owner.AddRef() }
func (f *facet) Release() int32 { return f.owner.Release() }

// wrapper is a minimal standalone wrapper: it is its own controlling unknown.
type wrapper struct {
	table   *Table
	targets Targets
	refs    atomic.Int32
}

func (w *wrapper) Capabilities() *Table { return w.table }
func (w *wrapper) Targets() *Targets    { return &w.targets }

func (w *wrapper) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return Resolve(w, w, id)
}
func (w *wrapper) AddRef() int32  { return w.refs.Add(1) }
func (w *wrapper) Release() int32 { return w.refs.Add(-1) }
