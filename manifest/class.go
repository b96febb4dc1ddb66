package manifest

import (
	"sync/atomic"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/creator"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/resolve"
)

// Object is a pair half built from a manifest. It is its own handle for
// every capability its table implements locally.
type Object struct {
	compose.Base
	table *resolve.Table
}

// Capabilities returns the table declared in the manifest.
func (o *Object) Capabilities() *resolve.Table { return o.table }

// Class builds the creator class the manifest declares.
func (m *Manifest) Class() (*creator.Class, error) {
	primary, companion, err := m.Tables()
	if err != nil {
		return nil, err
	}
	return &creator.Class{
		Name:         m.Name,
		ID:           m.ClassID(),
		Strategy:     m.Strategy,
		ThreadModel:  m.ThreadModel,
		Debug:        m.Debug,
		NewPrimary:   func() compose.Object { return &Object{table: primary} },
		NewCompanion: func() compose.Object { return &Object{table: companion} },
	}, nil
}

// Target is a reference counted stand-in for a real target object. It
// supports the capabilities the manifest lists and can enumerate them.
type Target struct {
	caps []capability.ID
	refs atomic.Int32
}

// NewTarget creates a target holding one reference for the caller.
func (m *Manifest) NewTarget() *Target {
	caps := make([]capability.ID, 0, len(m.Target.Implements))
	for _, ref := range m.Target.Implements {
		caps = append(caps, Ref(ref))
	}
	t := &Target{caps: caps}
	t.refs.Store(1)
	return t
}

// TargetFactory returns a factory making a new Target per request. Targets
// cannot be aggregated.
func (m *Manifest) TargetFactory() creator.TargetFactory {
	return creator.TargetFunc(func(outer capability.Unknown, id capability.ID) (capability.Unknown, error) {
		if outer != nil {
			return nil, errors.AggregationNotSupported(m.Name + " target")
		}
		t := m.NewTarget()
		defer t.Release()
		return t.QueryCapability(id)
	})
}

func (t *Target) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity || t.supports(id) {
		t.AddRef()
		return t, nil
	}
	return nil, errors.NotFound(capability.Name(id))
}

func (t *Target) supports(id capability.ID) bool {
	for _, c := range t.caps {
		if c == id {
			return true
		}
	}
	return false
}

func (t *Target) AddRef() int32 { return t.refs.Add(1) }

func (t *Target) Release() int32 { return t.refs.Add(-1) }

// Capabilities lists the supported capabilities.
func (t *Target) Capabilities() []capability.ID {
	out := make([]capability.ID, len(t.caps))
	copy(out, t.caps)
	return out
}

// Refs returns the current reference count.
func (t *Target) Refs() int32 { return t.refs.Load() }

var (
	_ capability.Unknown    = (*Target)(nil)
	_ capability.Enumerator = (*Target)(nil)
	_ compose.Object        = (*Object)(nil)
)
