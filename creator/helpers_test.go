package creator

import (
	"sync/atomic"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/resolve"
)

var (
	capStream   = capability.NameID("creator-test-stream")
	capPriority = capability.NameID("creator-test-priority")
	capSink     = capability.NameID("creator-test-sink")
	capMissing  = capability.NameID("creator-test-missing")
)

type protocol struct {
	compose.Base
	table *resolve.Table
}

func (p *protocol) Capabilities() *resolve.Table { return p.table }

type sink struct {
	compose.Base
}

var sinkTable = resolve.MustTable(resolve.Local(capSink))

func (s *sink) Capabilities() *resolve.Table { return sinkTable }

func newClass(name string, strategy Strategy, entries ...resolve.Entry) *Class {
	table := resolve.MustTable(entries...)
	return &Class{
		Name:         name,
		ID:           capability.NameID(name),
		Strategy:     strategy,
		NewPrimary:   func() compose.Object { return &protocol{table: table} },
		NewCompanion: func() compose.Object { return &sink{} },
	}
}

// target is a reference counted object supporting a fixed capability set.
type target struct {
	caps []capability.ID
	refs atomic.Int32
}

func (t *target) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		t.AddRef()
		return t, nil
	}
	for _, c := range t.caps {
		if c == id {
			t.AddRef()
			return t, nil
		}
	}
	return nil, errors.NotFound(id.String())
}

func (t *target) AddRef() int32  { return t.refs.Add(1) }
func (t *target) Release() int32 { return t.refs.Add(-1) }

// targetMaker hands out targets and remembers them.
type targetMaker struct {
	caps []capability.ID
	made []*target
}

func (m *targetMaker) factory() TargetFactory {
	return TargetFunc(func(outer capability.Unknown, id capability.ID) (capability.Unknown, error) {
		t := &target{caps: m.caps}
		t.refs.Store(1)
		m.made = append(m.made, t)
		return t, nil
	})
}

// controller aggregates one inner instance.
type controller struct {
	inner capability.Unknown
	refs  atomic.Int32
}

func (c *controller) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		c.AddRef()
		return c, nil
	}
	return c.inner.QueryCapability(id)
}

func (c *controller) AddRef() int32 { return c.refs.Add(1) }

func (c *controller) Release() int32 {
	n := c.refs.Add(-1)
	if n == 0 && c.inner != nil {
		c.inner.Release()
	}
	return n
}
