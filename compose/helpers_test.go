package compose

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/resolve"
)

var (
	capStream   = capability.NameID("compose-test-stream")
	capPriority = capability.NameID("compose-test-priority")
	capSink     = capability.NameID("compose-test-sink")
	capShared   = capability.NameID("compose-test-shared")
	capMissing  = capability.NameID("compose-test-missing")
)

var (
	protocolTable = resolve.MustTable(
		resolve.Local(capStream),
		resolve.Local(capShared),
		resolve.Forward(capPriority, resolve.SlotTarget),
	)
	sinkTable = resolve.MustTable(
		resolve.Local(capSink),
		resolve.Local(capShared),
	)
	blindTable = resolve.MustTable(
		resolve.Local(capStream),
		resolve.DelegateAll(resolve.SlotTarget),
	)
)

// journal records lifecycle events in order.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.events = append(j.events, e)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	copy(out, j.events)
	return out
}

type protocol struct {
	Base
	log          *journal
	constructErr error
	onConstruct  func(*protocol)
	onTearDown   func(*protocol)
}

func (p *protocol) Capabilities() *resolve.Table { return protocolTable }

func (p *protocol) Construct() error {
	p.log.add("construct primary")
	if p.onConstruct != nil {
		p.onConstruct(p)
	}
	return p.constructErr
}

func (p *protocol) OnTearDown() {
	p.log.add("teardown primary")
	if p.onTearDown != nil {
		p.onTearDown(p)
	}
}

// blindProtocol lists one capability and hands everything else to its target.
type blindProtocol struct {
	Base
}

func (b *blindProtocol) Capabilities() *resolve.Table { return blindTable }

type sink struct {
	Base
	log          *journal
	constructErr error
}

func (s *sink) Capabilities() *resolve.Table { return sinkTable }

func (s *sink) Construct() error {
	s.log.add("construct companion")
	return s.constructErr
}

func (s *sink) OnTearDown() {
	s.log.add("teardown companion")
}

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

type facet struct {
	owner *target
	id    capability.ID
}

func (f *facet) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return f.owner.QueryCapability(id)
}
func (f *facet) AddRef() int32  { return f.owner.AddRef() }
func (f *facet) Release() int32 { return f.owner.Release() }

// controller is an outer object that aggregates a pair. It owns its own
// count and releases the inner pair when that count reaches zero.
type controller struct {
	inner *Pair
	refs  atomic.Int32
}

func newController() *controller {
	c := &controller{}
	c.refs.Store(1)
	return c
}

func (c *controller) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		c.AddRef()
		return c, nil
	}
	if c.inner == nil {
		return nil, errors.NotFound(id.String())
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

func newParts(log *journal) (*protocol, *sink) {
	return &protocol{log: log}, &sink{log: log}
}
