package main

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/creator"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/manifest"
	"github.com/wippyai/passthrough/registry"
	"github.com/wippyai/passthrough/resolve"
)

// session is one instance of a manifest class, created through a factory.
type session struct {
	manifest *manifest.Manifest
	factory  *creator.Factory
	instance capability.Unknown
	pair     *compose.Pair
	cancel   func()
	trace    []string
	mu       sync.Mutex
}

type queryResult struct {
	err      error
	ref      string
	name     string
	how      string
	identity bool
}

func openSession(m *manifest.Manifest, aggregate bool) (*session, error) {
	class, err := m.Class()
	if err != nil {
		return nil, err
	}
	f, err := creator.NewFactoryWithTarget(class, m.TargetFactory())
	if err != nil {
		return nil, err
	}

	s := &session{manifest: m, factory: f}
	s.cancel = f.Subscribe(registry.ObserverFunc(func(e registry.Event) {
		s.record(fmt.Sprintf("%s #%d %s", e.Class, e.Handle, e.Type))
	}))

	if aggregate {
		o := &outer{name: m.Name + " outer", record: s.record}
		o.refs.Store(1)
		inner, err := f.CreateInstance(o, capability.Identity)
		if err != nil {
			s.cancel()
			return nil, err
		}
		o.inner = inner
		s.instance = o
		s.pair, _ = inner.(*compose.Pair)
	} else {
		inst, err := f.CreateInstance(nil, capability.Identity)
		if err != nil {
			s.cancel()
			return nil, err
		}
		s.instance = inst
		s.pair, _ = inst.(*compose.Pair)
	}
	return s, nil
}

func (s *session) record(line string) {
	s.mu.Lock()
	s.trace = append(s.trace, line)
	s.mu.Unlock()
}

func (s *session) query(ref string) queryResult {
	id := manifest.Ref(ref)
	r := queryResult{ref: ref, name: capability.Name(id)}

	h, err := s.instance.QueryCapability(id)
	if err != nil {
		r.err = err
		return r
	}
	defer h.Release()

	switch v := h.(type) {
	case *resolve.Shim:
		r.how = fmt.Sprintf("forwarded to %T", v.Unwrap())
	case *compose.Pair:
		r.how = "pair"
	case *manifest.Object:
		r.how = "local " + v.Side().String()
	default:
		r.how = fmt.Sprintf("%T", h)
	}
	r.identity = capability.SameIdentity(h, s.instance)
	return r
}

// candidates lists every capability the manifest mentions.
func (s *session) candidates() []string {
	seen := map[string]bool{"identity": true, "passthrough-object": true}
	out := []string{"identity", "passthrough-object"}
	add := func(refs ...string) {
		for _, r := range refs {
			if r != "" && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	for _, h := range []manifest.Half{s.manifest.Primary, s.manifest.Companion} {
		add(h.Implements...)
		for _, p := range h.Passthrough {
			add(p.Capability)
		}
	}
	add(s.manifest.Target.Implements...)
	sort.Strings(out[2:])
	return out
}

// close releases the instance and returns the lifecycle trace.
func (s *session) close() []string {
	if s.instance != nil {
		s.instance.Release()
		s.instance = nil
	}
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.trace))
	copy(out, s.trace)
	if s.pair != nil {
		out = append(out, fmt.Sprintf("%s state %s", s.pair.Name(), s.pair.State()))
	}
	out = append(out, fmt.Sprintf("live instances %d, can unload %v", s.factory.Live(), s.factory.CanUnload()))
	return out
}

// outer is a minimal aggregating controller. It answers Identity itself and
// hands every other query to the inner instance.
type outer struct {
	inner  capability.Unknown
	record func(string)
	name   string
	refs   atomic.Int32
}

func (o *outer) QueryCapability(id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		o.AddRef()
		return o, nil
	}
	if o.inner == nil {
		return nil, errors.NotFound(capability.Name(id))
	}
	return o.inner.QueryCapability(id)
}

func (o *outer) AddRef() int32 { return o.refs.Add(1) }

func (o *outer) Release() int32 {
	n := o.refs.Add(-1)
	if n == 0 {
		o.record(o.name + " released inner")
		if o.inner != nil {
			o.inner.Release()
		}
	}
	return n
}
