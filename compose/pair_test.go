package compose

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/wippyai/passthrough/capability"
	perrors "github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/refcount"
	"github.com/wippyai/passthrough/resolve"
)

func newPair(t *testing.T, cfg Config, log *journal) (*Pair, *protocol, *sink) {
	t.Helper()
	proto, snk := newParts(log)
	p, err := New(cfg, proto, snk, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, proto, snk
}

func TestPair_Scenario(t *testing.T) {
	p, proto, _ := newPair(t, Config{Name: "scenario"}, nil)
	tgt := newTarget(capStream, capPriority)
	if err := p.Bind(tgt); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	a, err := p.QueryCapability(capStream)
	if err != nil {
		t.Fatalf("query stream failed: %v", err)
	}
	if a != capability.Unknown(proto) {
		t.Fatalf("stream should resolve to the primary itself, got %T", a)
	}

	b, err := p.QueryCapability(capPriority)
	if err != nil {
		t.Fatalf("query priority failed: %v", err)
	}
	f, ok := capability.As[*facet](b)
	if !ok || f.owner != tgt || f.id != capPriority {
		t.Fatal("priority should forward to the target's priority")
	}
	if !capability.SameIdentity(b, p) {
		t.Fatal("forwarded handle must report the pair's identity")
	}
	if capability.SameIdentity(b, tgt) {
		t.Fatal("forwarded handle must not report the target's identity")
	}

	_, err = p.QueryCapability(capMissing)
	if !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("query missing: expected not_found, got %v", err)
	}

	a.Release()
	b.Release()
	if got := p.RefCount(); got != 1 {
		t.Fatalf("RefCount = %d, want 1", got)
	}
	p.Release()
	if tgt.refs.Load() != 0 {
		t.Fatalf("target refs after teardown = %d, want 0", tgt.refs.Load())
	}
}

func TestPair_NotSupported(t *testing.T) {
	p, _, _ := newPair(t, Config{Name: "unsupported"}, nil)
	defer p.Release()

	// Nothing bound yet.
	if _, err := p.QueryCapability(capPriority); !errors.Is(err, perrors.ErrNotSupported) {
		t.Fatalf("unbound slot: expected not_supported, got %v", err)
	}

	if err := p.Bind(newTarget(capStream)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if _, err := p.QueryCapability(capPriority); !errors.Is(err, perrors.ErrNotSupported) {
		t.Fatalf("refusing target: expected not_supported, got %v", err)
	}
}

func TestPair_Identity(t *testing.T) {
	p, proto, snk := newPair(t, Config{Name: "identity"}, nil)
	defer p.Release()
	if err := p.Bind(newTarget(capPriority)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	fwd, err := proto.QueryCapability(capPriority)
	if err != nil {
		t.Fatalf("query priority failed: %v", err)
	}
	defer fwd.Release()

	sources := []capability.Unknown{p, p, proto, snk, fwd}
	for i, src := range sources {
		id, err := src.QueryCapability(capability.Identity)
		if err != nil {
			t.Fatalf("source %d: identity query failed: %v", i, err)
		}
		if id != capability.Unknown(p) {
			t.Fatalf("source %d: identity = %T, want the pair", i, id)
		}
		id.Release()
	}
	if got := p.RefCount(); got != 2 {
		t.Fatalf("RefCount = %d, want 2", got)
	}
}

func TestPair_AggregationGuard(t *testing.T) {
	tests := []struct {
		name  string
		mode  OwnershipMode
		outer bool
		want  error
	}{
		{"standalone with outer", Standalone, true, perrors.ErrAggregationNotSupported},
		{"embedded without outer", EmbeddedOnly, false, perrors.ErrMustBeAggregated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &journal{}
			proto, snk := newParts(log)
			var outer capability.Unknown
			if tt.outer {
				outer = newController()
			}

			p, err := New(Config{Name: "guarded", Mode: tt.mode}, proto, snk, outer)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if p != nil {
				t.Fatal("refused creation must not return a pair")
			}
			if proto.Pair() != nil || snk.Pair() != nil {
				t.Fatal("refused creation must not attach the halves")
			}
			if len(log.list()) != 0 {
				t.Fatalf("no hook should run, got %v", log.list())
			}
		})
	}
}

func TestPair_ModesAccepted(t *testing.T) {
	tests := []struct {
		mode  OwnershipMode
		outer bool
	}{
		{Standalone, false},
		{EmbeddedOnly, true},
		{EmbeddableOptional, false},
		{EmbeddableOptional, true},
	}

	for _, tt := range tests {
		proto, snk := newParts(nil)
		var outer *controller
		var o capability.Unknown
		if tt.outer {
			outer = newController()
			o = outer
		}
		p, err := New(Config{Mode: tt.mode}, proto, snk, o)
		if err != nil {
			t.Fatalf("%s outer=%v: %v", tt.mode, tt.outer, err)
		}
		if p.Aggregated() != tt.outer {
			t.Fatalf("%s: Aggregated = %v", tt.mode, p.Aggregated())
		}
		if outer != nil {
			outer.inner = p
			outer.Release()
		} else {
			p.Release()
		}
		if p.State() != Destroyed {
			t.Fatalf("%s: state = %s after final release", tt.mode, p.State())
		}
	}
}

func TestPair_Aggregated(t *testing.T) {
	outer := newController()
	proto, snk := newParts(nil)
	p, err := New(Config{Name: "inner", Mode: EmbeddableOptional}, proto, snk, outer)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	outer.inner = p

	if p.Controlling() != capability.Unknown(outer) {
		t.Fatal("aggregated pair must be controlled by the outer object")
	}

	tgt := newTarget(capPriority)
	if err := p.Bind(tgt); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	id, err := proto.QueryCapability(capability.Identity)
	if err != nil {
		t.Fatalf("identity through primary failed: %v", err)
	}
	if id != capability.Unknown(outer) {
		t.Fatal("primary must report the outer identity")
	}
	id.Release()

	fwd, err := outer.QueryCapability(capPriority)
	if err != nil {
		t.Fatalf("forwarded query failed: %v", err)
	}
	if !capability.SameIdentity(fwd, outer) {
		t.Fatal("forwarded handle must report the outer identity")
	}

	proto.AddRef()
	snk.Release()
	if got := p.RefCount(); got != 1 {
		t.Fatalf("inner count moved to %d; delegating refs belong to the outer", got)
	}

	fwd.Release()
	if outer.refs.Load() != 1 {
		t.Fatalf("outer refs = %d, want 1", outer.refs.Load())
	}

	outer.Release()
	if p.State() != Destroyed {
		t.Fatalf("state = %s, want destroyed", p.State())
	}
	if tgt.refs.Load() != 0 {
		t.Fatalf("target refs = %d, want 0", tgt.refs.Load())
	}
}

func TestPair_RefCountTransitionsOnce(t *testing.T) {
	const workers = 64

	log := &journal{}
	var destroyed int
	p, _, _ := newPair(t, Config{
		Name:        "concurrent",
		ThreadModel: refcount.FreeThreaded,
		OnDestroyed: func(*Pair) { destroyed++ },
	}, log)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.AddRef()
				p.Release()
			}
		}()
	}
	wg.Wait()
	if p.State() != Live {
		t.Fatalf("state = %s, want live", p.State())
	}

	// Every worker owns one reference; the last to let go tears down.
	for i := 0; i < workers-1; i++ {
		p.AddRef()
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Release()
		}()
	}
	wg.Wait()

	if p.State() != Destroyed {
		t.Fatalf("state = %s, want destroyed", p.State())
	}
	if destroyed != 1 {
		t.Fatalf("OnDestroyed ran %d times", destroyed)
	}
	teardowns := 0
	for _, e := range log.list() {
		if e == "teardown primary" {
			teardowns++
		}
	}
	if teardowns != 1 {
		t.Fatalf("primary teardown ran %d times", teardowns)
	}
}

func TestPair_DoubleBind(t *testing.T) {
	p, _, _ := newPair(t, Config{Name: "bind"}, nil)
	defer p.Release()

	first := newTarget(capPriority)
	second := newTarget(capPriority)
	if err := p.Bind(first); err != nil {
		t.Fatalf("first Bind failed: %v", err)
	}
	if err := p.Bind(second); !errors.Is(err, perrors.ErrAlreadyBound) {
		t.Fatalf("second Bind: expected already_bound, got %v", err)
	}
	if second.refs.Load() != 0 {
		t.Fatal("rejected target must not be retained")
	}

	h, err := p.QueryCapability(capPriority)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer h.Release()
	if f, _ := capability.As[*facet](h); f == nil || f.owner != first {
		t.Fatal("original binding must stay in place")
	}
}

func TestPair_BindWindow(t *testing.T) {
	var (
		during    State
		duringErr error
	)
	early := newTarget(capPriority)
	proto, snk := newParts(nil)
	proto.onConstruct = func(self *protocol) {
		during = self.Pair().State()
		duringErr = self.Pair().Bind(early)
	}
	p, err := New(Config{Name: "window"}, proto, snk, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if during != Constructing || duringErr != nil {
		t.Fatalf("Bind while %s: %v", during, duringErr)
	}

	late := newTarget(capSink)
	if err := p.BindSlot(SideCompanion, resolve.SlotTarget, late); err != nil {
		t.Fatalf("Bind while live failed: %v", err)
	}
	if err := p.Bind(newTarget()); !errors.Is(err, perrors.ErrAlreadyBound) {
		t.Fatalf("rebinding after construction: expected already_bound, got %v", err)
	}

	p.Release()
	if early.refs.Load() != 0 || late.refs.Load() != 0 {
		t.Fatalf("targets retained after teardown: %d, %d", early.refs.Load(), late.refs.Load())
	}
}

func TestPair_Binder(t *testing.T) {
	p, _, _ := newPair(t, Config{Name: "binder"}, nil)
	defer p.Release()

	h, err := p.QueryCapability(capability.PassthroughObject)
	if err != nil {
		t.Fatalf("query PassthroughObject failed: %v", err)
	}
	b, ok := capability.As[capability.Binder](h)
	if !ok {
		t.Fatalf("PassthroughObject handle %T is not a Binder", h)
	}
	if !capability.SameIdentity(h, p) {
		t.Fatal("binder must report the pair's identity")
	}

	tgt := newTarget(capPriority)
	if err := b.Bind(tgt); err != nil {
		t.Fatalf("Bind through binder failed: %v", err)
	}
	if err := b.Bind(newTarget()); !errors.Is(err, perrors.ErrAlreadyBound) {
		t.Fatalf("second Bind: expected already_bound, got %v", err)
	}
	h.Release()

	if !p.Primary().Targets().Bound(0) {
		t.Fatal("binder should bind the primary's target slot")
	}
}

func TestPair_QueryAfterTeardown(t *testing.T) {
	var inHook error
	proto, snk := newParts(nil)
	proto.onTearDown = func(self *protocol) {
		_, inHook = self.QueryCapability(capStream)
	}
	p, err := New(Config{Name: "stale"}, proto, snk, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Release()

	if !errors.Is(inHook, perrors.ErrInvalidated) {
		t.Fatalf("query during teardown: expected invalidated, got %v", inHook)
	}

	stale := []capability.Unknown{p, proto, snk}
	for _, h := range stale {
		got, err := h.QueryCapability(capStream)
		if got != nil || !errors.Is(err, perrors.ErrInvalidated) {
			t.Fatalf("%T after teardown: got %v, %v", h, got, err)
		}
	}
	if err := p.Bind(newTarget()); !errors.Is(err, perrors.ErrInvalidated) {
		t.Fatalf("Bind after teardown: expected invalidated, got %v", err)
	}
}

func TestPair_TeardownOrder(t *testing.T) {
	log := &journal{}
	tgt := newTarget(capPriority)
	var destroyedState State
	var refsInHook int32

	proto, snk := newParts(log)
	proto.onTearDown = func(self *protocol) {
		refsInHook = tgt.refs.Load()
		if self.Sibling() != Object(snk) {
			t.Error("companion must still be reachable from the primary hook")
		}
	}
	p, err := New(Config{
		Name: "order",
		OnDestroyed: func(p *Pair) {
			destroyedState = p.State()
			log.add("destroyed")
		},
	}, proto, snk, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Bind(tgt); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	p.Release()

	want := []string{
		"construct primary",
		"construct companion",
		"teardown companion",
		"teardown primary",
		"destroyed",
	}
	if got := log.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if refsInHook != 1 {
		t.Fatalf("target refs during hook = %d, want 1", refsInHook)
	}
	if tgt.refs.Load() != 0 {
		t.Fatal("targets must be released during teardown")
	}
	if destroyedState != Destroyed {
		t.Fatalf("OnDestroyed saw state %s", destroyedState)
	}
}

func TestPair_ConstructionFailed(t *testing.T) {
	cause := errors.New("no stream")

	tests := []struct {
		name          string
		primaryFails  bool
		wantEvents    []string
		wantSideInErr string
	}{
		{
			name:          "companion fails",
			wantEvents:    []string{"construct primary", "construct companion", "teardown primary"},
			wantSideInErr: "companion",
		},
		{
			name:          "primary fails",
			primaryFails:  true,
			wantEvents:    []string{"construct primary"},
			wantSideInErr: "primary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &journal{}
			proto, snk := newParts(log)
			if tt.primaryFails {
				proto.constructErr = cause
			} else {
				snk.constructErr = cause
			}
			destroyed := false

			p, err := New(Config{Name: "failing", OnDestroyed: func(*Pair) { destroyed = true }}, proto, snk, nil)
			if p != nil {
				t.Fatal("failed construction must not return a pair")
			}
			if !errors.Is(err, perrors.ErrConstructionFailed) {
				t.Fatalf("expected construction_failed, got %v", err)
			}
			if !errors.Is(err, cause) {
				t.Fatal("error should wrap the hook's cause")
			}
			var pe *perrors.Error
			if !errors.As(err, &pe) || pe.Class != "failing" {
				t.Fatalf("error should name the class: %v", err)
			}
			if got := log.list(); !reflect.DeepEqual(got, tt.wantEvents) {
				t.Fatalf("events = %v, want %v", got, tt.wantEvents)
			}
			if destroyed {
				t.Fatal("OnDestroyed must not run for a pair that never went live")
			}
			if _, err := proto.QueryCapability(capStream); !errors.Is(err, perrors.ErrInvalidated) {
				t.Fatalf("leftover half must be invalidated, got %v", err)
			}
		})
	}
}

func TestPair_SequentialEmbeddableOptional(t *testing.T) {
	destroyed := 0
	cfg := Config{
		Name:        "optional",
		Mode:        EmbeddableOptional,
		OnDestroyed: func(*Pair) { destroyed++ },
	}

	first, _, _ := newPair(t, cfg, nil)
	if first.State() != Live {
		t.Fatalf("first pair state = %s", first.State())
	}
	first.Release()
	if first.State() != Destroyed {
		t.Fatalf("first pair state after release = %s", first.State())
	}

	second, proto, _ := newPair(t, cfg, nil)
	if second.State() != Live {
		t.Fatalf("second pair state = %s", second.State())
	}
	if second.RefCount() != 1 {
		t.Fatalf("second pair count = %d, want 1", second.RefCount())
	}
	h, err := proto.QueryCapability(capStream)
	if err != nil {
		t.Fatalf("second pair query failed: %v", err)
	}
	h.Release()
	if first.State() != Destroyed {
		t.Fatal("first pair must stay destroyed")
	}
	second.Release()
	if destroyed != 2 {
		t.Fatalf("OnDestroyed ran %d times, want 2", destroyed)
	}
}

func TestPair_SideOrder(t *testing.T) {
	p, proto, snk := newPair(t, Config{Name: "sides"}, nil)
	defer p.Release()

	tests := []struct {
		from capability.Unknown
		want capability.Unknown
	}{
		{p, proto},
		{proto, proto},
		{snk, snk},
	}
	for _, tt := range tests {
		h, err := tt.from.QueryCapability(capShared)
		if err != nil {
			t.Fatalf("%T: %v", tt.from, err)
		}
		if h != tt.want {
			t.Fatalf("%T resolved shared to %T", tt.from, h)
		}
		h.Release()
	}

	// Each half reaches the other's capabilities.
	h, err := proto.QueryCapability(capSink)
	if err != nil || h != capability.Unknown(snk) {
		t.Fatalf("primary -> sink: %v, %v", h, err)
	}
	h.Release()
	if proto.Sibling() != Object(snk) || snk.Sibling() != Object(proto) {
		t.Fatal("Sibling should return the other half")
	}
	if proto.Side() != SidePrimary || snk.Side() != SideCompanion {
		t.Fatal("unexpected sides")
	}
}

func TestPair_DelegateDoesNotHideCompanion(t *testing.T) {
	tests := []struct {
		name   string
		target *target
	}{
		{"unbound", nil},
		{"target refuses", newTarget(capPriority)},
		{"target also implements", newTarget(capSink, capPriority)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, snk := &blindProtocol{}, &sink{}
			p, err := New(Config{Name: "blind"}, primary, snk, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer p.Release()
			if tt.target != nil {
				if err := p.Bind(tt.target); err != nil {
					t.Fatalf("Bind failed: %v", err)
				}
			}

			for _, from := range []capability.Unknown{p, primary, snk} {
				h, err := from.QueryCapability(capSink)
				if err != nil {
					t.Fatalf("%T: query sink failed: %v", from, err)
				}
				if h != capability.Unknown(snk) {
					t.Fatalf("%T: sink resolved to %T, want the companion", from, h)
				}
				h.Release()
			}

			h, err := p.QueryCapability(capPriority)
			if tt.target == nil {
				if !errors.Is(err, perrors.ErrNotSupported) {
					t.Fatalf("delegated query without target: expected not_supported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("delegated query failed: %v", err)
			}
			if !capability.SameIdentity(h, p) {
				t.Fatal("delegated handle must report the pair's identity")
			}
			h.Release()
		})
	}
}

func TestPair_Abandon(t *testing.T) {
	destroyed := 0
	cfg := Config{Name: "abandoned", OnDestroyed: func(*Pair) { destroyed++ }}

	p, _, _ := newPair(t, cfg, nil)
	p.Abandon()
	if !p.Abandoned() {
		t.Fatal("Abandoned should report true")
	}
	if got := p.RefCount(); got != 1 {
		t.Fatalf("Abandon changed the count to %d", got)
	}
	p.Release()
	if p.State() != Destroyed {
		t.Fatalf("State = %s, want destroyed", p.State())
	}
	if destroyed != 0 {
		t.Fatal("OnDestroyed must not run for an abandoned pair")
	}

	kept, _, _ := newPair(t, cfg, nil)
	kept.Release()
	if destroyed != 1 {
		t.Fatalf("OnDestroyed ran %d times, want 1", destroyed)
	}
}

func TestPair_Debug(t *testing.T) {
	p, proto, _ := newPair(t, Config{Name: "debug", Debug: true}, nil)
	defer p.Release()

	if err := p.Bind(newTarget(capStream, capPriority)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	diags := p.Diagnostics()
	if len(diags) != 1 || diags[0].ID != capStream {
		t.Fatalf("Diagnostics = %v, want one stream conflict", diags)
	}

	h, err := p.QueryCapability(capStream)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer h.Release()
	if h != capability.Unknown(proto) {
		t.Fatal("a conflict must not change resolution")
	}
}

func TestPair_ReuseRejected(t *testing.T) {
	p, proto, snk := newPair(t, Config{}, nil)
	defer p.Release()

	if _, err := New(Config{}, proto, snk, nil); !errors.Is(err, perrors.ErrInvalidState) {
		t.Fatalf("reusing halves: expected invalid_state, got %v", err)
	}
	other := &sink{}
	if _, err := New(Config{}, nil, other, nil); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Fatalf("nil primary: expected invalid_input, got %v", err)
	}
}

func TestPair_Capabilities(t *testing.T) {
	p, _, _ := newPair(t, Config{}, nil)
	defer p.Release()

	got := p.Capabilities()
	want := []capability.ID{
		capability.Identity,
		capability.PassthroughObject,
		capStream,
		capShared,
		capPriority,
		capSink,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Capabilities = %v, want %v", got, want)
	}
}

func TestPair_ReleaseUnderflowPanics(t *testing.T) {
	p, _, _ := newPair(t, Config{}, nil)
	p.Release()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, perrors.ErrUnderflow) {
			t.Fatalf("expected underflow panic, got %v", r)
		}
	}()
	p.Release()
}
