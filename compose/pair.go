package compose

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/refcount"
	"github.com/wippyai/passthrough/resolve"
)

// Config describes how a pair is created.
type Config struct {
	// OnDestroyed runs after the pair's shared count has been freed. It is
	// not called for a pair whose construction failed or that was abandoned.
	OnDestroyed func(*Pair)
	// Name identifies the class in errors and logs.
	Name        string
	Mode        OwnershipMode
	ThreadModel refcount.ThreadModel
	// Debug cross-checks every bound target against the half's table.
	Debug bool
}

// Pair owns a Primary and a Companion that share one reference count and
// one identity. The pair itself is the non-delegating unknown: its
// QueryCapability, AddRef and Release act on the pair even when it is
// aggregated.
type Pair struct {
	halves      [2]Object
	outer       capability.Unknown
	shared      *refcount.Shared
	binder      *binder
	cfg         Config
	state       atomic.Int32
	live        atomic.Bool
	tornDown    atomic.Bool
	abandoned   atomic.Bool
	constructed [2]bool
}

// New composes primary and companion into a pair. When outer is non-nil the
// pair is aggregated: outer becomes the controlling unknown and is held
// without a reference.
//
// On success the pair is Live and holds one reference for the caller. The
// ownership guard runs before anything is attached, so a refused creation
// leaves both objects untouched.
func New(cfg Config, primary, companion Object, outer capability.Unknown) (*Pair, error) {
	if !cfg.Mode.Accepts(outer != nil) {
		if outer != nil {
			return nil, errors.AggregationNotSupported(cfg.Name)
		}
		return nil, errors.MustBeAggregated(cfg.Name)
	}
	if primary == nil || companion == nil {
		return nil, errors.InvalidInput(errors.PhaseCreate, "pair needs both a primary and a companion")
	}
	if primary.base() == companion.base() {
		return nil, errors.InvalidInput(errors.PhaseCreate, "primary and companion must be distinct objects")
	}
	if primary.base().pair != nil || companion.base().pair != nil {
		return nil, errors.InvalidState(errors.PhaseCreate, "object already belongs to a pair")
	}

	p := &Pair{
		halves: [2]Object{primary, companion},
		outer:  outer,
		cfg:    cfg,
	}
	p.binder = &binder{p: p}
	p.shared = refcount.New(cfg.ThreadModel, p.Controlling(), p.teardown)

	for side, o := range p.halves {
		b := o.base()
		b.pair = p
		b.side = Side(side)
		if cfg.Debug {
			b.targets.EnableDiagnostics(o.Capabilities(), cfg.Name)
		}
	}

	if err := p.construct(); err != nil {
		Logger().Debug("pair construction failed", zap.String("class", cfg.Name), zap.Error(err))
		p.teardown()
		p.shared.Release()
		return nil, err
	}

	p.state.Store(int32(Live))
	p.live.Store(true)
	Logger().Debug("pair live",
		zap.String("class", cfg.Name),
		zap.Stringer("mode", cfg.Mode),
		zap.Bool("aggregated", outer != nil))
	return p, nil
}

func (p *Pair) construct() error {
	p.state.Store(int32(Constructing))
	for _, side := range [2]Side{SidePrimary, SideCompanion} {
		if c, ok := p.halves[side].(Constructor); ok {
			if err := c.Construct(); err != nil {
				return errors.ConstructionFailed(p.cfg.Name, side.String(), err)
			}
		}
		p.constructed[side] = true
	}
	return nil
}

// QueryCapability is the non-delegating query: Primary's table first, then
// Companion's.
func (p *Pair) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return p.query(SidePrimary, id)
}

// AddRef acquires a reference on the shared count.
func (p *Pair) AddRef() int32 {
	return p.shared.Acquire()
}

// Release drops a reference on the shared count. The release that reaches
// zero tears the pair down.
func (p *Pair) Release() int32 {
	n, last := p.shared.Release()
	if last && p.live.Load() && !p.abandoned.Load() && p.cfg.OnDestroyed != nil {
		p.cfg.OnDestroyed(p)
	}
	return n
}

func (p *Pair) query(first Side, id capability.ID) (capability.Unknown, error) {
	if s := p.State(); !s.serviceable() {
		return nil, errors.Invalidated(errors.PhaseQuery, s.String())
	}

	switch id {
	case capability.Identity:
		p.AddRef()
		return p, nil
	case capability.PassthroughObject:
		p.binder.AddRef()
		return p.binder, nil
	}

	// Entries either half lists win over a delegate entry on either half.
	controlling := p.Controlling()
	sides := [2]Side{first, first.other()}
	var notFound error
	for _, pass := range [2]func(resolve.Wrapper, capability.Unknown, capability.ID) (capability.Unknown, error){
		resolve.ResolveListed,
		resolve.ResolveDelegated,
	} {
		for _, side := range sides {
			h, err := pass(p.halves[side], controlling, id)
			if err == nil {
				return h, nil
			}
			if k, _ := errors.KindOf(err); k != errors.KindNotFound {
				return nil, err
			}
			if notFound == nil {
				notFound = err
			}
		}
	}
	return nil, notFound
}

// Controlling returns the unknown that owns the pair's identity: the outer
// controller when aggregated, the pair otherwise.
func (p *Pair) Controlling() capability.Unknown {
	if p.outer != nil {
		return p.outer
	}
	return p
}

// Bind binds target to Primary's default slot.
//
// A target may be bound while the pair is Constructing, typically from a
// Construct hook, or once it is Live, as a factory does right after
// creation. Each slot accepts one target; a second Bind fails with
// already_bound. Binding once teardown has begun fails with invalidated.
func (p *Pair) Bind(target capability.Unknown) error {
	return p.BindSlot(SidePrimary, resolve.SlotTarget, target)
}

// BindSlot binds target to slot on one half, with the same rules as Bind.
func (p *Pair) BindSlot(side Side, slot resolve.Slot, target capability.Unknown) error {
	if s := p.State(); s == TearingDown || s == Destroyed {
		return errors.Invalidated(errors.PhaseBind, s.String())
	}
	if err := p.halves[side].Targets().BindSlot(slot, target); err != nil {
		return err
	}
	Logger().Debug("target bound",
		zap.String("class", p.cfg.Name),
		zap.Stringer("side", side),
		zap.Uint8("slot", uint8(slot)))
	return nil
}

// Abandon stops the pair from reporting back to its creator: OnDestroyed
// will not run. The pair's lifetime is unaffected.
func (p *Pair) Abandon() { p.abandoned.Store(true) }

// Abandoned reports whether Abandon was called.
func (p *Pair) Abandoned() bool { return p.abandoned.Load() }

// Primary returns the primary half.
func (p *Pair) Primary() Object { return p.halves[SidePrimary] }

// Companion returns the companion half.
func (p *Pair) Companion() Object { return p.halves[SideCompanion] }

func (p *Pair) object(side Side) Object { return p.halves[side] }

// Outer returns the outer controller, or nil.
func (p *Pair) Outer() capability.Unknown { return p.outer }

// Aggregated reports whether the pair lives inside an outer controller.
func (p *Pair) Aggregated() bool { return p.outer != nil }

// Name returns the configured class name.
func (p *Pair) Name() string { return p.cfg.Name }

// Mode returns the ownership mode the pair was created with.
func (p *Pair) Mode() OwnershipMode { return p.cfg.Mode }

// ThreadModel returns the shared count's threading model.
func (p *Pair) ThreadModel() refcount.ThreadModel { return p.cfg.ThreadModel }

// State returns the current lifecycle state.
func (p *Pair) State() State { return State(p.state.Load()) }

// RefCount returns the shared count.
func (p *Pair) RefCount() int32 { return p.shared.Count() }

// Diagnostics returns the capability overlaps found while binding targets.
// It is empty unless the pair was created with Debug.
func (p *Pair) Diagnostics() []resolve.Conflict {
	var out []resolve.Conflict
	for _, o := range p.halves {
		out = append(out, o.Targets().Diagnostics()...)
	}
	return out
}

// Capabilities lists the ids the pair declares: identity, the binder and
// every id in either half's table.
func (p *Pair) Capabilities() []capability.ID {
	ids := []capability.ID{capability.Identity, capability.PassthroughObject}
	seen := map[capability.ID]bool{capability.Identity: true, capability.PassthroughObject: true}
	for _, o := range p.halves {
		for _, e := range o.Capabilities().Entries() {
			if !seen[e.ID] {
				seen[e.ID] = true
				ids = append(ids, e.ID)
			}
		}
	}
	return ids
}

// binder is the pair's PassthroughObject view. Its unknown delegates to the
// controlling unknown like any other interface of the pair.
type binder struct {
	p *Pair
}

func (b *binder) QueryCapability(id capability.ID) (capability.Unknown, error) {
	return b.p.Controlling().QueryCapability(id)
}

func (b *binder) AddRef() int32 { return b.p.Controlling().AddRef() }

func (b *binder) Release() int32 { return b.p.Controlling().Release() }

func (b *binder) Bind(target capability.Unknown) error { return b.p.Bind(target) }

var (
	_ capability.Unknown    = (*Pair)(nil)
	_ capability.Enumerator = (*Pair)(nil)
	_ capability.Binder     = (*binder)(nil)
)
