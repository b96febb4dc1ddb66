package creator

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/registry"
)

// Factory creates instances of one class, each bound to a fresh target from
// its target factory. It keeps a table of the instances still alive.
type Factory struct {
	class   *Class
	creator Creator
	live    *registry.Table
	target  TargetFactory
	handles map[*compose.Pair]registry.Handle
	locks   atomic.Int32
	mu      sync.RWMutex
}

// NewFactory creates a factory for class with no target factory.
func NewFactory(class *Class) (*Factory, error) {
	if err := class.Validate(); err != nil {
		return nil, err
	}
	f := &Factory{
		class:   class,
		live:    registry.NewTable(),
		handles: make(map[*compose.Pair]registry.Handle),
	}
	f.creator = newCreator(class, f.destroyed)
	return f, nil
}

// NewFactoryWithTarget creates a factory whose instances forward to objects
// made by target.
func NewFactoryWithTarget(class *Class, target TargetFactory) (*Factory, error) {
	f, err := NewFactory(class)
	if err != nil {
		return nil, err
	}
	f.SetTargetFactory(target)
	return f, nil
}

// NewFactoryFor creates a factory whose target class is looked up in catalog.
func NewFactoryFor(class *Class, catalog *Catalog, targetClass capability.ID) (*Factory, error) {
	f, err := NewFactory(class)
	if err != nil {
		return nil, err
	}
	if err := f.SetTargetClass(catalog, targetClass); err != nil {
		return nil, err
	}
	return f, nil
}

// Class returns the class the factory builds.
func (f *Factory) Class() *Class { return f.class }

// SetTargetFactory replaces the target factory.
func (f *Factory) SetTargetFactory(target TargetFactory) {
	f.mu.Lock()
	f.target = target
	f.mu.Unlock()
}

// TargetFactory returns the current target factory, or nil.
func (f *Factory) TargetFactory() TargetFactory {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.target
}

// SetTargetClass uses the factory registered under id in catalog as the
// target factory.
func (f *Factory) SetTargetClass(catalog *Catalog, id capability.ID) error {
	if catalog == nil {
		return errors.InvalidInput(errors.PhaseConfig, "catalog cannot be nil")
	}
	target, err := catalog.Lookup(id)
	if err != nil {
		return err
	}
	f.SetTargetFactory(target)
	return nil
}

// CreateInstanceTarget creates one plain target object. The caller owns the
// returned reference.
func (f *Factory) CreateInstanceTarget() (capability.Unknown, error) {
	target := f.TargetFactory()
	if target == nil {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidState).
			Class(f.class.Name).
			Detail("no target factory").
			Build()
	}
	return target.CreateInstance(nil, capability.Identity)
}

// CreateInstance creates an instance, binds a new target to it when a target
// factory is set, and returns the instance's id capability.
//
// An aggregating caller must ask for Identity: the handle it gets back is the
// instance's non-delegating unknown.
func (f *Factory) CreateInstance(outer capability.Unknown, id capability.ID) (capability.Unknown, error) {
	if outer != nil && id != capability.Identity {
		return nil, errors.New(errors.PhaseCreate, errors.KindAggregationNotSupported).
			Class(f.class.Name).
			Capability(capability.Name(id)).
			Detail("aggregation requires querying identity").
			Build()
	}

	var target capability.Unknown
	if f.TargetFactory() != nil {
		t, err := f.CreateInstanceTarget()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCreate, errors.KindConstructionFailed, err, "create target")
		}
		target = t
		defer target.Release()
	}

	pair, err := f.creator.Create(outer)
	if err != nil {
		return nil, err
	}
	f.register(pair)
	defer pair.Release()

	if target != nil {
		if err := bindTarget(pair, target); err != nil {
			return nil, err
		}
	}

	h, err := pair.QueryCapability(id)
	if err != nil {
		return nil, err
	}
	Logger().Debug("instance created",
		zap.String("class", f.class.Name),
		zap.String("capability", capability.Name(id)),
		zap.Bool("aggregated", outer != nil),
		zap.Bool("target", target != nil))
	return h, nil
}

// bindTarget binds through the instance's PassthroughObject capability, the
// same way an external protocol layer would.
func bindTarget(pair *compose.Pair, target capability.Unknown) error {
	h, err := pair.QueryCapability(capability.PassthroughObject)
	if err != nil {
		return err
	}
	defer h.Release()

	binder, ok := capability.As[capability.Binder](h)
	if !ok {
		return errors.NotSupported(capability.Name(capability.PassthroughObject), "handle cannot bind", nil)
	}
	return binder.Bind(target)
}

func (f *Factory) register(pair *compose.Pair) {
	h := f.live.Insert(f.class.Name, pair)
	f.mu.Lock()
	f.handles[pair] = h
	f.mu.Unlock()
}

func (f *Factory) destroyed(pair *compose.Pair) {
	f.mu.Lock()
	h, ok := f.handles[pair]
	delete(f.handles, pair)
	f.mu.Unlock()
	if ok {
		f.live.Remove(h)
	}
}

// Live returns the number of instances not yet destroyed.
func (f *Factory) Live() int {
	return f.live.Len()
}

// Lock pins the factory so CanUnload reports false even with no live
// instances. Each Lock(true) is matched by a Lock(false).
func (f *Factory) Lock(lock bool) {
	if lock {
		f.locks.Add(1)
		return
	}
	if f.locks.Add(-1) < 0 {
		f.locks.Add(1)
		Logger().Warn("unbalanced factory unlock", zap.String("class", f.class.Name))
	}
}

// CanUnload reports whether no instance is alive and no lock is held.
func (f *Factory) CanUnload() bool {
	return f.Live() == 0 && f.locks.Load() == 0
}

// Subscribe observes instances being registered and released.
func (f *Factory) Subscribe(o registry.Observer) (cancel func()) {
	return f.live.Subscribe(o)
}

// Close stops tracking instances and drops the target factory. Instances
// still alive are abandoned: they keep working and their lifetime is their
// own, but their destruction is no longer reported to the factory.
func (f *Factory) Close() error {
	f.SetTargetFactory(nil)
	f.mu.Lock()
	f.handles = make(map[*compose.Pair]registry.Handle)
	f.mu.Unlock()
	return f.live.Close()
}

var (
	_ TargetFactory   = (*Factory)(nil)
	_ registry.Closer = (*compose.Pair)(nil)
)
