package creator

import (
	"sort"
	"sync"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// TargetFactory creates the objects a wrapper forwards to.
type TargetFactory interface {
	CreateInstance(outer capability.Unknown, id capability.ID) (capability.Unknown, error)
}

// TargetFunc adapts a function to TargetFactory.
type TargetFunc func(outer capability.Unknown, id capability.ID) (capability.Unknown, error)

// CreateInstance calls f.
func (f TargetFunc) CreateInstance(outer capability.Unknown, id capability.ID) (capability.Unknown, error) {
	return f(outer, id)
}

// Catalog maps class ids to the factories that build them.
type Catalog struct {
	classes map[capability.ID]TargetFactory
	mu      sync.RWMutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{classes: make(map[capability.ID]TargetFactory)}
}

// Register adds a factory under id.
func (c *Catalog) Register(id capability.ID, f TargetFactory) error {
	if id.IsZero() {
		return errors.InvalidInput(errors.PhaseConfig, "class id cannot be zero")
	}
	if f == nil {
		return errors.InvalidInput(errors.PhaseConfig, "factory cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.classes[id]; exists {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Capability(id.String()).
			Detail("class already registered").
			Build()
	}
	c.classes[id] = f
	return nil
}

// Unregister removes the factory registered under id.
func (c *Catalog) Unregister(id capability.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.classes[id]; !ok {
		return false
	}
	delete(c.classes, id)
	return true
}

// Lookup returns the factory registered under id.
func (c *Catalog) Lookup(id capability.ID) (TargetFactory, error) {
	c.mu.RLock()
	f, ok := c.classes[id]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.PhaseCreate, errors.KindNotFound).
			Capability(id.String()).
			Detail("class not registered").
			Build()
	}
	return f, nil
}

// IDs returns the registered class ids in string order.
func (c *Catalog) IDs() []capability.ID {
	c.mu.RLock()
	ids := make([]capability.ID, 0, len(c.classes))
	for id := range c.classes {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
