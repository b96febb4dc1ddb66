package capability

import (
	"sort"
	"sync"

	"github.com/wippyai/passthrough/errors"
)

// WrapFunc builds a typed forwarding handle for one capability. forwarder
// carries the composed identity and reference counting; raw is the target's
// handle that behavior calls are forwarded to.
type WrapFunc func(forwarder, raw Unknown) Unknown

// Descriptor describes a capability known to the process.
type Descriptor struct {
	Wrap WrapFunc
	Name string
	ID   ID
}

type catalog struct {
	byID   map[ID]Descriptor
	byName map[string]ID
	mu     sync.RWMutex
}

var descriptors = &catalog{
	byID:   make(map[ID]Descriptor),
	byName: make(map[string]ID),
}

func init() {
	descriptors.byID[Identity] = Descriptor{ID: Identity, Name: "identity"}
	descriptors.byName["identity"] = Identity
	descriptors.byID[PassthroughObject] = Descriptor{ID: PassthroughObject, Name: "passthrough-object"}
	descriptors.byName["passthrough-object"] = PassthroughObject
}

// Register adds or replaces a descriptor. Names are unique.
func Register(d Descriptor) error {
	if d.ID.IsZero() {
		return errors.InvalidInput(errors.PhaseConfig, "descriptor id cannot be zero")
	}

	descriptors.mu.Lock()
	defer descriptors.mu.Unlock()

	if d.Name != "" {
		if other, ok := descriptors.byName[d.Name]; ok && other != d.ID {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Capability(d.ID.String()).
				Detail("name %q already registered for %s", d.Name, other).
				Build()
		}
	}

	if prev, ok := descriptors.byID[d.ID]; ok && prev.Name != "" && prev.Name != d.Name {
		delete(descriptors.byName, prev.Name)
	}
	descriptors.byID[d.ID] = d
	if d.Name != "" {
		descriptors.byName[d.Name] = d.ID
	}
	return nil
}

// MustRegister is like Register but panics on error. Intended for package
// level var blocks.
func MustRegister(d Descriptor) ID {
	if err := Register(d); err != nil {
		panic(err)
	}
	return d.ID
}

// Intern returns the id registered under name, registering name under
// NameID(name) when it is new. An id that already carries another name
// keeps it. The empty name is never registered.
func Intern(name string) ID {
	if name == "" {
		return NameID(name)
	}

	descriptors.mu.Lock()
	defer descriptors.mu.Unlock()

	if id, ok := descriptors.byName[name]; ok {
		return id
	}
	id := NameID(name)
	d, ok := descriptors.byID[id]
	if ok && d.Name != "" {
		return id
	}
	d.ID = id
	d.Name = name
	descriptors.byID[id] = d
	descriptors.byName[name] = id
	return id
}

// Lookup returns the descriptor registered for id.
func Lookup(id ID) (Descriptor, bool) {
	descriptors.mu.RLock()
	defer descriptors.mu.RUnlock()
	d, ok := descriptors.byID[id]
	return d, ok
}

// ByName returns the id registered under name.
func ByName(name string) (ID, bool) {
	descriptors.mu.RLock()
	defer descriptors.mu.RUnlock()
	id, ok := descriptors.byName[name]
	return id, ok
}

// Name returns the registered name of id, or its canonical string.
func Name(id ID) string {
	if d, ok := Lookup(id); ok && d.Name != "" {
		return d.Name
	}
	return id.String()
}

// FromRef turns a name or a literal id into an ID. Unregistered names map to
// NameID(name).
func FromRef(ref string) ID {
	if id, ok := ByName(ref); ok {
		return id
	}
	if id, err := Parse(ref); err == nil {
		return id
	}
	return NameID(ref)
}

// Descriptors returns all registered descriptors sorted by name.
func Descriptors() []Descriptor {
	descriptors.mu.RLock()
	out := make([]Descriptor, 0, len(descriptors.byID))
	for _, d := range descriptors.byID {
		out = append(out, d)
	}
	descriptors.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
