package registry

import (
	"sync"
)

// Table tracks live objects and notifies observers as they come and go.
type Table struct {
	backend   *LocalBackend
	observers map[uint64]Observer
	nextObs   uint64
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend:   NewLocalBackend(),
		observers: make(map[uint64]Observer),
	}
}

// Insert registers a value and returns its handle, or 0 once closed.
func (t *Table) Insert(class string, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(class, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventRegistered,
		Handle: handle,
		Class:  class,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetClass retrieves a value only if it was registered under class.
func (t *Table) GetClass(handle Handle, class string) (any, bool) {
	actual, ok := t.backend.Class(handle)
	if !ok || actual != class {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove unregisters a value and returns it.
func (t *Table) Remove(handle Handle) (any, bool) {
	class, _ := t.backend.Class(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Class:  class,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer and returns a function that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live objects until fn returns false.
func (t *Table) Each(fn func(Handle, string, any) bool) {
	t.backend.Each(fn)
}

// Close stops accepting objects. Values still registered are told they
// were abandoned; their lifetime remains governed by their own counts.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	for _, v := range t.backend.Close() {
		if c, ok := v.(Closer); ok {
			c.Abandon()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := make([]Observer, 0, len(t.observers))
	for _, o := range t.observers {
		observers = append(observers, o)
	}
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnObjectEvent(e)
	}
}
