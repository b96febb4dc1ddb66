package registry

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("registry closed")

// LocalBackend is an in-memory slot arena with handle reuse.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	class string
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(class string, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		class: class,
		value: value,
		valid: true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Class returns the class name recorded for a handle.
func (b *LocalBackend) Class(handle Handle) (string, bool) {
	e, ok := b.lookup(handle)
	if !ok {
		return "", false
	}
	return e.class, true
}

func (b *LocalBackend) lookup(handle Handle) (entry, bool) {
	if handle == 0 {
		return entry{}, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return entry{}, false
	}

	e := b.entries[idx]
	if !e.valid {
		return entry{}, false
	}
	return e, true
}

// Drop removes an entry and returns its value.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return nil, false
	}

	e := &b.entries[idx]
	if !e.valid {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	e.class = ""
	b.freeList = append(b.freeList, handle)

	return value, true
}

// Close marks the backend closed and returns the values still registered.
func (b *LocalBackend) Close() []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var remaining []any
	for i := range b.entries {
		if b.entries[i].valid {
			remaining = append(remaining, b.entries[i].value)
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	return remaining
}

// Len returns the number of live entries.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live entries.
func (b *LocalBackend) Each(fn func(Handle, string, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.class, e.value) {
				break
			}
		}
	}
}
