package resolve

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Targets holds the strong references a wrapper keeps to its targets, one
// per slot. The zero value is ready to use.
type Targets struct {
	slots     map[Slot]capability.Unknown
	check     *Table
	class     string
	conflicts []Conflict
	mu        sync.RWMutex
	released  bool
}

// EnableDiagnostics makes every later bind cross-check the bound target's
// capabilities against the locally implemented entries of table.
func (t *Targets) EnableDiagnostics(table *Table, class string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check = table
	t.class = class
}

// Bind binds the main target.
func (t *Targets) Bind(target capability.Unknown) error {
	return t.BindSlot(SlotTarget, target)
}

// BindSlot stores target in slot and takes a strong reference to it. A slot
// can be bound once.
func (t *Targets) BindSlot(slot Slot, target capability.Unknown) error {
	if target == nil {
		return errors.InvalidInput(errors.PhaseBind, "target cannot be nil")
	}

	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return errors.Invalidated(errors.PhaseBind, "released")
	}
	if _, bound := t.slots[slot]; bound {
		t.mu.Unlock()
		return errors.AlreadyBound(slot)
	}
	if t.slots == nil {
		t.slots = make(map[Slot]capability.Unknown)
	}
	target.AddRef()
	t.slots[slot] = target
	check, class := t.check, t.class
	t.mu.Unlock()

	if check != nil {
		found := CheckConflicts(check, slot, target)
		if len(found) > 0 {
			t.mu.Lock()
			t.conflicts = append(t.conflicts, found...)
			t.mu.Unlock()
			Logger().Warn("target overlaps locally implemented capabilities",
				zap.String("class", class),
				zap.Error(ConflictError(class, found)))
		}
	}
	return nil
}

// Get returns the target in slot without acquiring a reference, or nil.
func (t *Targets) Get(slot Slot) capability.Unknown {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[slot]
}

// Bound reports whether slot holds a target.
func (t *Targets) Bound(slot Slot) bool {
	return t.Get(slot) != nil
}

// Len returns the number of bound slots.
func (t *Targets) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// ReleaseAll drops every strong reference in slot order and refuses later
// binds. It returns the number of references released.
func (t *Targets) ReleaseAll() int {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return 0
	}
	t.released = true
	slots := make([]Slot, 0, len(t.slots))
	for s := range t.slots {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	held := make([]capability.Unknown, 0, len(slots))
	for _, s := range slots {
		held = append(held, t.slots[s])
	}
	t.slots = nil
	t.mu.Unlock()

	// Release outside the lock; a target may call back into its wrapper.
	for _, h := range held {
		h.Release()
	}
	return len(held)
}

// Released reports whether ReleaseAll ran.
func (t *Targets) Released() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.released
}

// Diagnostics returns the conflicts found at bind time.
func (t *Targets) Diagnostics() []Conflict {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Conflict, len(t.conflicts))
	copy(out, t.conflicts)
	return out
}
