package resolve

import (
	"fmt"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Kind says how a table entry is satisfied.
type Kind uint8

const (
	// KindLocal entries are implemented by the wrapper itself.
	KindLocal Kind = iota
	// KindForward entries are forwarded to a bound target.
	KindForward
	// KindDelegate is the fallback entry that forwards any capability the
	// table does not list.
	KindDelegate
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindForward:
		return "forward"
	case KindDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Slot names the place inside a wrapper where a target is bound.
type Slot uint8

// SlotTarget is the wrapper's main target.
const SlotTarget Slot = 0

// Provider returns the handle implementing a local capability. It must not
// acquire a reference; the resolver does.
type Provider func(w Wrapper) capability.Unknown

// Entry maps one capability to either a local implementation or a target.
type Entry struct {
	Provide Provider
	ID      capability.ID
	// Alias, when set on a forward entry, is the capability queried on the
	// target instead of ID.
	Alias capability.ID
	Kind  Kind
	Slot  Slot
}

// Local declares a capability implemented by the wrapper itself.
func Local(id capability.ID) Entry {
	return Entry{ID: id, Kind: KindLocal}
}

// Provide declares a local capability implemented by a handle other than
// the wrapper, such as an embedded helper.
func Provide(id capability.ID, fn Provider) Entry {
	return Entry{ID: id, Kind: KindLocal, Provide: fn}
}

// Forward declares a capability forwarded to the target bound in slot.
func Forward(id capability.ID, slot Slot) Entry {
	return Entry{ID: id, Kind: KindForward, Slot: slot}
}

// ForwardAs declares a capability forwarded to the target bound in slot,
// where the target is asked for alias instead.
func ForwardAs(id capability.ID, slot Slot, alias capability.ID) Entry {
	return Entry{ID: id, Kind: KindForward, Slot: slot, Alias: alias}
}

// DelegateAll forwards every capability the table does not list to the
// target in slot.
func DelegateAll(slot Slot) Entry {
	return Entry{Kind: KindDelegate, Slot: slot}
}

// QueryID returns the id to ask the target for.
func (e Entry) QueryID() capability.ID {
	if !e.Alias.IsZero() {
		return e.Alias
	}
	return e.ID
}

// Table is an immutable capability table. It is safe for concurrent reads.
type Table struct {
	index    map[capability.ID]int
	delegate *Entry
	entries  []Entry
}

// NewTable validates entries and builds a table.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{
		index:   make(map[capability.ID]int, len(entries)),
		entries: make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		if err := t.add(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Tables are declared next
// to the wrapper type, so a bad table is a programming error.
func MustTable(entries ...Entry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Extend builds a table whose own entries shadow the entries of base.
func Extend(base *Table, entries ...Entry) (*Table, error) {
	t, err := NewTable(entries...)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return t, nil
	}
	for _, e := range base.entries {
		if _, shadowed := t.index[e.ID]; shadowed {
			continue
		}
		t.index[e.ID] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	if t.delegate == nil && base.delegate != nil {
		d := *base.delegate
		t.delegate = &d
	}
	return t, nil
}

func (t *Table) add(e Entry) error {
	if e.Kind == KindDelegate {
		if t.delegate != nil {
			return errors.InvalidInput(errors.PhaseConfig, "table declares more than one delegate entry")
		}
		d := e
		t.delegate = &d
		return nil
	}

	if e.ID.IsZero() {
		return errors.InvalidInput(errors.PhaseConfig, "table entry has zero capability id")
	}
	if e.ID == capability.Identity {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Capability(e.ID.String()).
			Detail("identity is answered by the composed object and cannot be listed").
			Build()
	}
	if e.Kind == KindLocal && !e.Alias.IsZero() {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Capability(capability.Name(e.ID)).
			Detail("local entry cannot carry an alias").
			Build()
	}
	if _, dup := t.index[e.ID]; dup {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Capability(capability.Name(e.ID)).
			Detail("duplicate table entry").
			Build()
	}

	t.index[e.ID] = len(t.entries)
	t.entries = append(t.entries, e)
	return nil
}

// Lookup returns the entry listed for id.
func (t *Table) Lookup(id capability.ID) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Delegate returns the fallback entry, if declared.
func (t *Table) Delegate() (Entry, bool) {
	if t == nil || t.delegate == nil {
		return Entry{}, false
	}
	return *t.delegate, true
}

// Implements reports whether id is implemented locally.
func (t *Table) Implements(id capability.ID) bool {
	e, ok := t.Lookup(id)
	return ok && e.Kind == KindLocal
}

// Entries returns a copy of the listed entries in declaration order. The
// delegate entry is not included.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of listed entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
