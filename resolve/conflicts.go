package resolve

import (
	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Conflict is a capability the wrapper implements locally that its target
// also supports. The wrapper's entry always wins; the conflict is reported
// only so an author can check the override is intended.
type Conflict struct {
	ID   capability.ID
	Slot Slot
}

// CheckConflicts lists capabilities of target that table implements
// locally. Targets that cannot enumerate their capabilities yield nothing.
func CheckConflicts(table *Table, slot Slot, target capability.Unknown) []Conflict {
	enum, ok := capability.As[capability.Enumerator](target)
	if !ok {
		return nil
	}

	var found []Conflict
	for _, id := range enum.Capabilities() {
		if id == capability.Identity {
			continue
		}
		if table.Implements(id) {
			found = append(found, Conflict{ID: id, Slot: slot})
		}
	}
	return found
}

// ConflictError converts conflicts into the diagnostic error type.
func ConflictError(class string, conflicts []Conflict) *errors.ConflictError {
	out := make([]errors.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, errors.Conflict{Capability: capability.Name(c.ID), Slot: uint8(c.Slot)})
	}
	return errors.NewConflictError(class, out)
}
