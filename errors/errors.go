package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in an object's life the error occurred
type Phase string

const (
	PhaseQuery    Phase = "query"    // capability resolution
	PhaseBind     Phase = "bind"     // target binding
	PhaseCreate   Phase = "create"   // creation and construction
	PhaseTeardown Phase = "teardown" // teardown hooks
	PhaseRefCount Phase = "refcount" // shared reference count
	PhaseConfig   Phase = "config"   // declarative class configuration
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound                Kind = "not_found"
	KindNotSupported            Kind = "not_supported"
	KindAlreadyBound            Kind = "already_bound"
	KindAggregationNotSupported Kind = "aggregation_not_supported"
	KindMustBeAggregated        Kind = "must_be_aggregated"
	KindInvalidated             Kind = "invalidated"
	KindConstructionFailed      Kind = "construction_failed"
	KindConflictingCapability   Kind = "conflicting_capability"
	KindUnderflow               Kind = "underflow"
	KindInvalidInput            Kind = "invalid_input"
	KindInvalidState            Kind = "invalid_state"
)

// Sentinels for errors.Is. A sentinel has no phase, so it matches an error
// of the same kind raised in any phase.
var (
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrNotSupported            = &Error{Kind: KindNotSupported}
	ErrAlreadyBound            = &Error{Kind: KindAlreadyBound}
	ErrAggregationNotSupported = &Error{Kind: KindAggregationNotSupported}
	ErrMustBeAggregated        = &Error{Kind: KindMustBeAggregated}
	ErrInvalidated             = &Error{Kind: KindInvalidated}
	ErrConstructionFailed      = &Error{Kind: KindConstructionFailed}
	ErrConflictingCapability   = &Error{Kind: KindConflictingCapability}
	ErrUnderflow               = &Error{Kind: KindUnderflow}
	ErrInvalidInput            = &Error{Kind: KindInvalidInput}
	ErrInvalidState            = &Error{Kind: KindInvalidState}
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	Capability string
	Class      string
	Detail     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Class != "" {
		b.WriteString(" in ")
		b.WriteString(e.Class)
	}

	if e.Capability != "" {
		b.WriteString(": capability ")
		b.WriteString(e.Capability)
	}

	if e.Detail != "" {
		if e.Capability != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. An empty phase on the
// target matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && t.Phase != e.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Capability sets the capability the error refers to
func (b *Builder) Capability(id string) *Builder {
	b.err.Capability = id
	return b
}

// Class sets the composed class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// NotFound creates an error for a capability the object does not list
func NotFound(capability string) *Error {
	return &Error{
		Phase:      PhaseQuery,
		Kind:       KindNotFound,
		Capability: capability,
	}
}

// NotSupported creates an error for a forwarded capability the target refuses
// or for a passthrough entry whose target slot is empty.
func NotSupported(capability, detail string, cause error) *Error {
	return &Error{
		Phase:      PhaseQuery,
		Kind:       KindNotSupported,
		Capability: capability,
		Detail:     detail,
		Cause:      cause,
	}
}

// AlreadyBound creates a double-bind error
func AlreadyBound(slot any) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindAlreadyBound,
		Detail: fmt.Sprintf("target slot %v already bound", slot),
		Value:  slot,
	}
}

// AggregationNotSupported is returned when a standalone-only class is given
// an outer controller.
func AggregationNotSupported(class string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindAggregationNotSupported,
		Class:  class,
		Detail: "class cannot be aggregated",
	}
}

// MustBeAggregated is returned when an embedded-only class is created
// without an outer controller.
func MustBeAggregated(class string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindMustBeAggregated,
		Class:  class,
		Detail: "class requires an outer controller",
	}
}

// Invalidated creates an error for use of an object whose teardown has begun
func Invalidated(phase Phase, state string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidated,
		Detail: fmt.Sprintf("object is %s", state),
	}
}

// ConstructionFailed wraps the failure of a construction hook
func ConstructionFailed(class, side string, cause error) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindConstructionFailed,
		Class:  class,
		Detail: fmt.Sprintf("construct %s", side),
		Cause:  cause,
	}
}

// Underflow creates the fatal reference count underflow error
func Underflow(count int32) *Error {
	return &Error{
		Phase:  PhaseRefCount,
		Kind:   KindUnderflow,
		Detail: fmt.Sprintf("reference count dropped to %d", count),
		Value:  count,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidState creates an error for an operation issued in the wrong state
func InvalidState(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Conflict is a single capability that a wrapper implements itself while its
// bound target also supports it.
type Conflict struct {
	Capability string // e.g., "{79EAC9E4-...}" or a registered name
	Slot       uint8  // target slot the conflicting target is bound to
}

// ConflictError is the debug diagnostic reported when a wrapper's own
// capabilities overlap with its target's. It never changes resolution.
type ConflictError struct {
	Class     string
	Conflicts []Conflict
}

// NewConflictError creates an error from the conflicts found in class
func NewConflictError(class string, conflicts []Conflict) *ConflictError {
	return &ConflictError{
		Class:     class,
		Conflicts: conflicts,
	}
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "[query] conflicting_capability: no conflicts recorded"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d conflicting capabilit", len(e.Conflicts))
	if len(e.Conflicts) == 1 {
		b.WriteString("y")
	} else {
		b.WriteString("ies")
	}
	if e.Class != "" {
		b.WriteString(" in ")
		b.WriteString(e.Class)
	}
	b.WriteString(":\n")

	// Group by slot for cleaner output
	bySlot := make(map[uint8][]string)
	var slotOrder []uint8
	for _, c := range e.Conflicts {
		if _, exists := bySlot[c.Slot]; !exists {
			slotOrder = append(slotOrder, c.Slot)
		}
		bySlot[c.Slot] = append(bySlot[c.Slot], c.Capability)
	}

	for _, slot := range slotOrder {
		fmt.Fprintf(&b, "\n  slot %d:\n", slot)
		for _, c := range bySlot[slot] {
			b.WriteString("    - ")
			b.WriteString(c)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *ConflictError) Is(target error) bool {
	if _, ok := target.(*ConflictError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == KindConflictingCapability && (t.Phase == "" || t.Phase == PhaseQuery)
	}
	return false
}
