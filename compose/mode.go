package compose

import (
	"strings"

	"github.com/wippyai/passthrough/errors"
)

// OwnershipMode says whether a pair may, must, or must not be aggregated by
// an outer controller.
type OwnershipMode uint8

const (
	// Standalone pairs are their own identity; an outer controller is refused.
	Standalone OwnershipMode = iota
	// EmbeddedOnly pairs must be created inside an outer controller.
	EmbeddedOnly
	// EmbeddableOptional pairs aggregate when an outer controller is given.
	EmbeddableOptional
)

func (m OwnershipMode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case EmbeddedOnly:
		return "embedded-only"
	case EmbeddableOptional:
		return "embeddable-optional"
	default:
		return "unknown"
	}
}

// Accepts reports whether the mode permits creation with or without an outer
// controller.
func (m OwnershipMode) Accepts(aggregated bool) bool {
	switch m {
	case Standalone:
		return !aggregated
	case EmbeddedOnly:
		return aggregated
	case EmbeddableOptional:
		return true
	default:
		return false
	}
}

// ParseOwnershipMode parses a mode name.
func ParseOwnershipMode(s string) (OwnershipMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standalone", "plain":
		return Standalone, nil
	case "embedded-only", "embedded", "aggregated":
		return EmbeddedOnly, nil
	case "embeddable-optional", "embeddable", "optional", "either":
		return EmbeddableOptional, nil
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, "unknown ownership mode "+s)
}

// State is a pair's position in its lifecycle.
type State int32

const (
	Uncreated State = iota
	Constructing
	Live
	TearingDown
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uncreated:
		return "uncreated"
	case Constructing:
		return "constructing"
	case Live:
		return "live"
	case TearingDown:
		return "tearing-down"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// serviceable reports whether queries may be answered. Construction hooks
// run before the pair is Live and may query it.
func (s State) serviceable() bool {
	return s == Constructing || s == Live
}

// Side names one half of a pair.
type Side uint8

const (
	SidePrimary Side = iota
	SideCompanion
)

func (s Side) String() string {
	if s == SideCompanion {
		return "companion"
	}
	return "primary"
}

func (s Side) other() Side {
	return 1 - s
}
