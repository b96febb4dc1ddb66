package refcount

import (
	"strings"
	"sync/atomic"

	"github.com/wippyai/passthrough/errors"
)

// ThreadModel selects how the shared count is synchronized.
type ThreadModel uint8

const (
	// SingleThreaded performs no synchronization. The caller guarantees
	// exclusive access.
	SingleThreaded ThreadModel = iota
	// FreeThreaded uses atomic operations for every count mutation.
	FreeThreaded
)

func (m ThreadModel) String() string {
	switch m {
	case SingleThreaded:
		return "single"
	case FreeThreaded:
		return "free"
	default:
		return "unknown"
	}
}

// ParseThreadModel parses "single" or "free" (case-insensitive).
func ParseThreadModel(s string) (ThreadModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "single-threaded", "apartment":
		return SingleThreaded, nil
	case "free", "free-threaded", "both":
		return FreeThreaded, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, "unknown thread model "+s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ThreadModel) UnmarshalText(b []byte) error {
	parsed, err := ParseThreadModel(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// counter is the storage behind Shared for one thread model.
type counter interface {
	add(delta int32) int32
	load() int32
	// claim marks the zero transition as handled. Only the first call
	// returns true.
	claim() bool
	claimed() bool
}

func newCounter(model ThreadModel) counter {
	if model == FreeThreaded {
		return &atomicCounter{}
	}
	return &plainCounter{}
}

type plainCounter struct {
	n    int32
	done bool
}

func (c *plainCounter) add(delta int32) int32 {
	c.n += delta
	return c.n
}

func (c *plainCounter) load() int32 { return c.n }

func (c *plainCounter) claim() bool {
	if c.done {
		return false
	}
	c.done = true
	return true
}

func (c *plainCounter) claimed() bool { return c.done }

type atomicCounter struct {
	n    atomic.Int32
	done atomic.Bool
}

func (c *atomicCounter) add(delta int32) int32 {
	return c.n.Add(delta)
}

func (c *atomicCounter) load() int32 { return c.n.Load() }

func (c *atomicCounter) claim() bool {
	return c.done.CompareAndSwap(false, true)
}

func (c *atomicCounter) claimed() bool { return c.done.Load() }
