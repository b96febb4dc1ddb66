package creator

import (
	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/refcount"
)

// Class declares how to build one kind of composed object.
type Class struct {
	// NewPrimary and NewCompanion return fresh, unattached halves.
	NewPrimary   func() compose.Object
	NewCompanion func() compose.Object
	Name         string
	ID           capability.ID
	Strategy     Strategy
	ThreadModel  refcount.ThreadModel
	Debug        bool
}

// Validate checks that the class can build pairs.
func (c *Class) Validate() error {
	if c == nil {
		return errors.InvalidInput(errors.PhaseConfig, "class is nil")
	}
	if c.NewPrimary == nil || c.NewCompanion == nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Class(c.Name).
			Detail("class needs both a primary and a companion constructor").
			Build()
	}
	return nil
}

// Creator returns the creator selected by the class's strategy.
func (c *Class) Creator() Creator {
	return newCreator(c, nil)
}

// Create builds a pair. outer is nil for a plain pair.
func (c *Class) Create(outer capability.Unknown) (*compose.Pair, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c.Creator().Create(outer)
}
