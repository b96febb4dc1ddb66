package creator

import (
	"strings"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/errors"
)

// Strategy is the creation policy a class declares. The zero value, Either,
// is what a class gets when it declares nothing.
type Strategy uint8

const (
	// Either creates a plain pair without an outer controller and an
	// aggregated one with it.
	Either Strategy = iota
	// PlainOnly refuses an outer controller.
	PlainOnly
	// AggregationOnly requires an outer controller.
	AggregationOnly
)

func (s Strategy) String() string {
	switch s {
	case Either:
		return "either"
	case PlainOnly:
		return "plain-only"
	case AggregationOnly:
		return "aggregation-only"
	default:
		return "unknown"
	}
}

// Mode returns the ownership mode pairs created under s are given.
func (s Strategy) Mode() compose.OwnershipMode {
	switch s {
	case PlainOnly:
		return compose.Standalone
	case AggregationOnly:
		return compose.EmbeddedOnly
	default:
		return compose.EmbeddableOptional
	}
}

// ParseStrategy parses a strategy name. The empty string is Either.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "either", "dual":
		return Either, nil
	case "plain-only", "plain":
		return PlainOnly, nil
	case "aggregation-only", "aggregation", "aggregate":
		return AggregationOnly, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, "unknown creation strategy "+s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	parsed, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Creator makes pairs. outer is nil for a plain pair.
type Creator interface {
	Create(outer capability.Unknown) (*compose.Pair, error)
}

// objectCreator builds a pair from a class in one fixed mode.
type objectCreator struct {
	class       *Class
	onDestroyed func(*compose.Pair)
	mode        compose.OwnershipMode
}

func (c *objectCreator) Create(outer capability.Unknown) (*compose.Pair, error) {
	cfg := compose.Config{
		Name:        c.class.Name,
		Mode:        c.mode,
		ThreadModel: c.class.ThreadModel,
		Debug:       c.class.Debug,
		OnDestroyed: c.onDestroyed,
	}
	return compose.New(cfg, c.class.NewPrimary(), c.class.NewCompanion(), outer)
}

// failCreator refuses every request with the same error kind.
type failCreator struct {
	class string
	kind  errors.Kind
}

func (c *failCreator) Create(capability.Unknown) (*compose.Pair, error) {
	switch c.kind {
	case errors.KindAggregationNotSupported:
		return nil, errors.AggregationNotSupported(c.class)
	case errors.KindMustBeAggregated:
		return nil, errors.MustBeAggregated(c.class)
	default:
		return nil, errors.New(errors.PhaseCreate, c.kind).Class(c.class).Build()
	}
}

// dualCreator picks plain or aggregated creation by the presence of an
// outer controller.
type dualCreator struct {
	plain     Creator
	aggregate Creator
}

func (c *dualCreator) Create(outer capability.Unknown) (*compose.Pair, error) {
	if outer == nil {
		return c.plain.Create(outer)
	}
	return c.aggregate.Create(outer)
}

// newCreator builds the creator for a class. The strategy is read here,
// once; later changes to the class do not affect an existing creator.
func newCreator(class *Class, onDestroyed func(*compose.Pair)) Creator {
	object := func(mode compose.OwnershipMode) Creator {
		return &objectCreator{class: class, mode: mode, onDestroyed: onDestroyed}
	}

	strategy := class.Strategy
	switch strategy {
	case PlainOnly:
		return &dualCreator{
			plain:     object(strategy.Mode()),
			aggregate: &failCreator{class: class.Name, kind: errors.KindAggregationNotSupported},
		}
	case AggregationOnly:
		return &dualCreator{
			plain:     &failCreator{class: class.Name, kind: errors.KindMustBeAggregated},
			aggregate: object(strategy.Mode()),
		}
	default:
		mode := Either.Mode()
		return &dualCreator{plain: object(mode), aggregate: object(mode)}
	}
}
