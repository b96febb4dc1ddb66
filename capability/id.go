package capability

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wippyai/passthrough/errors"
)

// ID is a globally unique 128-bit capability identifier.
type ID uuid.UUID

// Zero is the zero ID. It never names a capability.
var Zero ID

// namespace is the name-based UUID namespace used by NameID.
var namespace = uuid.MustParse("7c1e4a52-9d3b-5f08-a6e2-3b9c0d41f5a7")

// Well-known capability ids.
var (
	// Identity is the capability every object exposes. Two queries for it on
	// the same object return the same handle.
	Identity = MustParse("{00000000-0000-0000-C000-000000000046}")

	// PassthroughObject is the capability through which a wrapper accepts
	// its target.
	PassthroughObject = MustParse("{C38D254C-4C40-4192-A746-AC6FE519831E}")
)

// Parse parses an id in canonical form, with or without surrounding braces.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	u, err := uuid.Parse(s)
	if err != nil {
		return Zero, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse capability id")
	}
	return ID(u), nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NameID derives a stable id from a capability name.
func NameID(name string) ID {
	return ID(uuid.NewSHA1(namespace, []byte(name)))
}

// String returns the braced, upper-case canonical form.
func (id ID) String() string {
	return "{" + strings.ToUpper(uuid.UUID(id).String()) + "}"
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool {
	return id == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
