package manifest

import (
	"bytes"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/creator"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/refcount"
	"github.com/wippyai/passthrough/resolve"
)

// Manifest declares a composed class.
type Manifest struct {
	Name        string               `yaml:"class"`
	ID          string               `yaml:"id,omitempty"`
	Primary     Half                 `yaml:"primary"`
	Companion   Half                 `yaml:"companion"`
	Target      TargetDecl           `yaml:"target,omitempty"`
	Strategy    creator.Strategy     `yaml:"strategy,omitempty"`
	ThreadModel refcount.ThreadModel `yaml:"thread_model,omitempty"`
	Debug       bool                 `yaml:"debug,omitempty"`
}

// Half declares one side's capability table.
type Half struct {
	Implements  []string      `yaml:"implements,omitempty"`
	Passthrough []Passthrough `yaml:"passthrough,omitempty"`
	DelegateAll bool          `yaml:"delegate_all,omitempty"`
}

// Passthrough declares one forwarded capability.
type Passthrough struct {
	Capability string `yaml:"capability"`
	Alias      string `yaml:"alias,omitempty"`
	Slot       uint8  `yaml:"slot,omitempty"`
}

// TargetDecl declares the synthetic target's capabilities.
type TargetDecl struct {
	Implements []string `yaml:"implements,omitempty"`
}

// Load decodes a manifest from r. Unknown fields are rejected.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Parse decodes a manifest from data.
func Parse(data []byte) (*Manifest, error) {
	return Load(bytes.NewReader(data))
}

// LoadFile decodes the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open manifest")
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the manifest and that its tables build.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.InvalidInput(errors.PhaseConfig, "manifest has no class name")
	}
	if m.ID != "" {
		if _, err := capability.Parse(m.ID); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Class(m.Name).
				Cause(err).
				Detail("invalid class id %q", m.ID).
				Build()
		}
	}
	if _, _, err := m.Tables(); err != nil {
		return err
	}
	for _, ref := range m.Target.Implements {
		if strings.TrimSpace(ref) == "" {
			return errors.InvalidInput(errors.PhaseConfig, "target lists an empty capability")
		}
	}
	return nil
}

// ClassID returns the declared class id, or one derived from the class name.
func (m *Manifest) ClassID() capability.ID {
	if m.ID != "" {
		if id, err := capability.Parse(m.ID); err == nil {
			return id
		}
	}
	return capability.NameID(m.Name)
}

// Tables builds the primary and companion capability tables.
func (m *Manifest) Tables() (primary, companion *resolve.Table, err error) {
	primary, err = m.Primary.table(m.Name, "primary")
	if err != nil {
		return nil, nil, err
	}
	companion, err = m.Companion.table(m.Name, "companion")
	if err != nil {
		return nil, nil, err
	}
	return primary, companion, nil
}

func (h Half) table(class, side string) (*resolve.Table, error) {
	entries := make([]resolve.Entry, 0, len(h.Implements)+len(h.Passthrough)+1)
	for _, ref := range h.Implements {
		entries = append(entries, resolve.Local(Ref(ref)))
	}
	for _, p := range h.Passthrough {
		if strings.TrimSpace(p.Capability) == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Class(class).
				Detail("%s passthrough entry has no capability", side).
				Build()
		}
		slot := resolve.Slot(p.Slot)
		if p.Alias != "" {
			entries = append(entries, resolve.ForwardAs(Ref(p.Capability), slot, Ref(p.Alias)))
		} else {
			entries = append(entries, resolve.Forward(Ref(p.Capability), slot))
		}
	}
	if h.DelegateAll {
		entries = append(entries, resolve.DelegateAll(resolve.SlotTarget))
	}

	t, err := resolve.NewTable(entries...)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Class(class).
			Cause(err).
			Detail("%s table", side).
			Build()
	}
	return t, nil
}

// Ref resolves a capability reference, a registered name or a literal id.
// A name seen for the first time is registered so it prints by name.
func Ref(ref string) capability.ID {
	ref = strings.TrimSpace(ref)
	if id, err := capability.Parse(ref); err == nil {
		return id
	}
	return capability.Intern(ref)
}
