package resolve

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// Wrapper is an object with a capability table and bound targets.
type Wrapper interface {
	Capabilities() *Table
	Targets() *Targets
}

// Resolve answers a capability query on w.
//
// Identity resolves to controlling. A locally implemented entry resolves to
// the wrapper's own handle. A forward entry, or any unlisted id when the
// table declares a delegate entry, is asked of the target and returned
// behind a forwarding handle whose identity is controlling. Anything else
// is not_found.
//
// The returned handle carries one reference for the caller.
func Resolve(w Wrapper, controlling capability.Unknown, id capability.ID) (capability.Unknown, error) {
	h, err := ResolveListed(w, controlling, id)
	if !isNotFound(err) {
		return h, err
	}
	return ResolveDelegated(w, controlling, id)
}

// ResolveListed is Resolve without the delegate entry: only Identity and the
// ids w's table lists are answered.
func ResolveListed(w Wrapper, controlling capability.Unknown, id capability.ID) (capability.Unknown, error) {
	if id == capability.Identity {
		controlling.AddRef()
		return controlling, nil
	}

	if e, ok := w.Capabilities().Lookup(id); ok {
		switch e.Kind {
		case KindLocal:
			return local(w, e)
		case KindForward:
			return forward(w, controlling, e.Slot, e.QueryID(), id)
		}
	}
	return nil, errors.NotFound(capability.Name(id))
}

// ResolveDelegated forwards id through w's delegate entry. Tables without
// one yield not_found.
func ResolveDelegated(w Wrapper, controlling capability.Unknown, id capability.ID) (capability.Unknown, error) {
	if d, ok := w.Capabilities().Delegate(); ok {
		return forward(w, controlling, d.Slot, id, id)
	}
	return nil, errors.NotFound(capability.Name(id))
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	k, _ := errors.KindOf(err)
	return k == errors.KindNotFound
}

func local(w Wrapper, e Entry) (capability.Unknown, error) {
	var h capability.Unknown
	if e.Provide != nil {
		h = e.Provide(w)
	} else if self, ok := w.(capability.Unknown); ok {
		h = self
	}
	if h == nil {
		return nil, errors.New(errors.PhaseQuery, errors.KindInvalidState).
			Capability(capability.Name(e.ID)).
			Detail("local entry on %T has no implementing handle", w).
			Build()
	}
	h.AddRef()
	return h, nil
}

func forward(w Wrapper, controlling capability.Unknown, slot Slot, queryID, id capability.ID) (capability.Unknown, error) {
	target := w.Targets().Get(slot)
	if target == nil {
		return nil, errors.NotSupported(capability.Name(id), fmt.Sprintf("target slot %d is empty", slot), nil)
	}

	raw, err := target.QueryCapability(queryID)
	if err != nil {
		detail := "target refused capability"
		if queryID != id {
			detail = "target refused aliased capability " + capability.Name(queryID)
		}
		return nil, errors.NotSupported(capability.Name(id), detail, err)
	}

	Logger().Debug("forwarded capability",
		zap.String("capability", capability.Name(id)),
		zap.String("queried", capability.Name(queryID)),
		zap.Uint8("slot", uint8(slot)))

	return NewShim(controlling, raw, id), nil
}
