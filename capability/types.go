package capability

// Unknown is implemented by every dynamic object. A successful
// QueryCapability returns a handle with one reference acquired for the
// caller, who must Release it.
type Unknown interface {
	// QueryCapability returns a handle for id or a not_found,
	// not_supported or invalidated error.
	QueryCapability(id ID) (Unknown, error)

	// AddRef acquires a reference and returns the new count.
	AddRef() int32

	// Release drops a reference and returns the new count.
	Release() int32
}

// Binder is exposed under PassthroughObject by wrappers that accept a target.
type Binder interface {
	Unknown

	// Bind stores target, taking a strong reference. A second call fails
	// with already_bound and leaves the first binding in place.
	Bind(target Unknown) error
}

// Enumerator is implemented by objects that can list the capabilities they
// support. It is only used by debug diagnostics.
type Enumerator interface {
	Capabilities() []ID
}

// ServiceProvider resolves a capability from a named service.
type ServiceProvider interface {
	QueryService(service, id ID) (Unknown, error)
}

// Unwrapper is implemented by forwarding handles that front another handle.
type Unwrapper interface {
	Unwrap() Unknown
}

// As returns h as T, looking through forwarding handles. It does not
// acquire a reference.
func As[T any](h Unknown) (T, bool) {
	for h != nil {
		if v, ok := h.(T); ok {
			return v, true
		}
		u, ok := h.(Unwrapper)
		if !ok {
			break
		}
		h = u.Unwrap()
	}
	var zero T
	return zero, false
}

// IdentityOf queries h for Identity. The caller releases the result.
func IdentityOf(h Unknown) (Unknown, error) {
	return h.QueryCapability(Identity)
}

// SameIdentity reports whether a and b are the same object.
func SameIdentity(a, b Unknown) bool {
	ia, err := IdentityOf(a)
	if err != nil {
		return false
	}
	defer ia.Release()

	ib, err := IdentityOf(b)
	if err != nil {
		return false
	}
	defer ib.Release()

	return ia == ib
}
