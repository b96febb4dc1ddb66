// Package capability defines capability identifiers and the Unknown
// interface every dynamic object implements.
//
// A capability is a behavior contract identified by a 128-bit ID. Objects
// are asked for capabilities at run time:
//
//	h, err := obj.QueryCapability(streamID)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
// # Identity
//
// Every object answers the Identity capability. Two Identity queries on the
// same object, or on any handle obtained from it, return the same handle:
//
//	capability.SameIdentity(obj, h) // true
//
// # Descriptors
//
// Capabilities may be registered with a name and an optional WrapFunc. The
// name is used for diagnostics and manifests; WrapFunc lets a forwarded
// handle expose the capability's Go interface:
//
//	var PriorityID = capability.MustRegister(capability.Descriptor{
//	    ID:   capability.NameID("priority"),
//	    Name: "priority",
//	    Wrap: func(fwd, raw capability.Unknown) capability.Unknown {
//	        return priorityShim{Unknown: fwd, raw: raw.(Priority)}
//	    },
//	})
//
// Without a WrapFunc, As looks through the forwarding handle:
//
//	p, ok := capability.As[Priority](h)
package capability
