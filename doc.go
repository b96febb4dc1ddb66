// Package passthrough composes objects that answer dynamic capability
// queries, forwarding what they do not implement to an inner target while
// keeping their own identity.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	passthrough/         Root package (documentation only)
//	├── capability/      Capability ids, the Unknown interface and the descriptor catalog
//	├── errors/          Structured error types for debugging
//	├── refcount/        Shared reference count with once-only teardown
//	├── resolve/         Capability tables, target binding and forwarding shims
//	├── compose/         Primary/Companion pairs, ownership modes and lifecycle
//	├── creator/         Creation strategies, classes and class factories
//	├── registry/        Live-object table with lifecycle observers
//	├── manifest/        YAML class manifests
//	└── cmd/ptinspect/   Command line inspector for manifests
//
// # Quick Start
//
// Declare the two halves of a class and what each one implements:
//
//	var protocolTable = resolve.MustTable(
//	    resolve.Local(StreamID),
//	    resolve.Forward(PriorityID, resolve.SlotTarget),
//	)
//
//	type Protocol struct{ compose.Base }
//
//	func (p *Protocol) Capabilities() *resolve.Table { return protocolTable }
//
// Create instances through a factory that binds each one to a target:
//
//	factory, err := creator.NewFactoryWithTarget(&creator.Class{
//	    Name:         "protocol",
//	    NewPrimary:   func() compose.Object { return &Protocol{} },
//	    NewCompanion: func() compose.Object { return &Sink{} },
//	}, transportFactory)
//
//	h, err := factory.CreateInstance(nil, StreamID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
// # Identity
//
// Every handle obtained from an instance, local or forwarded, answers the
// Identity capability with the same handle: the instance itself, or the
// outer controller when the instance is aggregated.
//
// # Thread Safety
//
// Capability tables are immutable and safe to share. A class declares its
// threading model: FreeThreaded counts are atomic, SingleThreaded counts
// leave synchronization to the caller.
package passthrough
