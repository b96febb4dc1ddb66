// Package compose builds objects out of two cooperating halves that share
// one reference count and one identity.
//
// A Primary and a Companion each embed Base and declare a capability table:
//
//	type Protocol struct {
//	    compose.Base
//	}
//
//	func (p *Protocol) Capabilities() *resolve.Table { return protocolTable }
//
//	type Sink struct {
//	    compose.Base
//	}
//
//	pair, err := compose.New(compose.Config{
//	    Name: "http-protocol",
//	    Mode: compose.EmbeddableOptional,
//	}, &Protocol{}, &Sink{}, nil)
//
// The returned pair holds one reference. Each half reaches the other through
// Base.Sibling; neither keeps the other alive.
//
// # Aggregation
//
// When New is given an outer controller the pair is aggregated: every
// delegating query, AddRef and Release issued through a half goes to the
// outer controller, and forwarded capabilities report the outer identity.
// The Pair value itself stays the non-delegating unknown the outer
// controller uses to reach the inner capabilities and to release the pair.
//
// # Resolution
//
// A query is first matched against the entries both halves list, the
// queried half's table first. Only when neither lists the id does a
// delegate entry forward it to a target, so a half that delegates
// everything never hides its sibling's capabilities. Service queries pass
// through to the halves' main targets in the same order.
//
// # Lifecycle
//
//	Uncreated -> Constructing -> Live -> TearingDown -> Destroyed
//
// Construction runs Primary's Construct hook, then Companion's. If either
// fails, the halves that did construct are torn down and New returns a
// construction_failed error. When the shared count reaches zero the
// Companion's OnTearDown runs, then the Primary's, then the bound targets
// are released. Queries after teardown has begun return invalidated.
package compose
