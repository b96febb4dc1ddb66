// Package resolve implements passthrough capability resolution.
//
// A wrapper declares a static Table that says, for each capability it
// exposes, whether it implements it itself or forwards it to a target:
//
//	var protocolTable = resolve.MustTable(
//	    resolve.Local(StreamID),
//	    resolve.Forward(PriorityID, resolve.SlotTarget),
//	    resolve.ForwardAs(HTTPInfoID, resolve.SlotTarget, InfoID),
//	)
//
// Targets are bound once per slot and held by strong reference until the
// wrapper releases them:
//
//	var targets resolve.Targets
//	if err := targets.Bind(inner); err != nil { ... }
//
// Resolve walks the table. Forwarded results come back behind a Shim that
// answers Identity with the wrapper's controlling unknown, so a caller
// cannot tell a forwarded capability from a local one.
//
// # Diagnostics
//
// EnableDiagnostics makes Targets cross-check each bound target against the
// table. Overlaps are logged and kept for inspection; they never change how
// queries resolve.
package resolve
