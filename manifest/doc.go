// Package manifest declares composed classes in YAML.
//
//	class: logging-protocol
//	strategy: either          # either | plain-only | aggregation-only
//	thread_model: free        # single | free
//	debug: true
//	primary:
//	  implements: [stream]
//	  passthrough:
//	    - capability: priority
//	    - capability: http-info
//	      alias: info
//	companion:
//	  implements: [sink]
//	target:
//	  implements: [stream, priority, info]
//
// Capabilities are referenced by registered name or by literal id in
// braces. A name that is not registered yet is registered under the id
// derived from it, so the same name always means the same capability.
//
// Class turns a manifest into a creator.Class whose halves are Objects with
// the declared tables. NewTarget and TargetFactory build stand-in targets
// that support the capabilities listed under target.
package manifest
