// Package refcount implements the shared reference count of a composed
// object.
//
// A Shared counter starts at one, owned by whoever created the object. When
// the count returns to zero the teardown function runs exactly once, on the
// goroutine whose Release caused the transition:
//
//	s := refcount.New(refcount.FreeThreaded, identity, func() {
//	    // companion teardown, primary teardown
//	})
//	s.Acquire()
//	s.Release()
//	s.Release() // runs teardown, returns (0, true)
//
// Releasing below zero means a handle was released twice. That state cannot
// be recovered from, so Release logs the violation and panics.
package refcount
