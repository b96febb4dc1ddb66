// Package creator turns class declarations into composed objects.
//
// A Class names its two halves and declares a creation Strategy. The
// strategy is an explicit value on the class; a class that declares none
// gets Either.
//
//	var Protocol = &creator.Class{
//	    Name:         "logging-protocol",
//	    Strategy:     creator.PlainOnly,
//	    NewPrimary:   func() compose.Object { return &protocol{} },
//	    NewCompanion: func() compose.Object { return &sink{} },
//	}
//
// A Factory creates instances of a class and binds each one to a new target
// built by its target factory. Factories satisfy TargetFactory themselves,
// so one wrapper class can sit in front of another:
//
//	inner, _ := creator.NewFactoryWithTarget(Inner, transport)
//	outer, _ := creator.NewFactoryWithTarget(Protocol, inner)
//	h, err := outer.CreateInstance(nil, StreamID)
//
// Target classes can also be looked up by id in a Catalog.
//
// The factory's Live count and CanUnload report whether any instance it
// created is still alive.
package creator
