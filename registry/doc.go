// Package registry tracks live composed objects.
//
// A class factory registers every object it creates and removes it when the
// object is destroyed, so the table length is the number of objects still
// alive. A factory whose table is empty can be unloaded.
//
//	table := registry.NewTable()
//	h := table.Insert("logging-protocol", pair)
//	...
//	table.Remove(h)
//
// The table never holds a reference on the objects it tracks; lifetime stays
// with the objects' own reference counts.
//
// # Observers
//
//	cancel := table.Subscribe(registry.ObserverFunc(func(e registry.Event) {
//	    log.Printf("%s %s #%d", e.Class, e.Type, e.Handle)
//	}))
//	defer cancel()
package registry
