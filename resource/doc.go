// Package resource provides reference-counted handle tables.
//
// A handle is an opaque integer naming a host value such as an open socket
// descriptor. Several owners may share one handle; each owner holds one
// reference and the value is finalized when the last reference goes away.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value with one reference
//	h := table.Insert(typeID, value)
//
//	// Share it
//	table.Retain(h)
//
//	// Give references back; the second call drops the value
//	table.Release(h)
//	dropped, err := table.Release(h)
//
// Values implementing Dropper are finalized on the last Release and the
// Drop error is returned to whoever released it.
//
// # Owner Checks
//
// Handles are reused after they are freed. Holders that may outlive their
// reference pass the value they expect so a reused handle is left alone:
//
//	table.RetainIf(h, value)
//	table.ReleaseIf(h, value)
//
// # Observers
//
// Observers see every lifecycle transition:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//		if e.Type == resource.EventDropped {
//			log.Printf("handle %d dropped", e.Handle)
//		}
//	}))
//
// # Thread Safety
//
// Table and LocalBackend are safe for concurrent use. Observers are invoked
// synchronously and must not call back into Subscribe.
package resource
