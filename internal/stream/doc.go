// Package stream implements Falcon's streaming output server (§4.5): it
// broadcasts the JSON log of the currently (or most recently) running build
// to any number of TCP subscribers, fed by lifecycle events the builder
// emits as it runs each rule's command.
//
// The original drives this with a raw poll(2) loop over non-blocking
// sockets plus an eventfd wake-up. Go's net package already multiplexes
// connections onto goroutines, so this package takes the redesign the
// original's own DESIGN NOTES suggest: the Server owns all of its state
// behind one mutex, and each subscriber is served by its own goroutine that
// blocks on a sync.Cond until there is unsent data or the build completes.
// A slow subscriber therefore only ever blocks its own goroutine, never the
// builder or any other subscriber — the same "do not block on a slow
// client" guarantee §4.5 specifies, reached by a different mechanism.
package stream
