// Package builder implements Falcon's sequential builder (§4.4): given a
// set of target nodes, it walks the graph depth-first, left to right over
// each rule's inputs, running out-of-date rules' commands one at a time
// and refreshing their outputs' state and hashes as each command succeeds.
//
// A build runs on its own goroutine, started by StartBuild and joined by
// Wait; Interrupt cooperatively cancels the context that goroutine (and
// the subprocess it's currently running) observes.
package builder
