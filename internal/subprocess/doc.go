// Package subprocess implements Falcon's subprocess executor (§4.3): it
// runs one shell command at a time in a given working directory, streams
// its stdout and stderr to a Consumer chunk by chunk, and reports a
// ExitStatus once the child exits.
//
// The original POSIX design forks, redirects stdout/stderr into pipes, and
// drives them from a non-blocking poll loop. Go's os/exec already owns the
// fork/exec/pipe machinery; this package supplies the one goroutine per
// pipe that the original's DESIGN NOTES call the natural translation of
// that loop ("two tasks on a cooperative runtime selecting over the two
// read ends"), and keeps the same chunk-bounded, FIFO-per-fd delivery
// contract.
package subprocess
