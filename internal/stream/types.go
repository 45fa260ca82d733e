package stream

import "github.com/falconbuild/falcon/internal/subprocess"

// buildInfo is one build's accumulated JSON document, retained as long as
// some subscriber is still draining it.
type buildInfo struct {
	id        int
	buf       []byte
	completed bool
	firstCmd  bool
	refcount  int
}

// client tracks one connected subscriber's drain position.
type client struct {
	build  *buildInfo
	offset int
}

// Result is an alias of subprocess.ExitStatus naming the build-level
// "result" field; it is the same type, not a distinct one.
type Result = subprocess.ExitStatus
