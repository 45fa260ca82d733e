package builder

import "github.com/falconbuild/falcon/internal/subprocess"

// BuildResult is the outcome of a whole build, the same four values a
// single command can finish with.
type BuildResult = subprocess.ExitStatus

const (
	Unknown     = subprocess.Unknown
	Succeeded   = subprocess.Succeeded
	Failed      = subprocess.Failed
	Interrupted = subprocess.Interrupted
)

// CompletionFunc is invoked once, on the build's goroutine, after the
// result field has been set and endBuild has been emitted to the stream
// server.
type CompletionFunc func(BuildResult)
