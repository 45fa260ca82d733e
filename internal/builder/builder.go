package builder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/ctxlog"
	"github.com/falconbuild/falcon/internal/falconerr"
	"github.com/falconbuild/falcon/internal/graph"
	"github.com/falconbuild/falcon/internal/stream"
	"github.com/falconbuild/falcon/internal/subprocess"
)

// Builder runs at most one build at a time over a graph, emitting
// lifecycle events to a stream server as it goes.
type Builder struct {
	graph      *graph.Graph
	cache      *cache.Store
	stream     *stream.Server
	manager    *subprocess.Manager
	workingDir string

	// graphMu is the daemon's own graph mutex, shared with the builder so
	// §5's "the builder thread holds this mutex across an entire
	// build-step transition, but releases it while waiting on the
	// subprocess" is actually enforced: every read or mutation of a
	// node's state is serialized against control operations like
	// setDirty, and is released again before a command's subprocess runs.
	graphMu *sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	result  BuildResult

	nextCmdID atomic.Int64
}

// New constructs a Builder wired to the given graph, hash cache, and
// stream server. workingDir is the directory every command is run in.
// graphMu is the mutex the caller also takes around its own graph
// mutations (daemon's control operations); build steps are serialized
// against it.
func New(g *graph.Graph, c *cache.Store, s *stream.Server, workingDir string, graphMu *sync.Mutex) *Builder {
	return &Builder{
		graph:      g,
		cache:      c,
		stream:     s,
		manager:    subprocess.NewManager(1),
		workingDir: workingDir,
		graphMu:    graphMu,
		result:     Unknown,
	}
}

// StartBuild spawns a goroutine that builds every target in targets, in
// order, stopping at the first that doesn't succeed. It returns
// falconerr.ErrBusy if a build is already running. completion, if
// non-nil, is invoked on the build goroutine once the result is final;
// the returned channel additionally receives that same result exactly
// once, for callers that prefer to select on it instead.
func (b *Builder) StartBuild(ctx context.Context, buildID int, targets []*graph.Node, completion CompletionFunc) (<-chan BuildResult, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil, falconerr.ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.running = true
	b.cancel = cancel
	b.done = make(chan struct{})
	b.mu.Unlock()

	resultCh := make(chan BuildResult, 1)

	go func() {
		logger := ctxlog.FromContext(runCtx)
		b.stream.NewBuild(buildID)

		result := Succeeded
		for _, target := range targets {
			r := b.build(runCtx, logger, target)
			if r != Succeeded {
				result = r
				break
			}
		}

		b.stream.EndBuild(result)

		b.mu.Lock()
		b.result = result
		b.running = false
		b.cancel = nil
		close(b.done)
		b.mu.Unlock()

		resultCh <- result
		if completion != nil {
			completion(result)
		}
	}()

	return resultCh, nil
}

// Interrupt cancels the currently running build, if any. The build
// goroutine observes this the next time it checks the context, between
// rules or inside the running subprocess.
func (b *Builder) Interrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// Wait blocks until the current (or most recently started) build's
// goroutine has finished.
func (b *Builder) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Result returns the last completed build's result.
func (b *Builder) Result() BuildResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

// build implements the depth-first, left-to-right build algorithm over
// node, returning its result without ever visiting an already
// up-to-date node's producing rule twice.
func (b *Builder) build(ctx context.Context, logger *slog.Logger, node *graph.Node) BuildResult {
	b.graphMu.Lock()
	upToDate := node.State() == graph.UpToDate
	b.graphMu.Unlock()
	if upToDate {
		return Succeeded
	}
	if ctx.Err() != nil {
		return Interrupted
	}

	rule := node.Producer()
	if rule == nil {
		// A source node has nothing to run; it's "built" by re-hashing
		// it against what's actually on disk. Only a source that no
		// longer exists (or can't be read) fails the build.
		b.graphMu.Lock()
		defer b.graphMu.Unlock()
		hash, err := b.cache.Hash(node.Path())
		if err != nil {
			logger.Error("source missing", "path", node.Path(), "error", err)
			return Failed
		}
		node.SetHash(hash)
		_ = b.cache.StoreHash(node.Path(), hash)
		node.MarkUpToDate()
		return Succeeded
	}

	for _, input := range rule.AllInputs() {
		if r := b.build(ctx, logger, input); r != Succeeded {
			return r
		}
	}

	if rule.IsPhony() {
		cmdID := int(b.nextCmdID.Add(1))
		b.stream.NewCommand(cmdID, "<phony>")
		b.graphMu.Lock()
		for _, out := range rule.Outputs() {
			out.MarkUpToDate()
		}
		b.graphMu.Unlock()
		b.stream.EndCommand(cmdID, Succeeded)
		return Succeeded
	}

	cmdID := int(b.nextCmdID.Add(1))
	b.stream.NewCommand(cmdID, rule.Command())
	logger.Info("running command", "id", cmdID, "command", rule.Command())

	// graphMu is released across the subprocess run itself — only the
	// state transition on either side of it needs to be serialized
	// against control operations, not the wait.
	proc := subprocess.New(rule.Command(), b.workingDir, cmdID, b.stream)
	status, err := b.manager.RunNext(ctx, proc)
	if err != nil {
		status = Interrupted
	}
	b.stream.EndCommand(cmdID, status)

	switch status {
	case Succeeded:
		b.graphMu.Lock()
		for _, out := range rule.Outputs() {
			b.refreshOutput(out)
		}
		b.graphMu.Unlock()
		return Succeeded
	case Interrupted:
		return Interrupted
	default:
		return Failed
	}
}

// refreshOutput recomputes an output node's content hash after its
// producing rule's command has run, records the new hash in the cache,
// and marks the node up to date. Caller holds graphMu.
func (b *Builder) refreshOutput(out *graph.Node) {
	if hash, err := b.cache.Hash(out.Path()); err == nil {
		out.SetHash(hash)
		_ = b.cache.StoreHash(out.Path(), hash)
	}
	out.MarkUpToDate()
}
