package daemon

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/falconbuild/falcon/internal/builder"
	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/control"
	"github.com/falconbuild/falcon/internal/ctxlog"
	"github.com/falconbuild/falcon/internal/falconcfg"
	"github.com/falconbuild/falcon/internal/falconerr"
	"github.com/falconbuild/falcon/internal/graph"
	"github.com/falconbuild/falcon/internal/printers"
	"github.com/falconbuild/falcon/internal/scanner"
	"github.com/falconbuild/falcon/internal/stream"
	"github.com/falconbuild/falcon/internal/watchman"
	"golang.org/x/sync/errgroup"
)

// Daemon owns one running build graph and every service around it. mu is
// the single coarse lock §5 calls for: every control operation and every
// builder-invoked graph mutation takes it, except while a build is
// actually waiting on a subprocess.
type Daemon struct {
	cfg    *falconcfg.Config
	logger *slog.Logger

	mu    sync.Mutex
	graph *graph.Graph
	cache *cache.Store

	builder *builder.Builder
	stream  *stream.Server
	control *control.Server
	wm      watchman.Client

	nextBuildID atomic.Int64
	building    bool
}

// New constructs a Daemon from an already-parsed graph. Call Scan to seed
// the graph's dirty state before starting a build.
func New(cfg *falconcfg.Config, logger *slog.Logger, g *graph.Graph, c *cache.Store) *Daemon {
	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		graph:  g,
		cache:  c,
		wm:     watchman.NoopClient{},
	}
	d.stream = stream.New(logger)
	d.builder = builder.New(g, c, d.stream, cfg.WorkingDirectory, &d.mu)
	d.control = control.New(d, logger)
	return d
}

// Scan runs the dependency scanner once, seeding every node's dirty state
// from the hash cache.
func (d *Daemon) Scan() error {
	return scanner.New(d.graph, d.cache).Scan()
}

// Run starts the stream and control servers and blocks until ctx is
// canceled. Shutdown does not cancel ctx, so on its own it does not make
// Run return.
func (d *Daemon) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.stream.ListenAndServe(runCtx, d.cfg.StreamPort) })
	g.Go(func() error { return d.control.ListenAndServe(runCtx, d.cfg.APIPort) })
	g.Go(func() error { d.watchChanges(runCtx); return nil })

	d.logger.Info("daemon started", "api-port", d.cfg.APIPort, "stream-port", d.cfg.StreamPort)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchChanges subscribes to the watchman collaborator and marks any
// changed path dirty as it's reported, so a build started right after an
// edit doesn't depend on the next scan noticing it by hash alone. Paths
// outside the graph are reported too (watchman doesn't know about nodes);
// those are silently ignored.
func (d *Daemon) watchChanges(ctx context.Context) {
	events, err := d.wm.Subscribe(ctx, d.cfg.WorkingDirectory)
	if err != nil {
		d.logger.Warn("watchman: subscribe failed, falling back to scan-only change detection", "error", err)
		return
	}
	for ev := range events {
		if err := d.SetDirty(ev.Path); err != nil {
			d.logger.Debug("watchman: reported path not in graph", "path", ev.Path)
		}
	}
}

// RunSequential runs exactly one build to completion and returns its
// result, for sequential-build mode.
func (d *Daemon) RunSequential(ctx context.Context) (builder.BuildResult, error) {
	ctx = ctxlog.WithLogger(ctx, d.logger)

	d.mu.Lock()
	targets := d.graph.Roots()
	id := int(d.nextBuildID.Add(1))
	d.mu.Unlock()

	resultCh, err := d.builder.StartBuild(ctx, id, targets, nil)
	if err != nil {
		return builder.Unknown, err
	}
	return <-resultCh, nil
}

// StartBuild implements control.Core: builds every root node, returning
// ErrBusy if a build is already in progress.
func (d *Daemon) StartBuild() error {
	d.mu.Lock()
	if d.building {
		d.mu.Unlock()
		return falconerr.ErrBusy
	}
	targets := d.graph.Roots()
	id := int(d.nextBuildID.Add(1))
	d.building = true
	d.mu.Unlock()

	ctx := ctxlog.WithLogger(context.Background(), d.logger)
	_, err := d.builder.StartBuild(ctx, id, targets, func(builder.BuildResult) {
		d.mu.Lock()
		d.building = false
		d.mu.Unlock()
	})
	if err != nil {
		d.mu.Lock()
		d.building = false
		d.mu.Unlock()
	}
	return err
}

// GetStatus implements control.Core.
func (d *Daemon) GetStatus() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.building {
		return "BUILDING"
	}
	return "IDLE"
}

// GetDirtySources implements control.Core.
func (d *Daemon) GetDirtySources() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var dirty []string
	for _, n := range d.graph.Sources() {
		if n.State() == graph.OutOfDate {
			dirty = append(dirty, n.Path())
		}
	}
	return dirty
}

// SetDirty implements control.Core.
func (d *Daemon) SetDirty(target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.graph.GetNode(target)
	if n == nil {
		return falconerr.TargetNotFound(target)
	}
	n.MarkDirty()
	return nil
}

// InterruptBuild implements control.Core.
func (d *Daemon) InterruptBuild() {
	d.builder.Interrupt()
}

// Shutdown implements control.Core: interrupts any running build, waits
// for it to finish, and stops the stream server. It does not stop the
// control server or cancel the context passed to Run, so the process keeps
// running until that context is canceled (in cmd/falcond, by SIGINT or
// SIGTERM).
func (d *Daemon) Shutdown() {
	d.builder.Interrupt()
	d.builder.Wait()
	d.stream.Stop()
}

// Graphviz implements control.Core.
func (d *Daemon) Graphviz() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := printers.Graphviz(d.graph, &buf); err != nil {
		return "", fmt.Errorf("daemon: graphviz: %w", err)
	}
	return buf.String(), nil
}
