package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/falconbuild/falcon/internal/builder"
	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/falconcfg"
	"github.com/falconbuild/falcon/internal/falconerr"
	"github.com/falconbuild/falcon/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) (*Daemon, *graph.Graph, string) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := falconcfg.NewConfig(falconcfg.Config{
		WorkingDirectory: dir,
		GraphPath:        filepath.Join(dir, "makefile.json"),
		APIPort:          1,
		StreamPort:       2,
		LogLevel:         "error",
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := graph.New()
	c, err := cache.Open(filepath.Join(dir, "cache.msgpack"))
	require.NoError(t, err)

	return New(cfg, logger, g, c), g, dir
}

func TestRunSequential_EchoEndToEnd(t *testing.T) {
	d, g, dir := newTestDaemon(t)
	outPath := filepath.Join(dir, "out.txt")
	_, err := g.AddRule(nil, []string{outPath}, "echo hello > "+outPath, "")
	require.NoError(t, err)
	require.NoError(t, d.Scan())

	result, err := d.RunSequential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, builder.Succeeded, result)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRunSequential_FailingCommandEndToEnd(t *testing.T) {
	d, g, _ := newTestDaemon(t)
	_, err := g.AddRule(nil, []string{"out"}, "exit 1", "")
	require.NoError(t, err)
	require.NoError(t, d.Scan())

	result, err := d.RunSequential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, builder.Failed, result)
}

func TestInterruptBuild_BoundsLatency(t *testing.T) {
	d, g, _ := newTestDaemon(t)
	_, err := g.AddRule(nil, []string{"out"}, "sleep 30", "")
	require.NoError(t, err)
	require.NoError(t, d.Scan())

	ctx := context.Background()
	go func() {
		time.Sleep(100 * time.Millisecond)
		d.InterruptBuild()
	}()

	start := time.Now()
	result, err := d.RunSequential(ctx)
	require.NoError(t, err)
	assert.Equal(t, builder.Interrupted, result)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSetDirty_PropagatesAndIsVisibleViaGetDirtySources(t *testing.T) {
	d, g, dir := newTestDaemon(t)
	srcPath := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(srcPath, []byte("v1"), 0o644))
	_, err := g.AddRule([]string{srcPath}, []string{filepath.Join(dir, "a.o")}, "touch "+filepath.Join(dir, "a.o"), "")
	require.NoError(t, err)
	require.NoError(t, d.Scan())

	g.GetNode(srcPath).SetState(graph.UpToDate)
	require.NoError(t, d.SetDirty(srcPath))

	assert.Contains(t, d.GetDirtySources(), srcPath)
}

func TestSetDirty_UnknownTargetReturnsTargetNotFound(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	err := d.SetDirty("nonexistent")
	assert.ErrorIs(t, err, falconerr.ErrTargetNotFound)
}

func TestStartBuild_ReturnsBusyWhileBuilding(t *testing.T) {
	d, g, _ := newTestDaemon(t)
	_, err := g.AddRule(nil, []string{"out"}, "sleep 0.3", "")
	require.NoError(t, err)
	require.NoError(t, d.Scan())

	go d.StartBuild()
	time.Sleep(50 * time.Millisecond)

	err = d.StartBuild()
	assert.ErrorIs(t, err, falconerr.ErrBusy)

	for d.GetStatus() == "BUILDING" {
		time.Sleep(10 * time.Millisecond)
	}
}
