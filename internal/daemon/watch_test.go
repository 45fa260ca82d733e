package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/falconbuild/falcon/internal/graph"
	"github.com/falconbuild/falcon/internal/watchman"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWatchChanges_MarksReportedPathDirty(t *testing.T) {
	d, g, dir := newTestDaemon(t)
	target := filepath.Join(dir, "a.c")
	_, err := g.AddRule([]string{target}, []string{filepath.Join(dir, "a.o")}, "touch a.o", "")
	require.NoError(t, err)
	g.GetNode(target).SetState(graph.UpToDate)

	events := make(chan watchman.ChangeEvent, 1)
	events <- watchman.ChangeEvent{Path: target}
	close(events)

	ctrl := gomock.NewController(t)
	mockClient := watchman.NewMockClient(ctrl)
	mockClient.EXPECT().
		Subscribe(gomock.Any(), d.cfg.WorkingDirectory).
		Return((<-chan watchman.ChangeEvent)(events), nil)
	d.wm = mockClient

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.watchChanges(ctx)

	require.Eventually(t, func() bool {
		return g.GetNode(target).State() == graph.OutOfDate
	}, time.Second, 10*time.Millisecond)
}
