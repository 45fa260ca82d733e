package subprocess

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Manager bounds how many Processes run at once. It is built to support
// running several commands concurrently — RunNext acquires one slot from a
// weighted semaphore before starting a Process — even though the sequential
// builder that is this package's only caller today only ever holds one slot
// at a time.
type Manager struct {
	sem *semaphore.Weighted
}

// NewManager returns a Manager allowing at most maxConcurrent processes to
// run at once.
func NewManager(maxConcurrent int64) *Manager {
	return &Manager{sem: semaphore.NewWeighted(maxConcurrent)}
}

// RunNext blocks until a slot is free, then runs p to completion (or until
// ctx is canceled, in which case p is interrupted), returning its final
// ExitStatus.
func (m *Manager) RunNext(ctx context.Context, p *Process) (ExitStatus, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return Unknown, err
	}
	defer m.sem.Release(1)

	return p.Run(ctx), nil
}
