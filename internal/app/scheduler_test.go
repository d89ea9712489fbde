package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingCleaner struct {
	mu        sync.Mutex
	calls     int
	retention time.Duration
}

func (c *countingCleaner) Cleanup(retention time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.retention = retention
	return 2, nil
}

func (c *countingCleaner) snapshot() (int, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.retention
}

func TestSchedulerRunsCleanupOnStart(t *testing.T) {
	cleaner := &countingCleaner{}
	s := NewScheduler(cleaner, 48*time.Hour, zap.NewNop())
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		calls, _ := cleaner.snapshot()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	_, retention := cleaner.snapshot()
	assert.Equal(t, 48*time.Hour, retention)
}

func TestSchedulerSkipsCleanupWithoutRetention(t *testing.T) {
	cleaner := &countingCleaner{}
	s := NewScheduler(cleaner, 0, zap.NewNop())

	s.cleanupBackups()

	calls, _ := cleaner.snapshot()
	assert.Zero(t, calls)
}
