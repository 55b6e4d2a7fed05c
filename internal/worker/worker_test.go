package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPanicRecovery panic 不会拖垮 worker，并计入统计
func TestPanicRecovery(t *testing.T) {
	pool := NewPool(2, 10)

	var completedTasks int32
	for i := 0; i < 2; i++ {
		err := pool.Run(context.Background(), func(context.Context) error { panic("intentional panic for testing") })
		require.Error(t, err)
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Run(context.Background(), func(context.Context) error {
			atomic.AddInt32(&completedTasks, 1)
			return nil
		}))
	}

	// Stop 会等待队列中的任务全部执行完
	pool.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&completedTasks))
	stats := pool.GetStats()
	assert.Equal(t, uint64(2), stats.Panicked)
	assert.Equal(t, uint64(5), stats.Executed)
}

// TestGracefulShutdown Stop 等待执行中的任务完成
func TestGracefulShutdown(t *testing.T) {
	pool := NewPool(2, 10)

	var completedTasks int32
	started := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(300 * time.Millisecond)
			atomic.AddInt32(&completedTasks, 1)
			return nil
		})
	}()
	<-started

	startTime := time.Now()
	pool.Stop()

	assert.GreaterOrEqual(t, time.Since(startTime), 250*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completedTasks))
}

func TestRunAfterStop(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Stop()
	pool.Stop()

	assert.ErrorIs(t, pool.Run(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)
}

// TestRun_QueueFullWaitsForContext 队列满时 Run 阻塞到 ctx 结束
func TestRun_QueueFullWaitsForContext(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Stop()

	blocker := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func(context.Context) error {
			close(started)
			<-blocker
			return nil
		})
	}()
	<-started
	go func() {
		_ = pool.Run(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return pool.GetStats().QueueLen == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := pool.Run(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(blocker)
}

func TestRun_ReturnsResult(t *testing.T) {
	pool := NewPool(2, 10)
	defer pool.Stop()

	boom := errors.New("boom")
	assert.NoError(t, pool.Run(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, pool.Run(context.Background(), func(context.Context) error { return boom }), boom)
}

func TestRun_Timeout(t *testing.T) {
	pool := NewPool(1, 10)
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pool.Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_Panic(t *testing.T) {
	pool := NewPool(1, 10)
	defer pool.Stop()

	err := pool.Run(context.Background(), func(context.Context) error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

// TestConcurrentRun 测试并发提交
func TestConcurrentRun(t *testing.T) {
	pool := NewPool(4, 16)
	defer pool.Stop()

	var completed int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Run(context.Background(), func(context.Context) error {
				atomic.AddInt32(&completed, 1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(200), atomic.LoadInt32(&completed))
	stats := pool.GetStats()
	assert.Equal(t, 4, stats.WorkerCount)
	assert.Equal(t, 16, stats.QueueCap)
	assert.Equal(t, uint64(200), stats.Submitted)
}
