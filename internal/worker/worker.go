package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// ErrPoolClosed 协程池已停止
var ErrPoolClosed = errors.New("worker pool is closed")

// Stats 协程池统计信息
type Stats struct {
	WorkerCount int
	QueueLen    int
	QueueCap    int
	Submitted   uint64
	Executed    uint64
	Panicked    uint64
}

// Pool 固定大小的协程池，Stop 时会执行完队列中已有的任务
type Pool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	submitted atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
}

// NewPool 创建并启动协程池
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan func(), queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	logger.Named("worker").Info("Worker pool started", zap.Int("workers", workers), zap.Int("queue", queueSize))
	return p
}

// Stop 停止接收新任务并等待已入队任务完成，可重复调用
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Named("worker").Info("Worker pool stopped")
}

// Run 将 fn 交给协程池执行并等待结果
// ctx 结束时立即返回 ctx.Err()，fn 收到同一个 ctx 应自行退出
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	task := func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("task panicked: %v", r)
				panic(r)
			}
		}()
		result <- fn(ctx)
	}

	if err := p.enqueue(ctx, task); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue 阻塞入队直到成功或 ctx 结束
func (p *Pool) enqueue(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats 返回统计信息快照
func (p *Pool) GetStats() Stats {
	return Stats{
		WorkerCount: p.workers,
		QueueLen:    len(p.queue),
		QueueCap:    cap(p.queue),
		Submitted:   p.submitted.Load(),
		Executed:    p.executed.Load(),
		Panicked:    p.panicked.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.execute(task)
	}
}

// execute 执行任务并捕获 panic
func (p *Pool) execute(task func()) {
	defer func() {
		p.executed.Add(1)
		if r := recover(); r != nil {
			p.panicked.Add(1)
			logger.Named("worker").Error("Panic recovered in task", zap.Any("panic", r))
		}
	}()
	task()
}
