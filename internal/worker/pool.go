package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of background work
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue.
// A failing or panicking task is logged and never affects other tasks.
type Pool struct {
	workers int
	timeout time.Duration
	queue   chan Task

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool. Call Start before submitting.
func NewPool(workers, queueSize int, taskTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Pool{
		workers: workers,
		timeout: taskTimeout,
		queue:   make(chan Task, queueSize),
	}
}

// Start launches the workers. Tasks run with contexts derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("worker pool started", "workers", p.workers, "queue", cap(p.queue))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
}

// Submit enqueues a task without blocking. It returns false when the queue is
// full or the pool is stopped; the task is dropped in that case.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		slog.Warn("worker pool stopped, dropping task", "task", task.Name)
		return false
	}

	select {
	case p.queue <- task:
		return true
	default:
		slog.Warn("worker queue full, dropping task", "task", task.Name)
		return false
	}
}

// Stop stops accepting tasks, lets queued tasks finish and waits for the workers
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("worker pool stopped")
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()

	for task := range p.queue {
		p.execute(ctx, task)
	}
}

func (p *Pool) execute(ctx context.Context, task Task) {
	start := time.Now()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := runSafely(ctx, task)
	if err != nil {
		slog.Error("background task failed",
			"task", task.Name,
			"error", err,
			"duration", time.Since(start),
		)
		return
	}

	slog.Debug("background task finished", "task", task.Name, "duration", time.Since(start))
}

func runSafely(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}
