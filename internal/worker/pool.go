package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Task represents a unit of work for the worker pool.
// A non-nil error from Process counts the task as failed.
type Task interface {
	Process() error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func() error

// Process implements Task.
func (f TaskFunc) Process() error { return f() }

// Pool runs submitted tasks on a fixed number of goroutines fed by a
// bounded queue.
type Pool struct {
	wg       sync.WaitGroup
	workers  int
	tasks    chan Task
	queueCap int

	mu       sync.RWMutex
	started  bool
	stopped  bool
	stopOnce sync.Once

	processed atomic.Int64
	failed    atomic.Int64
	active    atomic.Int64
}

// PoolStats holds monitoring information about the pool.
type PoolStats struct {
	Workers     int
	ActiveTasks int
	QueueLength int
	QueueCap    int
	Processed   int64
	Failed      int64
}

// NewPool creates a pool with the given number of workers and queue capacity.
// Values below one are raised to one.
func NewPool(workers, queueCap int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 1
	}
	return &Pool{
		workers:  workers,
		tasks:    make(chan Task, queueCap),
		queueCap: queueCap,
	}
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

// Stop stops accepting tasks, lets the workers drain the queue and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Submit queues a task. It returns false when the queue is full or the pool
// is stopped.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false // backpressure: queue is full
	}
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer p.processed.Add(1)

	if err := safeProcess(task); err != nil {
		p.failed.Add(1)
	}
}

func safeProcess(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: task panicked: %v", r)
		}
	}()
	return task.Process()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Stats returns current statistics about the pool.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:     p.workers,
		ActiveTasks: int(p.active.Load()),
		QueueLength: len(p.tasks),
		QueueCap:    p.queueCap,
		Processed:   p.processed.Load(),
		Failed:      p.failed.Load(),
	}
}
