package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	pmcontext "github.com/vnykmshr/poolmon/pkg/common/context"
	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
	"github.com/vnykmshr/poolmon/pkg/common/validation"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := p.SubmitWithContext(ctx, task)
	if err != nil && pmcontext.IsTimedOut(ctx) {
		return fmt.Errorf("cannot submit task within %v: %w", timeout, pmerrors.ErrTimeout)
	}
	return err
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if err := validation.ValidateNotNil("workerpool", "task", task); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()

	if isShutdown {
		return fmt.Errorf("cannot submit task: %w", pmerrors.ErrClosed)
	}

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	if pmcontext.IsCanceled(ctx) {
		return fmt.Errorf("cannot submit task: %w", ctx.Err())
	}

	twc := taskWithContext{
		task: task,
		ctx:  ctx,
	}

	select {
	case p.taskQueue <- twc:
		p.totalSubmitted.Add(1)
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("cannot submit task: %w", pmerrors.ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: %w", ctx.Err())
	}
}

// Results returns a channel of task results.
func (p *workerPool) Results() <-chan Result {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool.
// Every call returns the same channel.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		// Signal shutdown to all workers; they drain the queue and exit
		close(p.shutdownCh)

		go func() {
			p.workerWg.Wait()
			p.kill()
			close(p.resultQueue)
			close(p.done)
		}()
	})

	return p.done
}

// ShutdownWithTimeout shuts down the pool, canceling running and queued
// tasks if they have not finished within timeout.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			p.kill()
		}
	}()

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks that finished executing.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id)
	}

	for {
		select {
		case <-w.pool.shutdownCh:
			w.drain()
			return
		case twc := <-w.pool.taskQueue:
			w.executeTask(twc)
		}
	}
}

// drain executes whatever is left in the queue after shutdown, unless the
// pool was killed.
func (w *worker) drain() {
	for {
		if pmcontext.IsCanceled(w.pool.killCtx) {
			return
		}
		select {
		case twc := <-w.pool.taskQueue:
			w.executeTask(twc)
		default:
			return
		}
	}
}

// sendResult sends a task result to the result queue with appropriate handling.
func (w *worker) sendResult(result Result) {
	timer := time.NewTimer(w.pool.config.ResultTimeout)
	defer timer.Stop()

	select {
	case w.pool.resultQueue <- result:
	case <-timer.C:
		// Nobody is reading results; drop it
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(twc taskWithContext) {
	cfg := w.pool.config

	w.pool.activeWorkers.Add(1)
	if cfg.OnTaskStart != nil {
		cfg.OnTaskStart(w.id, twc.task)
	}

	start := time.Now()
	err := w.invoke(twc)

	result := Result{
		Task:     twc.task,
		Error:    err,
		Duration: time.Since(start),
		WorkerID: w.id,
	}

	w.pool.totalCompleted.Add(1)
	w.pool.activeWorkers.Add(-1)

	if cfg.OnTaskComplete != nil {
		cfg.OnTaskComplete(w.id, result)
	}

	w.sendResult(result)
}

// invoke runs the task, turning a panic into an error unless a
// PanicHandler is configured.
func (w *worker) invoke(twc taskWithContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if w.pool.config.PanicHandler != nil {
				w.pool.config.PanicHandler(twc.task, r)
				err = nil
				return
			}
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()

	// Start with the caller-provided context
	ctx, cancel := context.WithCancel(twc.ctx)
	defer cancel()

	// A timed shutdown that expires cancels running tasks
	stop := context.AfterFunc(w.pool.killCtx, cancel)
	defer stop()

	// Apply TaskTimeout if configured
	// The effective timeout is the minimum of the context deadline and TaskTimeout
	if w.pool.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, w.pool.config.TaskTimeout)
		defer cancelTimeout()
	}

	return twc.task.Execute(ctx)
}
