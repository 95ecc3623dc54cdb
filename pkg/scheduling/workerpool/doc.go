/*
Package workerpool provides the pooled executor that poolmon instruments.

A worker pool manages a fixed number of worker goroutines that execute tasks
concurrently from a bounded queue. Every Pool reports its size, active
workers, queue depth and submitted/completed totals, which makes it a
metrics.Executor that a metrics.Gate can register with a backend.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("Task failed: %v", result.Error)
	}

Instrumented Construction:

Pools created through a gate are registered for monitoring when the gate's
backend is available, and are plain pools otherwise:

	gate := metrics.NewGate(metrics.NewPrometheusBackend(registry))

	pool, err := workerpool.NewParallel(gate, 8, 1000) // executorId parallel-exec1
	single, err := workerpool.NewSingle(gate, 10)      // executorId single-exec1

	custom, err := workerpool.NewInstrumented(workerpool.Config{
		WorkerCount: 4,
		QueueSize:   64,
		TaskTimeout: 30 * time.Second,
	}, "io", "IO(4)", gate) // executorId io-exec1

The pool is registered in place: the returned value is the pool itself, and
its behavior is identical to an uninstrumented one.

Configuration Options:

	config := workerpool.Config{
		WorkerCount:     8,
		QueueSize:       1000,
		TaskTimeout:     30 * time.Second,
		BufferedResults: true,
		PanicHandler: func(task Task, recovered interface{}) {
			log.Printf("Task panicked: %v", recovered)
		},
		OnTaskComplete: func(workerID int, result Result) {
			log.Printf("Worker %d completed task in %v", workerID, result.Duration)
		},
	}
	pool := workerpool.NewWithConfig(config)

NewWithConfig panics on an invalid configuration; NewSafe returns a
ValidationError instead.

Result Processing:

Results are delivered through a channel. A worker waits at most
Config.ResultTimeout for a reader before dropping a result, so pools whose
results nobody reads keep making progress.

Graceful Shutdown:

	// Graceful shutdown - queued tasks still run
	<-pool.Shutdown()

	// Shutdown with timeout - running tasks are canceled after the timeout
	<-pool.ShutdownWithTimeout(30 * time.Second)

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
*/
package workerpool
