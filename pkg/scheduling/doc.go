/*
Package scheduling groups the executors whose pools can be monitored through
a metrics.Gate.

  - workerpool: fixed worker pool, with NewParallel, NewSingle and
    NewInstrumented building pools through a gate
  - scheduler: one-time, interval and cron scheduling onto a pool it owns or
    one supplied by the caller

Worker Pool:

	gate := metrics.NewGateFromConfig(metrics.DefaultConfig())
	pool, err := workerpool.NewParallel(gate, 4, 100)
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		return process(ctx)
	}))

Scheduler:

	s, err := scheduler.NewWithConfig(scheduler.Config{Gate: gate})
	if err != nil {
		return err
	}
	s.Start()
	defer func() { <-s.Stop() }()

	s.ScheduleRepeating("cleanup", cleanupTask, time.Hour)

A pool built through an unavailable gate is returned as-is and nothing is
registered.
*/
package scheduling
