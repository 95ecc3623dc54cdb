// Package scheduler runs tasks at a point in time, after a delay, on a fixed
// interval, or on a cron schedule, submitting them to a worker pool.
//
// Basic Usage:
//
//	s := scheduler.New()
//	defer func() { <-s.Stop() }()
//
//	if err := s.Start(); err != nil {
//		log.Fatal(err)
//	}
//
//	task := workerpool.TaskFunc(func(ctx context.Context) error {
//		fmt.Println("tick")
//		return nil
//	})
//
//	s.ScheduleAfter("warmup", task, time.Second)
//	s.ScheduleRepeating("heartbeat", task, 30*time.Second)
//	s.ScheduleCron("nightly", "0 0 2 * * *", task)
//
// Cron Expressions:
//
// Expressions carry a leading seconds field and accept descriptors:
//
//	"*/5 * * * * *"   every 5 seconds
//	"0 30 9 * * 1-5"  09:30 on weekdays
//	"@hourly"         top of every hour
//
// Executor Instrumentation:
//
// When Config.WorkerPool is nil the scheduler builds its own pool through a
// metrics.Gate. If the gate is available the pool is registered with the
// metrics backend under Config.Category (default "scheduler") and tagged with
// Config.Name as its scheduler description:
//
//	gate := metrics.NewGate(metrics.NewPrometheusBackend(prometheus.DefaultRegisterer))
//	s, err := scheduler.NewWithConfig(scheduler.Config{
//		Gate:        gate,
//		WorkerCount: 8,
//		Name:        "Reports(8)",
//	})
//
// The owned pool is shut down by Stop. A caller-supplied pool is left running
// and its results channel is left to the caller.
//
// Failed tasks of an owned pool are logged through Config.Logger at Warn.
package scheduler
