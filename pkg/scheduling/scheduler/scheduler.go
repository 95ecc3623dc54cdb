package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
	"github.com/vnykmshr/poolmon/pkg/common/validation"
	"github.com/vnykmshr/poolmon/pkg/metrics"
	"github.com/vnykmshr/poolmon/pkg/scheduling/workerpool"
)

// DefaultCategory is the executor category of pools created by a scheduler.
const DefaultCategory = "scheduler"

const maxIDLength = 255

// Task represents a scheduled task.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time tasks
	Cron     string        // Empty unless scheduled with ScheduleCron
	Created  time.Time
}

// Scheduler provides task scheduling with cron support.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, task workerpool.Task, runAt time.Time) error
	ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error
	ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, task workerpool.Task) error

	// Task management
	Cancel(id string) bool
	CancelAll()
	List() []Task

	// Pool returns the pool tasks are submitted to.
	Pool() workerpool.Pool

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// WorkerPool receives due tasks. If nil, the scheduler creates and owns
	// a pool of WorkerCount workers, instrumented through Gate.
	WorkerPool workerpool.Pool

	WorkerCount int // Workers of the owned pool (default: 4)
	QueueSize   int // Queue of the owned pool (default: 100)

	// Gate registers the owned pool for monitoring. Nil leaves it uninstrumented.
	Gate *metrics.Gate

	// Category and Name label the owned pool. Defaults are DefaultCategory
	// and "Scheduler(<WorkerCount>)".
	Category string
	Name     string

	Location     *time.Location // For cron scheduling
	TickInterval time.Duration  // How often to check for ready tasks (default: 50ms)
	MaxTasks     int            // Maximum number of scheduled tasks (default: 10000)

	Logger *zap.Logger // Task failures and dropped submissions (default: no-op)
}

type scheduledTask struct {
	id           string
	task         workerpool.Task
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
}

// scheduler is a clean, focused implementation.
type scheduler struct {
	pool         workerpool.Pool
	ownPool      bool
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	cronParser   cron.Parser
	logger       *zap.Logger

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	drain   sync.WaitGroup
	running bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	s, err := NewWithConfig(Config{})
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) (Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond // Reasonable default
	}

	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10000 // Reasonable default
	}

	s := &scheduler{
		pool:         cfg.WorkerPool,
		location:     location,
		tickInterval: tickInterval,
		maxTasks:     maxTasks,
		cronParser:   cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:       logger,
		tasks:        make(map[string]*scheduledTask),
	}

	if s.pool == nil {
		pool, err := newOwnedPool(cfg)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.ownPool = true

		s.drain.Add(1)
		go s.drainResults()
	}

	return s, nil
}

func newOwnedPool(cfg Config) (workerpool.Pool, error) {
	workers := cfg.WorkerCount
	if workers == 0 {
		workers = 4
	}
	queue := cfg.QueueSize
	if queue == 0 {
		queue = 100
	}
	category := cfg.Category
	if category == "" {
		category = DefaultCategory
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("Scheduler(%d)", workers)
	}

	return workerpool.NewInstrumented(workerpool.Config{
		WorkerCount: workers,
		QueueSize:   queue,
	}, category, name, cfg.Gate)
}

// drainResults consumes the owned pool's results so workers never wait on
// delivery, logging failed tasks.
func (s *scheduler) drainResults() {
	defer s.drain.Done()
	for result := range s.pool.Results() {
		if result.Error != nil {
			s.logger.Warn("scheduled task failed",
				zap.Int("worker", result.WorkerID),
				zap.Duration("duration", result.Duration),
				zap.Error(result.Error),
			)
		}
	}
}

func validateTask(id string, task workerpool.Task) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("scheduler", "id", id, maxIDLength); err != nil {
		return err
	}
	return validation.ValidateNotNil("scheduler", "task", task)
}

// add stores t unless its ID is taken or the scheduler is full.
func (s *scheduler) add(t *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", t.id)
	}

	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("cannot schedule task: maximum number of tasks (%d) reached", s.maxTasks)
	}

	s.tasks[t.id] = t
	return nil
}

func (s *scheduler) Schedule(id string, task workerpool.Task, runAt time.Time) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if runAt.IsZero() {
		return fmt.Errorf("task run time cannot be zero")
	}

	return s.add(&scheduledTask{
		id:      id,
		task:    task,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error {
	if err := validation.ValidateNonNegative("scheduler", "delay", float64(delay)); err != nil {
		return err
	}
	return s.Schedule(id, task, time.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	now := time.Now()
	return s.add(&scheduledTask{
		id:       id,
		task:     task,
		runAt:    now,
		interval: interval,
		created:  now,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, task workerpool.Task) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("scheduler", "cron", cronExpr); err != nil {
		return err
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return s.add(&scheduledTask{
		id:           id,
		task:         task,
		runAt:        schedule.Next(time.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		created:      time.Now(),
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
}

func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Created:  t.created,
		})
	}

	// Sort by run time
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

func (s *scheduler) Pool() workerpool.Pool {
	return s.pool
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.loop.Add(1)
	go s.run(ctx)
	return nil
}

// Stop halts the tick loop and, for an owned pool, shuts the pool down.
// The returned channel closes once both are done.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.loop.Wait()
		if s.ownPool {
			<-s.pool.Shutdown()
			s.drain.Wait()
		}
	}()

	return stopped
}

func (s *scheduler) run(ctx context.Context) {
	defer s.loop.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processReadyTasks()
		}
	}
}

func (s *scheduler) processReadyTasks() {
	now := time.Now()

	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return // Quick exit if no tasks
	}

	readyTasks := make([]*scheduledTask, 0, len(s.tasks))

	for id, task := range s.tasks {
		if !now.Before(task.runAt) {
			readyTasks = append(readyTasks, task)

			// Handle rescheduling
			switch {
			case task.interval > 0:
				task.runAt = now.Add(task.interval)
			case task.cronSchedule != nil:
				task.runAt = task.cronSchedule.Next(now.In(s.location))
			default:
				delete(s.tasks, id)
			}
		}
	}
	s.mu.Unlock()

	// Execute ready tasks; a full queue must not stall the tick loop
	for _, task := range readyTasks {
		if err := s.pool.SubmitWithTimeout(task.task, s.tickInterval); err != nil {
			s.logger.Warn("scheduled task not submitted",
				zap.String("id", task.id),
				zap.Bool("retryable", pmerrors.IsRetryable(err)),
				zap.Error(err),
			)
		}
	}
}
