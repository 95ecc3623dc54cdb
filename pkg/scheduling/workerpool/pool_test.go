package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vnykmshr/poolmon/internal/testutil"
	pmerrors "github.com/vnykmshr/poolmon/pkg/common/errors"
	"github.com/vnykmshr/poolmon/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var _ metrics.Executor = Pool(nil)

// gatedTask blocks until release is closed, recording that it started.
type gatedTask struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedTask() *gatedTask {
	return &gatedTask{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedTask) Execute(ctx context.Context) error {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func noop() Task {
	return TaskFunc(func(_ context.Context) error { return nil })
}

func awaitResult(t *testing.T, pool Pool) Result {
	t.Helper()
	select {
	case r := <-pool.Results():
		return r
	case <-time.After(time.Second):
		t.Fatal("no result within 1s")
		return Result{}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"no workers", Config{WorkerCount: 0}, "WorkerCount"},
		{"negative workers", Config{WorkerCount: -4}, "WorkerCount"},
		{"queue below -1", Config{WorkerCount: 1, QueueSize: -2}, "QueueSize"},
		{"negative task timeout", Config{WorkerCount: 1, TaskTimeout: -time.Second}, "TaskTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)

			var verr *pmerrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "workerpool", verr.Module)
			assert.Equal(t, tt.field, verr.Field)

			_, err = NewSafe(tt.cfg)
			assert.ErrorIs(t, err, pmerrors.ErrInvalidConfiguration)
			assert.Panics(t, func() { NewWithConfig(tt.cfg) })
		})
	}

	for _, queue := range []int{-1, 0, 16} {
		assert.NoError(t, Config{WorkerCount: 2, QueueSize: queue}.Validate())
	}
}

func TestPoolReportsExecutorState(t *testing.T) {
	pool := New(2, 4)
	defer func() { <-pool.Shutdown() }()

	assert.Equal(t, 2, pool.Size())
	assert.Equal(t, 0, pool.ActiveWorkers())
	assert.Equal(t, 0, pool.QueueSize())

	first, second := newGatedTask(), newGatedTask()
	require.NoError(t, pool.Submit(first))
	require.NoError(t, pool.Submit(second))
	<-first.started
	<-second.started

	// Both workers busy, so these wait in the queue
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(noop()))
	}

	assert.Equal(t, 2, pool.ActiveWorkers())
	assert.Equal(t, 3, pool.QueueSize())
	assert.Equal(t, int64(5), pool.TotalSubmitted())
	assert.Equal(t, int64(0), pool.TotalCompleted())

	close(first.release)
	close(second.release)
	for i := 0; i < 5; i++ {
		awaitResult(t, pool)
	}

	assert.Equal(t, 0, pool.ActiveWorkers())
	assert.Equal(t, 0, pool.QueueSize())
	assert.Equal(t, int64(5), pool.TotalCompleted())
}

func TestResults(t *testing.T) {
	failure := errors.New("upstream refused")

	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{"success", noop(), nil},
		{"task error", TaskFunc(func(_ context.Context) error { return failure }), failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := New(1, 1)
			defer func() { <-pool.Shutdown() }()

			require.NoError(t, pool.Submit(tt.task))
			r := awaitResult(t, pool)

			assert.Equal(t, 0, r.WorkerID)
			assert.GreaterOrEqual(t, r.Duration, time.Duration(0))
			if tt.wantErr == nil {
				assert.NoError(t, r.Error)
			} else {
				assert.ErrorIs(t, r.Error, tt.wantErr)
			}
		})
	}
}

func TestPanicRecovery(t *testing.T) {
	explode := TaskFunc(func(_ context.Context) error { panic("worker state corrupted") })

	t.Run("reported as error", func(t *testing.T) {
		pool := New(1, 1)
		defer func() { <-pool.Shutdown() }()

		require.NoError(t, pool.Submit(explode))
		r := awaitResult(t, pool)
		require.Error(t, r.Error)
		assert.Contains(t, r.Error.Error(), "task panicked: worker state corrupted")

		// The worker survives
		require.NoError(t, pool.Submit(noop()))
		assert.NoError(t, awaitResult(t, pool).Error)
	})

	t.Run("custom handler", func(t *testing.T) {
		recovered := testutil.NewCallbackTracker()
		pool := NewWithConfig(Config{
			WorkerCount: 1,
			QueueSize:   1,
			PanicHandler: func(_ Task, r interface{}) {
				recovered.Mark(r)
			},
		})
		defer func() { <-pool.Shutdown() }()

		require.NoError(t, pool.Submit(explode))
		assert.NoError(t, awaitResult(t, pool).Error)
		recovered.AssertCallCount(t, 1)
		assert.Equal(t, "worker state corrupted", recovered.Value())
	})
}

func TestSubmitRejections(t *testing.T) {
	t.Run("nil task", func(t *testing.T) {
		pool := New(1, 1)
		defer func() { <-pool.Shutdown() }()

		assert.True(t, pmerrors.IsValidationError(pool.Submit(nil)))
		assert.True(t, pmerrors.IsValidationError(pool.Submit(TaskFunc(nil))))
		assert.Equal(t, int64(0), pool.TotalSubmitted())
	})

	t.Run("closed pool", func(t *testing.T) {
		pool := New(1, 1)
		<-pool.Shutdown()

		assert.ErrorIs(t, pool.Submit(noop()), pmerrors.ErrClosed)
	})

	t.Run("canceled context", func(t *testing.T) {
		pool := New(1, 1)
		defer func() { <-pool.Shutdown() }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, pool.SubmitWithContext(ctx, noop()), context.Canceled)
	})

	t.Run("full queue times out", func(t *testing.T) {
		pool := New(1, 1)
		defer func() { <-pool.Shutdown() }()

		busy := newGatedTask()
		require.NoError(t, pool.Submit(busy))
		<-busy.started
		require.NoError(t, pool.Submit(noop()))

		err := pool.SubmitWithTimeout(noop(), 10*time.Millisecond)
		assert.ErrorIs(t, err, pmerrors.ErrTimeout)
		assert.True(t, pmerrors.IsRetryable(err))
		assert.Equal(t, int64(2), pool.TotalSubmitted())

		close(busy.release)
	})
}

func TestTaskContext(t *testing.T) {
	t.Run("task timeout", func(t *testing.T) {
		pool := NewWithConfig(Config{WorkerCount: 1, QueueSize: 1, TaskTimeout: 20 * time.Millisecond})
		defer func() { <-pool.Shutdown() }()

		require.NoError(t, pool.Submit(newGatedTask()))
		assert.ErrorIs(t, awaitResult(t, pool).Error, context.DeadlineExceeded)
	})

	t.Run("submitter values reach the task", func(t *testing.T) {
		type key struct{}
		pool := New(1, 1)
		defer func() { <-pool.Shutdown() }()

		seen := make(chan interface{}, 1)
		ctx := context.WithValue(context.Background(), key{}, "parallel-exec1")
		require.NoError(t, pool.SubmitWithContext(ctx, TaskFunc(func(ctx context.Context) error {
			seen <- ctx.Value(key{})
			return nil
		})))
		awaitResult(t, pool)
		assert.Equal(t, "parallel-exec1", <-seen)
	})
}

func TestLifecycleHooks(t *testing.T) {
	var started atomic.Int32
	stopped := testutil.NewCallbackTracker()
	taskStart := testutil.NewCallbackTracker()
	taskDone := testutil.NewCallbackTracker()

	pool := NewWithConfig(Config{
		WorkerCount:    3,
		QueueSize:      1,
		OnWorkerStart:  func(int) { started.Add(1) },
		OnWorkerStop:   func(id int) { stopped.Mark(id) },
		OnTaskStart:    func(_ int, task Task) { taskStart.Mark(task) },
		OnTaskComplete: func(_ int, r Result) { taskDone.Mark(r) },
	})

	testutil.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, 5*time.Millisecond)

	task := newGatedTask()
	close(task.release)
	require.NoError(t, pool.Submit(task))
	awaitResult(t, pool)

	taskStart.AssertCallCount(t, 1)
	assert.Same(t, task, taskStart.Value())
	taskDone.AssertCallCount(t, 1)

	<-pool.Shutdown()
	stopped.AssertCallCount(t, 3)
}

func TestConcurrentSubmitCounters(t *testing.T) {
	const submitters, perSubmitter = 8, 25
	pool := NewWithConfig(Config{WorkerCount: 4, QueueSize: 32, BufferedResults: true})

	var executed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSubmitter; j++ {
				assert.NoError(t, pool.Submit(TaskFunc(func(_ context.Context) error {
					executed.Add(1)
					return nil
				})))
			}
		}()
	}

	var results int
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for range pool.Results() {
			results++
		}
	}()

	wg.Wait()
	<-pool.Shutdown()
	<-collected

	const total = submitters * perSubmitter
	assert.Equal(t, int64(total), executed.Load())
	assert.Equal(t, total, results)
	assert.Equal(t, int64(total), pool.TotalSubmitted())
	assert.Equal(t, int64(total), pool.TotalCompleted())
}

func TestShutdown(t *testing.T) {
	t.Run("same channel every call", func(t *testing.T) {
		pool := New(2, 2)
		first := pool.Shutdown()
		assert.Equal(t, first, pool.Shutdown())
		<-first
	})

	t.Run("queued tasks still run", func(t *testing.T) {
		pool := NewWithConfig(Config{WorkerCount: 1, QueueSize: 5, BufferedResults: true})

		busy := newGatedTask()
		require.NoError(t, pool.Submit(busy))
		<-busy.started
		for i := 0; i < 4; i++ {
			require.NoError(t, pool.Submit(noop()))
		}

		done := pool.Shutdown()
		close(busy.release)

		var results int
		for range pool.Results() {
			results++
		}
		<-done

		assert.Equal(t, 5, results)
		assert.Equal(t, int64(5), pool.TotalCompleted())
	})

	t.Run("timeout cancels running task", func(t *testing.T) {
		pool := NewWithConfig(Config{WorkerCount: 1, QueueSize: 1, BufferedResults: true})

		stuck := newGatedTask()
		require.NoError(t, pool.Submit(stuck))
		<-stuck.started

		select {
		case <-pool.ShutdownWithTimeout(20 * time.Millisecond):
		case <-time.After(time.Second):
			t.Fatal("timed shutdown did not complete")
		}

		r, ok := <-pool.Results()
		require.True(t, ok)
		assert.ErrorIs(t, r.Error, context.Canceled)
	})
}
