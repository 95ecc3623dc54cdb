package metrics

import (
	"errors"
	"sync"
	"sync/atomic"
)

// fakeExecutor reports fixed pool state.
type fakeExecutor struct {
	size      int
	active    int
	queued    int
	submitted int64
	completed int64
}

func (f *fakeExecutor) Size() int             { return f.size }
func (f *fakeExecutor) ActiveWorkers() int    { return f.active }
func (f *fakeExecutor) QueueSize() int        { return f.queued }
func (f *fakeExecutor) TotalSubmitted() int64 { return f.submitted }
func (f *fakeExecutor) TotalCompleted() int64 { return f.completed }

type monitorCall struct {
	exec     Executor
	category string
	tags     Tags
}

// recordingBackend records Monitor calls and counts probes.
type recordingBackend struct {
	probeErr   error
	probePanic bool
	monitorErr error
	probes     atomic.Int32

	mu    sync.Mutex
	calls []monitorCall
}

func (b *recordingBackend) Probe() error {
	b.probes.Add(1)
	if b.probePanic {
		panic("registry not initialized")
	}
	return b.probeErr
}

func (b *recordingBackend) Monitor(exec Executor, category string, tags Tags) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.monitorErr != nil {
		return b.monitorErr
	}
	b.calls = append(b.calls, monitorCall{exec: exec, category: category, tags: tags})
	return nil
}

func (b *recordingBackend) Calls() []monitorCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]monitorCall, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *recordingBackend) IDs() []string {
	calls := b.Calls()
	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = c.tags.ExecutorID
	}
	return ids
}

var errUnreachable = errors.New("registry unreachable")
