package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTask struct {
	mock.Mock
}

func (m *MockTask) RunOnce(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func countingTask(err error) (*MockTask, *atomic.Int32) {
	var runs atomic.Int32
	task := new(MockTask)
	task.On("RunOnce", mock.Anything).Run(func(mock.Arguments) { runs.Add(1) }).Return(err)
	return task, &runs
}

func TestWorker_RunsImmediatelyThenStops(t *testing.T) {
	task, runs := countingTask(nil)
	worker := NewWorker("test", task, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	worker.Stop()
	wg.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestWorker_PollsUntilContextCancelled(t *testing.T) {
	task, runs := countingTask(errors.New("store unavailable"))
	worker := NewWorker("test", task, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
