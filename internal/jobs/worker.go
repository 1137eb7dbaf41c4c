package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of periodic background work.
type Task interface {
	RunOnce(ctx context.Context) error
}

// Worker runs a Task immediately and then on every poll interval until
// stopped.
type Worker struct {
	name         string
	task         Task
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(name string, task Task, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		task:         task,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("%s: worker started (interval %v)", w.name, w.pollInterval)
	w.run(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s: worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("%s: worker stopped", w.name)
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	if err := w.task.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.Printf("%s: %v", w.name, err)
	}
}

// Stop signals the loop and waits for the in-flight run to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
