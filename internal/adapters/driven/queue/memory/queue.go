// Package memory implements the task queue in process memory. Tasks do
// not survive restarts; intended for development and single-node
// deployments without Redis.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

const defaultCapacity = 256

// Queue implements TaskQueue with a buffered channel and a task table.
type Queue struct {
	mu     sync.Mutex
	tasks  map[string]*domain.Task
	ready  chan string
	closed bool
}

// NewQueue creates an in-memory task queue.
func NewQueue() *Queue {
	return &Queue{
		tasks: make(map[string]*domain.Task),
		ready: make(chan string, defaultCapacity),
	}
}

// Enqueue adds a task to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("queue is closed")
	}
	clone := *task
	q.tasks[task.ID] = &clone
	q.mu.Unlock()

	if task.ScheduledFor.After(time.Now()) {
		go q.deliverAt(task.ID, task.ScheduledFor)
		return nil
	}

	select {
	case q.ready <- task.ID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DequeueWithTimeout retrieves the next available task, waiting up to
// timeout seconds.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	timer := time.NewTimer(time.Duration(timeout) * time.Second)
	defer timer.Stop()

	for {
		select {
		case taskID, ok := <-q.ready:
			if !ok {
				return nil, nil
			}
			q.mu.Lock()
			task, exists := q.tasks[taskID]
			if !exists {
				q.mu.Unlock()
				continue
			}
			task.MarkProcessing()
			clone := *task
			q.mu.Unlock()
			return &clone, nil
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, nil
		}
	}
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return errors.New("task not found")
	}
	task.MarkCompleted()
	return nil
}

// Nack indicates task processing failed. The task is redelivered with
// backoff while attempts remain, otherwise marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return errors.New("task not found")
	}

	if task.CanRetry() {
		task.Retry(reason)
		scheduledFor := task.ScheduledFor
		q.mu.Unlock()
		go q.deliverAt(taskID, scheduledFor)
		return nil
	}

	task.MarkFailed(reason)
	q.mu.Unlock()
	return nil
}

// GetTask retrieves a task by ID.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

// Ping reports whether the queue is still accepting tasks.
func (q *Queue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue closed")
	}
	return nil
}

// Close stops delivery. Pending tasks are dropped.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ready)
	}
	return nil
}

// deliverAt re-queues a task once its scheduled time arrives.
func (q *Queue) deliverAt(taskID string, at time.Time) {
	if d := time.Until(at); d > 0 {
		time.Sleep(d)
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return
	}

	defer func() {
		// Racing with Close; dropping the task is fine
		_ = recover()
	}()
	q.ready <- taskID
}
