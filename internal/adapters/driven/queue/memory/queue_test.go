package memory

import (
	"context"
	"testing"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

func newIngestTask() *domain.Task {
	return domain.NewIngestDocumentTask("bot-1", "doc-1", "/tmp/doc.txt", "doc.txt", "text/plain")
}

func TestEnqueueDequeue(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx := context.Background()
	task := newIngestTask()

	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("got task %s, want %s", got.ID, task.ID)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("got status %s, want %s", got.Status, domain.TaskStatusProcessing)
	}
}

func TestDequeueTimeout(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	start := time.Now()
	got, err := q.DequeueWithTimeout(context.Background(), 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task, got %+v", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("dequeue took too long: %v", elapsed)
	}
}

func TestAckCompletes(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx := context.Background()
	task := newIngestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("got status %s, want %s", got.Status, domain.TaskStatusCompleted)
	}
}

func TestNackTerminal(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx := context.Background()
	task := newIngestTask() // MaxAttempts 1
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	if err := q.Nack(ctx, task.ID, "boom"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("got status %s, want %s", got.Status, domain.TaskStatusFailed)
	}

	next, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if next != nil {
		t.Errorf("terminal task must not be redelivered, got %+v", next)
	}
}

func TestGetTaskReturnsCopy(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx := context.Background()
	task := newIngestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	got.Status = domain.TaskStatusFailed

	again, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if again.Status != domain.TaskStatusPending {
		t.Errorf("mutating a returned task leaked into the queue: %s", again.Status)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	q := NewQueue()
	q.Close()

	if err := q.Enqueue(context.Background(), newIngestTask()); err == nil {
		t.Fatal("expected error after close")
	}
}
