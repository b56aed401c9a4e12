package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func newIngestTask() *domain.Task {
	return domain.NewIngestDocumentTask("bot-1", "doc-1", "/tmp/doc.txt", "doc.txt", "text/plain")
}

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil queue")
	}

	// Creating a second queue against the same stream must not fail
	if _, err := NewQueue(client, "test-worker-2"); err != nil {
		t.Fatalf("second queue creation failed: %v", err)
	}
}

func TestNewQueue_NilClient(t *testing.T) {
	if _, err := NewQueue(nil, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestEnqueueDequeue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

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
	if got.DocumentID() != "doc-1" {
		t.Errorf("got document ID %s, want doc-1", got.DocumentID())
	}
}

func TestDequeueEmpty(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	got, err := q.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task, got %+v", got)
	}
}

func TestAck(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

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

	// Nothing left to dequeue
	next, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if next != nil {
		t.Errorf("expected empty queue, got %+v", next)
	}
}

func TestNackTerminalFailure(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx := context.Background()
	// Ingest tasks have MaxAttempts 1; a nack is terminal
	task := newIngestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	if err := q.Nack(ctx, task.ID, "extraction failed"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("got status %s, want %s", got.Status, domain.TaskStatusFailed)
	}
	if got.Error != "extraction failed" {
		t.Errorf("got error %q, want %q", got.Error, "extraction failed")
	}

	next, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if next != nil {
		t.Errorf("terminal task must not be redelivered, got %+v", next)
	}
}

func TestNackWithRetry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx := context.Background()
	task := domain.NewTask(domain.TaskTypeIngestDocument, "bot-1", map[string]string{"document_id": "doc-1"})
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	if err := q.Nack(ctx, task.ID, "transient"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if got.Status != domain.TaskStatusPending {
		t.Errorf("got status %s, want %s", got.Status, domain.TaskStatusPending)
	}
	if got.Attempts != 1 {
		t.Errorf("got attempts %d, want 1", got.Attempts)
	}
	if !got.ScheduledFor.After(time.Now()) {
		t.Error("retried task should be scheduled in the future")
	}
}

func TestScheduledTaskPromotion(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx := context.Background()
	task := newIngestTask()
	task.ScheduledFor = time.Now().Add(1 * time.Hour)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Not due yet
	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got != nil {
		t.Fatalf("scheduled task delivered early: %+v", got)
	}

	// Move the due time into the past and dequeue again
	if err := client.ZAdd(ctx, scheduledTasks, redis.Z{
		Score:  float64(time.Now().Add(-time.Minute).Unix()),
		Member: task.ID,
	}).Err(); err != nil {
		t.Fatalf("failed to reschedule: %v", err)
	}

	got, err = q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected promoted task")
	}
	if got.ID != task.ID {
		t.Errorf("got task %s, want %s", got.ID, task.ID)
	}
}

func TestGetTaskMissing(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	got, err := q.GetTask(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}

func TestPing(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
