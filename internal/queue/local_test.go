package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

func TestLocalQueueDeliversMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewLocalQueue(8, 3, nil)
	delivered := make(chan domain.QueueMessage, 1)

	go q.Consume(ctx, func(_ context.Context, message domain.QueueMessage) error {
		delivered <- message
		return nil
	})

	want := domain.QueueMessage{JobID: "job-1", Kind: domain.JobKindSummarize}
	if err := q.Enqueue(ctx, want); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case got := <-delivered:
		if got.JobID != "job-1" {
			t.Fatalf("unexpected message: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestLocalQueueRetriesThenDeadLetters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewLocalQueue(8, 2, nil)

	var mu sync.Mutex
	var deliveries []int
	done := make(chan struct{})

	go q.Consume(ctx, func(_ context.Context, message domain.QueueMessage) error {
		mu.Lock()
		deliveries = append(deliveries, message.Attempt)
		if len(deliveries) == 2 {
			close(done)
		}
		mu.Unlock()
		return errors.New("handler failed")
	})

	if err := q.Enqueue(ctx, domain.QueueMessage{JobID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expected two deliveries before the DLQ")
	}

	// The second failure hits maxAttempts and dead-letters the message.
	deadline := time.Now().Add(2 * time.Second)
	for q.DLQSize() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("message never reached the DLQ")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if deliveries[0] != 0 || deliveries[1] != 1 {
		t.Fatalf("attempts should increment across deliveries, got %v", deliveries)
	}
}

func TestLocalQueueRetryAbandonedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewLocalQueue(1, 3, nil)

	failed := make(chan struct{})
	blocked := make(chan struct{})
	release := make(chan struct{})
	go q.Consume(ctx, func(_ context.Context, message domain.QueueMessage) error {
		switch message.JobID {
		case "fails":
			close(failed)
			return errors.New("handler failed")
		default:
			close(blocked)
			<-release
			return nil
		}
	})

	// First message fails and schedules a delayed retry.
	if err := q.Enqueue(ctx, domain.QueueMessage{JobID: "fails"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-failed

	// Park the consumer in a handler and fill the buffer, so the retry
	// send has nowhere to go when its timer fires.
	if err := q.Enqueue(ctx, domain.QueueMessage{JobID: "blocks"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-blocked
	if err := q.Enqueue(ctx, domain.QueueMessage{JobID: "fills-buffer"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	time.Sleep(600 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	// Draining the buffer must not let the abandoned retry in.
	if got := <-q.ch; got.JobID != "fills-buffer" {
		t.Fatalf("unexpected buffered message: %+v", got)
	}
	select {
	case got := <-q.ch:
		t.Fatalf("retry delivered after shutdown: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
}

func TestLocalQueueConsumeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewLocalQueue(1, 3, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Consume(ctx, func(context.Context, domain.QueueMessage) error { return nil })
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop")
	}
}
