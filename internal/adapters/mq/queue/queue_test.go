package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func job(id string) Job { return Job{ID: id, Source: id + ".png", Image: []byte(id)} }

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("job1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" {
		t.Errorf("expected job1, got %v", got.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) || !q.Enqueue(ctx, job("b")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PutBlocksUntilSpace(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Put(ctx, job("a")); err != nil {
		t.Fatalf("put: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Put(ctx, job("b")) }()

	select {
	case err := <-done:
		t.Fatalf("put returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	out := q.Dequeue(ctx)
	<-out
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("put: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("put did not unblock")
	}
}

func TestInMemoryQueue_PutHonoursContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	_ = q.Put(context.Background(), job("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Put(ctx, job("b")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_CloseWakesBlockedPut(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	_ = q.Put(context.Background(), job("a"))

	done := make(chan error, 1)
	go func() { done <- q.Put(context.Background(), job("b")) }()
	time.Sleep(10 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked put was not released by close")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Put(ctx, job(fmt.Sprintf("job%d_%d", id, j))); err != nil {
					t.Errorf("put: %v", err)
					return
				}
			}
		}(i)
	}

	consumed := make(chan string, producers*perProducer)
	out := q.Dequeue(ctx)
	var cwg sync.WaitGroup
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for j := range out {
			consumed <- j.ID
		}
	}()

	wg.Wait()
	_ = q.Close()
	cwg.Wait()

	if n := len(consumed); n != producers*perProducer {
		t.Errorf("expected %d jobs, got %d", producers*perProducer, n)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) || !q.Enqueue(ctx, job("b")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail after closing")
	}
	if err := q.Put(ctx, job("c")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Jobs queued before Close are still delivered, then the channel closes.
	var ids []string
	timeout := time.After(time.Second)
	out := q.Dequeue(ctx)
	for {
		select {
		case j, ok := <-out:
			if !ok {
				if len(ids) != 2 {
					t.Errorf("expected 2 drained jobs, got %v", ids)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			ids = append(ids, j.ID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
