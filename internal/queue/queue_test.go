package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTask(t *testing.T) {
	q := New(context.Background(), 2)
	defer q.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	var ran int32
	q.Submit(func(ctx context.Context) {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run within timeout")
	}

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("task should have run")
	}
}

func TestQueueRecoversFromPanic(t *testing.T) {
	q := New(context.Background(), 1)
	defer q.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	q.Submit(func(ctx context.Context) {
		defer wg.Done()
		panic("boom")
	})
	var secondRan int32
	q.Submit(func(ctx context.Context) {
		defer wg.Done()
		atomic.StoreInt32(&secondRan, 1)
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not complete within timeout")
	}

	if atomic.LoadInt32(&secondRan) != 1 {
		t.Error("a panic in one task must not prevent later tasks from running")
	}
}

func TestSubmitAfterStopReturnsFalse(t *testing.T) {
	q := New(context.Background(), 1)
	q.Stop()

	if q.Submit(func(ctx context.Context) {}) {
		t.Error("Submit() after Stop() should return false")
	}
}
