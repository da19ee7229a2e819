package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := New(context.Background(), 2)
	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		})
	}
	wg.Wait()
	if n != 10 {
		t.Fatalf("ran %d tasks, want 10", n)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(context.Background(), 2)
	var concurrent, maxSeen int64
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			cur := atomic.AddInt64(&concurrent, 1)
			for {
				seen := atomic.LoadInt64(&maxSeen)
				if cur <= seen || atomic.CompareAndSwapInt64(&maxSeen, seen, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&concurrent, -1)
		})
	}
	wg.Wait()
	if maxSeen > 2 {
		t.Fatalf("observed %d concurrent tasks, pool was bounded to 2", maxSeen)
	}
}

func TestPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(ctx, 1)
	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("pool did not observe context cancellation")
	}
}
