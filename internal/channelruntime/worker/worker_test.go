package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type job struct {
	key string
	seq int
}

func TestPoolKeepsPerKeyOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string][]int{}
		done sync.WaitGroup
	)
	p := NewPool(ctx, Options[job]{
		MaxConcurrency: 2,
		Handle: func(_ context.Context, j job) {
			defer done.Done()
			mu.Lock()
			seen[j.key] = append(seen[j.key], j.seq)
			mu.Unlock()
		},
	})

	for i := 0; i < 10; i++ {
		for _, key := range []string{"a", "b", "c"} {
			done.Add(1)
			if err := p.Enqueue(context.Background(), key, job{key: key, seq: i}); err != nil {
				t.Fatalf("Enqueue() error = %v", err)
			}
		}
	}
	done.Wait()
	cancel()
	p.Wait()

	for key, seqs := range seen {
		if len(seqs) != 10 {
			t.Fatalf("key %s handled %d jobs, want 10", key, len(seqs))
		}
		for i, s := range seqs {
			if s != i {
				t.Fatalf("key %s out of order: %v", key, seqs)
			}
		}
	}
}

func TestPoolCapsConcurrency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		done    sync.WaitGroup
	)
	p := NewPool(ctx, Options[int]{
		MaxConcurrency: 2,
		Handle: func(_ context.Context, _ int) {
			defer done.Done()
			n := active.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
		},
	})
	for i := 0; i < 8; i++ {
		done.Add(1)
		if err := p.Enqueue(context.Background(), string(rune('a'+i)), i); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	done.Wait()
	cancel()
	p.Wait()

	if got := maxSeen.Load(); got > 2 {
		t.Fatalf("max concurrent handlers = %d, want <= 2", got)
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, Options[int]{})
	cancel()
	p.Wait()
	if err := p.Enqueue(context.Background(), "a", 1); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue() error = %v, want ErrStopped", err)
	}
}

func TestPoolReapsIdleKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done sync.WaitGroup
	p := NewPool(ctx, Options[int]{
		MaxConcurrency: 2,
		Handle:         func(context.Context, int) { done.Done() },
	})
	for i := 0; i < 20; i++ {
		done.Add(1)
		if err := p.Enqueue(context.Background(), fmt.Sprintf("chat-%d", i%5), i); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	done.Wait()
	waitForIdle(t, p)

	// A reaped key starts a fresh worker on its next job.
	done.Add(1)
	if err := p.Enqueue(context.Background(), "chat-0", 99); err != nil {
		t.Fatalf("Enqueue() after reap error = %v", err)
	}
	done.Wait()
	waitForIdle(t, p)

	cancel()
	p.Wait()
}

func TestPoolCancelledEnqueueReleasesKey(t *testing.T) {
	poolCtx, stop := context.WithCancel(context.Background())
	defer stop()

	release := make(chan struct{})
	p := NewPool(poolCtx, Options[int]{
		MaxConcurrency: 1,
		QueueSize:      1,
		Handle:         func(context.Context, int) { <-release },
	})
	// First job blocks in the handler, second fills the queue.
	for i := 0; i < 2; i++ {
		if err := p.Enqueue(context.Background(), "a", i); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Enqueue(ctx, "a", 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() error = %v, want deadline exceeded", err)
	}
	close(release)
	waitForIdle(t, p)
	stop()
	p.Wait()
}

func waitForIdle[J any](t *testing.T, p *Pool[J]) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.activeKeys() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("active keys = %d, want 0", p.activeKeys())
		}
		time.Sleep(time.Millisecond)
	}
}
