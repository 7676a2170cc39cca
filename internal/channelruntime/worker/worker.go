// Package worker runs chat jobs serially per conversation with a shared cap on
// how many conversations are handled at once.
package worker

import (
	"context"
	"errors"
	"sync"
)

const defaultQueueSize = 16

var ErrStopped = errors.New("worker pool stopped")

type Options[J any] struct {
	MaxConcurrency int
	QueueSize      int
	Handle         func(context.Context, J)
}

// Pool keeps one queue and goroutine per key while the key has pending jobs.
// Jobs sharing a key run in enqueue order; at most MaxConcurrency handlers run
// across all keys. A key's worker exits once its queue drains.
type Pool[J any] struct {
	ctx       context.Context
	sem       chan struct{}
	handle    func(context.Context, J)
	queueSize int

	mu     sync.Mutex
	queues map[string]*keyQueue[J]
	wg     sync.WaitGroup
}

type keyQueue[J any] struct {
	jobs chan J
	// pending counts jobs enqueued or being enqueued but not yet handled.
	// Guarded by Pool.mu.
	pending int
}

// NewPool returns a pool whose workers live until ctx is cancelled.
func NewPool[J any](ctx context.Context, opts Options[J]) *Pool[J] {
	if ctx == nil {
		ctx = context.Background()
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	handle := opts.Handle
	if handle == nil {
		handle = func(context.Context, J) {}
	}
	return &Pool[J]{
		ctx:       ctx,
		sem:       make(chan struct{}, maxConc),
		handle:    handle,
		queueSize: queueSize,
		queues:    make(map[string]*keyQueue[J]),
	}
}

// Enqueue hands job to the worker for key, starting it on first use. It blocks
// while the key's queue is full.
func (p *Pool[J]) Enqueue(ctx context.Context, key string, job J) error {
	if ctx == nil {
		ctx = p.ctx
	}
	if p.ctx.Err() != nil {
		return ErrStopped
	}
	q := p.acquire(key)
	select {
	case <-ctx.Done():
		p.release(key, q)
		return ctx.Err()
	case <-p.ctx.Done():
		p.release(key, q)
		return ErrStopped
	case q.jobs <- job:
		return nil
	}
}

// Wait blocks until every worker has exited. Workers exit once the pool
// context is cancelled and their current job returns.
func (p *Pool[J]) Wait() {
	p.wg.Wait()
}

// acquire returns the queue for key with its pending count raised, starting a
// worker when the key has none.
func (p *Pool[J]) acquire(key string) *keyQueue[J] {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.queues[key]
	if !ok {
		q = &keyQueue[J]{jobs: make(chan J, p.queueSize)}
		p.queues[key] = q
		p.wg.Add(1)
		go p.run(key, q)
	}
	q.pending++
	return q
}

// release drops one pending job. When the key goes idle its queue is removed
// and closed; nothing can be sending on it at that point.
func (p *Pool[J]) release(key string, q *keyQueue[J]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	q.pending--
	if q.pending > 0 {
		return false
	}
	if p.queues[key] == q {
		delete(p.queues, key)
	}
	close(q.jobs)
	return true
}

func (p *Pool[J]) activeKeys() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues)
}

func (p *Pool[J]) run(key string, q *keyQueue[J]) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			select {
			case p.sem <- struct{}{}:
			case <-p.ctx.Done():
				return
			}
			func() {
				defer func() { <-p.sem }()
				p.handle(p.ctx, job)
			}()
			if p.release(key, q) {
				return
			}
		}
	}
}
