// Package asyncutil runs detached work whose result nobody waits for.
package asyncutil

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDetachTimeout = 2 * time.Minute

// Group tracks detached tasks so shutdown can wait for them to drain.
type Group struct {
	Logger  *slog.Logger
	Timeout time.Duration

	wg sync.WaitGroup
}

// Go starts fn on its own goroutine with a fresh background context bounded by
// the group's timeout. The caller never observes the outcome; completion and
// failure are logged as <name>_ok / <name>_failed.
func (g *Group) Go(name string, fn func(ctx context.Context) error, attrs ...any) {
	if fn == nil {
		return
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultDetachTimeout
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		started := time.Now()
		err := fn(ctx)
		args := append([]any{"duration", time.Since(started).String()}, attrs...)
		if err != nil {
			logger.Warn(name+"_failed", append(args, "error", err.Error())...)
			return
		}
		logger.Info(name+"_ok", args...)
	}()
}

// Wait blocks until every task started with Go has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
