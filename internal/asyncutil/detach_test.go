package asyncutil

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestGoLogsOutcomeAndWaitDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	g := &Group{Logger: slog.New(slog.NewTextHandler(&out, nil)), Timeout: time.Second}

	release := make(chan struct{})
	g.Go("run_trigger", func(ctx context.Context) error {
		<-release
		return nil
	}, "suite", "suiteA")
	g.Go("run_trigger", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	close(release)
	g.Wait()

	logs := out.String()
	if !strings.Contains(logs, "msg=run_trigger_ok") || !strings.Contains(logs, "suite=suiteA") {
		t.Fatalf("missing ok record: %s", logs)
	}
	if !strings.Contains(logs, "msg=run_trigger_failed") || !strings.Contains(logs, "connection refused") {
		t.Fatalf("missing failed record: %s", logs)
	}
}

func TestGoAppliesTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &Group{Logger: slog.New(slog.NewTextHandler(&syncBuffer{}, nil)), Timeout: 20 * time.Millisecond}
	var gotErr error
	g.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		gotErr = ctx.Err()
		return gotErr
	})
	g.Wait()
	if !errors.Is(gotErr, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", gotErr)
	}
}

func TestGoNilFuncIsNoop(t *testing.T) {
	g := &Group{}
	g.Go("noop", nil)
	g.Wait()
}
