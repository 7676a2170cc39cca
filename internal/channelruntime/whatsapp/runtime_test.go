package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/llmutil"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

type fakeGateway struct {
	mu        sync.Mutex
	cb        GatewayCallbacks
	sent      []string
	connected chan struct{}
	closed    bool
}

func (g *fakeGateway) Connect(ctx context.Context) error {
	g.cb.OnConnected()
	close(g.connected)
	return nil
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) IsConnected() bool { return true }

func (g *fakeGateway) SendText(_ context.Context, chatID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, chatID+"|"+text)
	return nil
}

func (g *fakeGateway) SendFile(context.Context, string, waclient.File) error { return nil }
func (g *fakeGateway) SendPoll(context.Context, string, waclient.Poll) error { return nil }
func (g *fakeGateway) Chats(context.Context) ([]waclient.Chat, error)       { return nil, nil }
func (g *fakeGateway) Groups(context.Context) ([]waclient.Group, error)     { return nil, nil }
func (g *fakeGateway) Contacts(context.Context) ([]waclient.Contact, error) { return nil, nil }

func (g *fakeGateway) texts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sent...)
}

type scriptedLLM map[string]string

func (s scriptedLLM) Generate(_ context.Context, req llm.Request) (llm.Result, error) {
	reply, ok := s[req.Prompt]
	if !ok {
		return llm.Result{}, errors.New("unexpected prompt " + req.Prompt)
	}
	return llm.Result{Text: reply, Model: req.Model}, nil
}

type backendCounter struct {
	mu    sync.Mutex
	paths map[string]int
	runs  []map[string]string
}

func (b *backendCounter) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paths[path]
}

func newBackend(t *testing.T) (*httptest.Server, *backendCounter) {
	t.Helper()
	counter := &backendCounter{paths: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.mu.Lock()
		counter.paths[r.URL.Path]++
		counter.mu.Unlock()
		switch r.URL.Path {
		case "/api/suites":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `[{"path":"suiteA"},{"path":"suiteB"}]`)
		case "/api/run":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			counter.mu.Lock()
			counter.runs = append(counter.runs, body)
			counter.mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, counter
}

func startRuntime(t *testing.T, backendURL string, replies scriptedLLM) (*fakeGateway, context.CancelFunc, <-chan error) {
	t.Helper()
	gw := &fakeGateway{connected: make(chan struct{})}
	deps := Dependencies{
		Logger: func() (*slog.Logger, error) {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
		},
		LLMConfig: func() llmutil.ClientConfig {
			return llmutil.ClientConfig{Provider: "ollama", Model: "llama3"}
		},
		CreateLLMClient: func(llmutil.ClientConfig) (llm.Client, error) {
			return replies, nil
		},
		OpenGateway: func(_ context.Context, _ *slog.Logger, cb GatewayCallbacks) (Gateway, error) {
			gw.cb = cb
			return gw, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, deps, RunOptions{AutomationBaseURL: backendURL, MaxConcurrency: 2})
	}()
	select {
	case <-gw.connected:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("gateway never connected")
	}
	return gw, cancel, done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func stopRuntime(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunRefreshesSuitesOnConnectAndAnswersList(t *testing.T) {
	backend, counter := newBackend(t)
	gw, cancel, done := startRuntime(t, backend.URL, scriptedLLM{"daftar": `{"action":"list"}`})

	if counter.count("/api/suites") != 1 {
		t.Fatalf("suites fetched %d times on connect, want 1", counter.count("/api/suites"))
	}

	gw.cb.OnMessage(waclient.IncomingMessage{ID: "1", ChatID: "628111@c.us", Text: "halo semua"})
	gw.cb.OnMessage(waclient.IncomingMessage{ID: "2", ChatID: "628111@c.us", Text: "#TanyaBadru daftar"})
	waitFor(t, func() bool { return len(gw.texts()) >= 2 })
	stopRuntime(t, cancel, done)

	texts := gw.texts()
	if len(texts) != 2 {
		t.Fatalf("sent = %q", texts)
	}
	if !strings.HasPrefix(texts[1], "628111@c.us|📋 Daftar Test Suites:") || !strings.Contains(texts[1], "🧪 1. suiteA\n🧪 2. suiteB") {
		t.Fatalf("list reply = %q", texts[1])
	}
	gw.mu.Lock()
	closed := gw.closed
	gw.mu.Unlock()
	if !closed {
		t.Fatalf("gateway should be closed on shutdown")
	}
}

func TestRunDrainsDetachedRunRequestsOnShutdown(t *testing.T) {
	backend, counter := newBackend(t)
	gw, cancel, done := startRuntime(t, backend.URL, scriptedLLM{
		"jalankan suiteA": `{"action":"run","testsuite_path":"suiteA"}`,
	})

	gw.cb.OnMessage(waclient.IncomingMessage{ID: "1", ChatID: "628222@c.us", Text: "#TanyaBadru jalankan suiteA"})
	waitFor(t, func() bool { return len(gw.texts()) >= 3 })
	stopRuntime(t, cancel, done)

	if got := counter.count("/api/run"); got != 1 {
		t.Fatalf("run requests = %d, want 1", got)
	}
	counter.mu.Lock()
	body := counter.runs[0]
	counter.mu.Unlock()
	if body["testsuite_path"] != "suiteA" || body["phone_number"] != "628222@c.us" {
		t.Fatalf("run body = %v", body)
	}
}

func TestNormalizeRunOptionsDefaults(t *testing.T) {
	got := normalizeRunOptions(RunOptions{ServerListen: " 127.0.0.1:3001 "})
	if got.TriggerPrefix != "#TanyaBadru" || got.Persona != "Badru" || got.Timezone != "Asia/Jakarta" {
		t.Fatalf("string defaults = %#v", got)
	}
	if got.TaskTimeout != 5*time.Minute || got.MaxConcurrency != 4 || got.RunTimeout != 2*time.Minute {
		t.Fatalf("numeric defaults = %#v", got)
	}
	if got.AutomationBaseURL != "http://127.0.0.1:5006" || got.AutomationRequestTimeout != 30*time.Second {
		t.Fatalf("automation defaults = %#v", got)
	}
	if got.ServerListen != "127.0.0.1:3001" || got.MaxUploadBytes != 32<<20 {
		t.Fatalf("server options = %#v", got)
	}
}

func TestNormalizeRunOptionsKeepsExplicitValues(t *testing.T) {
	got := normalizeRunOptions(RunOptions{
		TriggerPrefix:  " !bot ",
		MaxConcurrency: 9,
		TaskTimeout:    time.Minute,
		Timezone:       "Asia/Makassar",
	})
	if got.TriggerPrefix != "!bot" || got.MaxConcurrency != 9 || got.TaskTimeout != time.Minute || got.Timezone != "Asia/Makassar" {
		t.Fatalf("explicit options lost: %#v", got)
	}
}

func TestRunRequiresLogger(t *testing.T) {
	if err := Run(context.Background(), Dependencies{}, RunOptions{}); err == nil {
		t.Fatalf("expected missing logger error")
	}
}
