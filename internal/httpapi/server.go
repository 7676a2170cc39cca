// Package httpapi is the REST surface that lets other systems (the automation
// backend in particular) send messages, files and polls through the bot's
// WhatsApp session.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
)

const defaultMaxUploadBytes = 32 << 20

// Gateway is the subset of the WhatsApp client the API exposes.
type Gateway interface {
	IsConnected() bool
	SendText(ctx context.Context, chatID, text string) error
	SendFile(ctx context.Context, chatID string, f waclient.File) error
	SendPoll(ctx context.Context, chatID string, p waclient.Poll) error
	Chats(ctx context.Context) ([]waclient.Chat, error)
	Groups(ctx context.Context) ([]waclient.Group, error)
	Contacts(ctx context.Context) ([]waclient.Contact, error)
}

type Options struct {
	Gateway Gateway
	Logger  *slog.Logger
	// AuthToken, when set, is required as a bearer token on every endpoint
	// except / and /health.
	AuthToken      string
	MaxUploadBytes int64
	Metrics        http.Handler
	Now            func() time.Time
}

type Server struct {
	gateway        Gateway
	logger         *slog.Logger
	authToken      string
	maxUploadBytes int64
	metrics        http.Handler
	now            func() time.Time
}

func New(opts Options) (*Server, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("httpapi: gateway is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		gateway:        opts.Gateway,
		logger:         logger,
		authToken:      strings.TrimSpace(opts.AuthToken),
		maxUploadBytes: maxUpload,
		metrics:        opts.Metrics,
		now:            now,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/send", s.withAuth(s.handleSend))
	mux.HandleFunc("/send-file", s.withAuth(s.handleSendFile))
	mux.HandleFunc("/send-poll", s.withAuth(s.handleSendPoll))
	mux.HandleFunc("/chats", s.withAuth(s.handleChats))
	mux.HandleFunc("/groups", s.withAuth(s.handleGroups))
	mux.HandleFunc("/contacts", s.withAuth(s.handleContacts))
	if s.metrics != nil {
		mux.Handle("/metrics", s.withAuth(s.metrics.ServeHTTP))
	}
	return mux
}

// Serve runs the API on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_start", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		s.logger.Info("server_stop")
		return err
	}
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" && !checkAuth(r, s.authToken) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func checkAuth(r *http.Request, token string) bool {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	want := "Bearer " + strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setNoCacheHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setNoCacheHeaders(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(msg)})
}
