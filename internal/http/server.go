// Package http serves the budget dashboard: session-gated pages rendered
// server side, form-driven writes and a server-sent event stream that tells
// the browser to refresh when the user's collection changes.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"planner/internal/auth"
	"planner/internal/cache"
	"planner/internal/core"
	"planner/internal/live"
	"planner/internal/services"
	appweb "planner/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	auth        *auth.Service
	txs         *services.TransactionService
	hub         *live.Hub
	rateLimiter *rateLimiter

	// per-user snapshot of the full collection, invalidated on every write
	snapshotCache *cache.LRU[[]core.Transaction]

	sweepCancel  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, txSvc *services.TransactionService, hub *live.Hub) *Server {
	mux := http.NewServeMux()

	sweepCtx, sweepCancel := context.WithCancel(context.Background())

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:          authSvc,
		txs:           txSvc,
		hub:           hub,
		rateLimiter:   newRateLimiter(),
		snapshotCache: cache.New[[]core.Transaction](200, 5*time.Minute),
		sweepCancel:   sweepCancel,
	}

	go s.snapshotCache.CleanEvery(sweepCtx, 10*time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Public surface: the gate sends signed-in visitors back to the dashboard.
	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))

	// Gated surface: everything else needs a resolved session.
	mux.HandleFunc("/", s.withSecurityHeaders(s.withUser(s.handleDashboard)))
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.withUser(s.handleCreateTransaction)))
	mux.HandleFunc("/transactions/update", s.withSecurityHeaders(s.withUser(s.handleUpdateTransaction)))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.withUser(s.handleDeleteTransaction)))
	mux.HandleFunc("/chart-data", s.withSecurityHeaders(s.withUserJSON(s.handleChartData)))
	mux.HandleFunc("/events", s.withSecurityHeaders(s.withUserJSON(s.handleEvents)))

	return s
}

// Shutdown stops the sweep goroutines along with the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.sweepCancel()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting on writes and
// request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code. It
// keeps Flush working for the event stream.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// listTransactions returns the user's full collection, newest first, serving
// from the snapshot cache when it is warm.
func (s *Server) listTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if snap, found := s.snapshotCache.Get(userID); found {
		out := make([]core.Transaction, len(snap))
		copy(out, snap)
		return out, nil
	}

	list, err := s.txs.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	s.snapshotCache.Set(userID, list)
	return list, nil
}

func (s *Server) invalidateSnapshot(userID string) {
	s.snapshotCache.Delete(userID)
}
