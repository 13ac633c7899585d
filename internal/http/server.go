// Package http exposes the tracker over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"coffeecounter/internal/cache"
	applog "coffeecounter/internal/log"
	"coffeecounter/internal/service"
)

// Server wraps http.Server with the API routes, a per-IP rate limiter
// and a short-TTL cache for the dashboard read model.
type Server struct {
	http.Server
	tracker     *service.Tracker
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Dashboard responses are cached briefly and invalidated on every
	// mutation, so read-heavy clients do not serialize on the tracker
	// lock.
	dashCache    *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, tracker *service.Tracker) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		tracker:      tracker,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		dashCache:    cache.NewLRUCache[[]byte](8, 2*time.Second),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/count", s.withMiddleware(s.handleCount))
	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/api/achievements", s.withMiddleware(s.handleAchievements))
	mux.HandleFunc("/api/items", s.withMiddleware(s.handleItems))
	mux.HandleFunc("/api/items/", s.withMiddleware(s.handleItemByID))
	mux.HandleFunc("/api/prices/", s.withMiddleware(s.handleSetPrice))
	mux.HandleFunc("/api/reset/today", s.withMiddleware(s.handleResetToday))
	mux.HandleFunc("/api/reset/all", s.withMiddleware(s.handleResetAll))
	mux.HandleFunc("/api/export", s.withMiddleware(s.handleExport))

	return s
}

// Shutdown stops the HTTP listener and all background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting on mutating
// methods and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		logger := applog.FromContext(ctx)
		logger.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP, limitClassFor(r.URL.Path), s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
