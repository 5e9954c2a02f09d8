// Package http exposes the card collection, the spending log and the
// recommendation engine as a small JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
	"cardwise/internal/recommend"
)

// CardService is the card-management surface the server exposes.
type CardService interface {
	Create(ctx context.Context, card core.Card) (core.Card, error)
	List(ctx context.Context) ([]core.Card, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SpendingService is the spending-log surface the server exposes.
type SpendingService interface {
	Record(ctx context.Context, cardID int64, amount float64, category string, date calendar.Date) (core.SpendingRecord, error)
	List(ctx context.Context, cardID *int64) ([]core.SpendingRecord, error)
}

// Recommender ranks cards for a prospective transaction.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]core.Recommendation, error)
}

type Server struct {
	http.Server

	cards       CardService
	spending    SpendingService
	recommender Recommender

	rateLimiter *rateLimiter
}

func NewServer(addr string, cards CardService, spending SpendingService, recommender Recommender) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		cards:       cards,
		spending:    spending,
		recommender: recommender,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/cards", s.withSecurityHeaders(s.handleCards))
	mux.HandleFunc("/cards/", s.withSecurityHeaders(s.handleCardByID))
	mux.HandleFunc("/spending", s.withSecurityHeaders(s.handleSpending))
	mux.HandleFunc("/recommendations", s.withSecurityHeaders(s.handleRecommendations))

	return s
}

// Shutdown stops the rate limiter before shutting down the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limiting applies to mutating requests only.
		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
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
