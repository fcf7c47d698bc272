// Package server provides the HTTP REST API for shipment document cross-verification.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/freight-doc-review/internal/analysis"
	"github.com/jonathan/freight-doc-review/internal/config"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/db"
	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/metrics"
	"github.com/jonathan/freight-doc-review/internal/resilience"
	"github.com/jonathan/freight-doc-review/internal/server/middleware"
	"github.com/jonathan/freight-doc-review/internal/server/ratelimit"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// Store is the persistence the handlers need. *db.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	ListDocumentsByQuotation(ctx context.Context, quotationID string) ([]types.Document, error)
	QuotationExists(ctx context.Context, quotationID string) (bool, error)

	GetRule(ctx context.Context, id uuid.UUID) (*types.ComparisonRule, error)
	ListRules(ctx context.Context, userID string) ([]types.ComparisonRule, error)
	CreateRule(ctx context.Context, req *types.CreateRuleRequest) (*types.ComparisonRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, req *types.UpdateRuleRequest) (*types.ComparisonRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error

	GetSetting(ctx context.Context, userID, category, key string) (json.RawMessage, error)
	UpsertSetting(ctx context.Context, userID, category, key string, value any) error

	ListHistory(ctx context.Context, quotationID string) ([]types.AnalysisHistory, error)
	GetHistory(ctx context.Context, id uuid.UUID) (*types.AnalysisHistory, error)
}

// Analyzer runs a cross-document analysis. *analysis.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalyzeRequest) (*types.AnalyzeResponse, error)
}

// Dependencies are the collaborators of a Server.
// Metrics and RateLimiter are optional.
type Dependencies struct {
	Store          Store
	Analyzer       Analyzer
	Metrics        *metrics.Metrics
	RateLimiter    *ratelimit.Limiter
	AllowedOrigins []string
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	store          Store
	analyzer       Analyzer
	metrics        *metrics.Metrics
	rateLimiter    *ratelimit.Limiter
	allowedOrigins []string
	closers        []func()
}

// New connects to the database and wires the analysis pipeline for cfg.
func New(cfg *config.ServerConfig) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := metrics.New("doc-review")
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	clients := llm.NewCachingFactory(cfg.LLMConfig(), executor, llm.WithObserver(m))

	service := analysis.NewService(analysis.Dependencies{
		Documents:   database,
		Rules:       database,
		History:     database,
		Credentials: credentials.NewResolver(database, cfg.GeminiAPIKey),
		Clients:     clients,
		Recorder:    m,
	}, analysis.Options{
		MaxConcurrency:    cfg.MaxConcurrency,
		DownloadTimeout:   cfg.DownloadTimeout,
		ExtractionTimeout: cfg.ExtractionTimeout,
		ComparisonTimeout: cfg.ComparisonTimeout,
	})

	s := NewWithDependencies(Dependencies{
		Store:          database,
		Analyzer:       service,
		Metrics:        m,
		RateLimiter:    ratelimit.NewLimiter(ratelimit.LoadConfig()),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	s.httpServer.Addr = fmt.Sprintf(":%d", cfg.Port)
	s.closers = append(s.closers,
		func() {
			if err := clients.Close(); err != nil {
				log.Printf("Error closing model clients: %v", err)
			}
		},
		database.Close,
	)

	return s, nil
}

// NewWithDependencies builds a server around already constructed collaborators.
func NewWithDependencies(deps Dependencies) *Server {
	s := &Server{
		store:          deps.Store,
		analyzer:       deps.Analyzer,
		metrics:        deps.Metrics,
		rateLimiter:    deps.RateLimiter,
		allowedOrigins: deps.AllowedOrigins,
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for model-backed analyses
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /document-comparison/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /document-comparison/documents", s.handleListDocuments)

	mux.HandleFunc("GET /document-comparison/rules", s.handleListRules)
	mux.HandleFunc("POST /document-comparison/rules", s.handleCreateRule)
	mux.HandleFunc("GET /document-comparison/rules/{id}", s.handleGetRule)
	mux.HandleFunc("PUT /document-comparison/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /document-comparison/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("GET /document-comparison/history", s.handleListHistory)
	mux.HandleFunc("GET /document-comparison/history/{id}", s.handleGetHistory)

	mux.HandleFunc("GET /settings/ai", s.handleGetAISettings)
	mux.HandleFunc("POST /settings/ai", s.handleSaveAISettings)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var handler http.Handler = s.withCORS(mux)
	handler = s.withLogging(handler)
	if s.metrics != nil {
		handler = s.metrics.Middleware(handler)
	}
	handler = s.withRateLimit(handler)
	handler = middleware.Recovery(handler)
	return middleware.RequestID(handler)
}

// Start begins listening for requests
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.rateLimiter.Stop()
	for _, closeFn := range s.closers {
		closeFn()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers. With no allowed origins configured every origin is accepted.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.allowedOrigins) > 0 {
			origin = ""
			if reqOrigin := r.Header.Get("Origin"); slices.Contains(s.allowedOrigins, reqOrigin) {
				origin = reqOrigin
				w.Header().Add("Vary", "Origin")
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.RequestIDFromContext(r.Context())
		log.Printf("[%s] %s %s request_id=%s", r.Method, r.URL.Path, r.RemoteAddr, reqID)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v request_id=%s", r.Method, r.URL.Path, time.Since(start), reqID)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.Printf("[health] database ping failed: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFromErr maps err to a status and a client-safe message.
func (s *Server) errorFromErr(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s failed request_id=%s: %v", r.Method, r.URL.Path, middleware.RequestIDFromContext(r.Context()), err)
	}
	s.errorResponse(w, status, PublicMessage(err))
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "Invalid request body: " + err.Error()}
	}
	return nil
}

// parseIDPath parses the {id} path value as a UUID.
func parseIDPath(r *http.Request, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "Invalid " + what + " ID"}
	}
	return id, nil
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retryAfter := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = retryAfter
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	}

	log.Printf("[rate-limit] Rate limit exceeded: %s %s Limit=%d Reset=%s",
		r.Method, r.URL.Path, info.Limit, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
