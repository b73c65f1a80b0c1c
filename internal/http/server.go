// Package http serves the JSON API over the ledger engine. Handlers stay
// thin: they parse, call the store or the pure ledger functions, and render.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hadaf/internal/backend"
	"hadaf/internal/cache"
	"hadaf/internal/core"
	"hadaf/internal/ledger"
	"hadaf/internal/log"
	"hadaf/internal/services"
)

type Server struct {
	http.Server

	store     backend.Backend
	processor *services.RecurringProcessor

	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Derived views are cheap to rebuild but requested constantly; both
	// caches are dropped wholesale on any write.
	summaryCache *cache.LRUCache[ledger.Summary]
	reportCache  *cache.LRUCache[[]ledger.CategoryTotal]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store backend.Backend, processor *services.RecurringProcessor, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           nil, // set below, after middleware wrapping
			ReadHeaderTimeout: 5 * time.Second,
		},
		store:        store,
		processor:    processor,
		logger:       logger,
		structured:   log.NewStructuredLogger(logger),
		rateLimiter:  newRateLimiter(120),
		metrics:      &securityMetrics{},
		summaryCache: cache.NewLRUCache[ledger.Summary](16, 5*time.Minute),
		reportCache:  cache.NewLRUCache[[]ledger.CategoryTotal](64, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/balances", s.handleBalances)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("GET /api/accounts/{id}/ledger", s.handleAccountLedger)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/recurring", s.handleListRules)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRule)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRule)
	mux.HandleFunc("POST /api/recurring/catch-up", s.handleCatchUp)

	mux.HandleFunc("GET /api/reports/categories", s.handleCategoryReport)
	mux.HandleFunc("GET /api/reports/categories/{name}", s.handleCategoryHistory)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	s.Server.Handler = s.middleware(mux)
	return s
}

// middleware wraps the mux with security headers, per-IP rate limiting and
// request logging.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r, s.metrics)

		securityHeaders(w)

		if !s.rateLimiter.allow(clientIP, s.metrics) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}

		ctx := r.Context()
		logger := s.logger.With(log.FieldRequestID, generateRequestID())
		ctx = context.WithValue(ctx, log.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.structured.LogHTTPEnd(ctx, r, rec.status, time.Since(start).Milliseconds(), clientIP)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// invalidateCaches drops every derived view. Called after any write.
func (s *Server) invalidateCaches() {
	s.summaryCache.Clear()
	s.reportCache.Clear()
}

// Shutdown gracefully stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady verifies the store answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListAccounts(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// loadLedger fetches the two collections nearly every read handler needs.
func (s *Server) loadLedger(ctx context.Context) ([]core.Account, []core.Transaction, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return accounts, txs, nil
}
