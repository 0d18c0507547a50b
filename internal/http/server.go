// Package http exposes the budgeting backend as a JSON API. The route layer
// stays thin: validation and orchestration live in the ledger service, the
// recurring engine handles the process-now triggers.
package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetd/internal/log"
	"budgetd/internal/middleware/ratelimit"
	"budgetd/internal/services"
)

type Server struct {
	http.Server
	ledger  *services.Ledger
	engine  *services.Engine
	logger  *log.Logger
	limiter *ratelimit.Limiter
}

func NewServer(addr string, ledger *services.Ledger, engine *services.Engine, logger *log.Logger) *Server {
	s := &Server{
		ledger:  ledger,
		engine:  engine,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.New(ratelimit.DefaultConfig()),
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware)

	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}", s.handleDeleteUser).Methods(http.MethodDelete)

	api.HandleFunc("/users/{userID}/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/categories/{id}", s.handleGetCategory).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/users/{userID}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/users/{userID}/recurring", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/recurring", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/recurring/{id}", s.handleGetRule).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/recurring/{id}", s.handleUpdateRule).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/recurring/{id}", s.handleDeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/recurring/{id}/process", s.handleProcessRule).Methods(http.MethodPost)

	api.HandleFunc("/recurring/process", s.handleProcessAll).Methods(http.MethodPost)

	s.Addr = addr
	s.Handler = r
	s.RegisterOnShutdown(s.limiter.Stop)
	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := generateRequestID()

		next.ServeHTTP(rec, r)

		s.logger.Info("HTTP request",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rec.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}
