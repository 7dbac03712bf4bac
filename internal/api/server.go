// Package api exposes the five-route HTTP surface: upload, process, status,
// query, cleanup.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rgaines3/medqa/internal/answer"
	"github.com/rgaines3/medqa/internal/config"
	"github.com/rgaines3/medqa/internal/pipeline"
	"github.com/rgaines3/medqa/internal/session"
)

// Extractor converts uploaded document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mime string) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	store     *session.Store
	extractor Extractor
	pipeline  *pipeline.Pipeline
	answerer  *answer.Answerer
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *session.Store, extractor Extractor, pl *pipeline.Pipeline, ans *answer.Answerer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:     store,
		extractor: extractor,
		pipeline:  pl,
		answerer:  ans,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/upload", s.handleUpload)
	r.Post("/process/{sid}", s.handleProcess)
	r.Get("/status/{sid}", s.handleStatus)
	r.Post("/query/{sid}", s.handleQuery)
	r.Delete("/cleanup/{sid}", s.handleCleanup)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
