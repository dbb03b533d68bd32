// Package server provides the HTTP API for MediBot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/consult"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
	"github.com/siddhikamalkar/AI-Medibot/internal/storage"
)

// Server is the HTTP server for the MediBot API. The doctor, lookup and catalog
// are optional; routes that need a missing one answer 501.
type Server struct {
	retriever *retriever.Retriever
	doctor    *consult.Doctor
	lookup    *keyword.Lookup
	catalog   storage.Catalog
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	retr *retriever.Retriever,
	doctor *consult.Doctor,
	lookup *keyword.Lookup,
	catalog storage.Catalog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		retriever: retr,
		doctor:    doctor,
		lookup:    lookup,
		catalog:   catalog,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/passages/search", s.handlePassageSearch)

		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/{id}", s.handleResetSession)
		r.Post("/sessions/{id}/consult", s.handleConsult)
		r.Post("/sessions/{id}/followup", s.handleFollowUp)
		r.Get("/sessions/{id}/log", s.handleSessionLog)

		r.Post("/transcribe", s.handleTranscribe)
		r.Post("/speech", s.handleSpeech)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
