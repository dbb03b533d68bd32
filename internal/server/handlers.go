package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
	"github.com/siddhikamalkar/AI-Medibot/internal/storage"
)

const defaultSearchLimit = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := CollectStatus(r.Context(), s.retriever, s.catalog, s.lookup, s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// CollectStatus gathers the corpus summary. catalog and lookup may be nil.
func CollectStatus(ctx context.Context, retr *retriever.Retriever, catalog storage.Catalog, lookup *keyword.Lookup, cfg *config.Config) (*models.Status, error) {
	art := retr.Artifact()
	status := &models.Status{
		ModelID:    art.ModelID,
		Dimensions: art.Dim,
		Chunks:     art.Len(),
		IndexType:  cfg.Retrieval.IndexType,
		TopK:       retr.TopK(),
	}
	if catalog != nil {
		sources, err := catalog.CountSources(ctx)
		if err != nil {
			return nil, err
		}
		passages, err := catalog.CountPassages(ctx)
		if err != nil {
			return nil, err
		}
		status.Sources = sources
		status.CatalogPassages = passages
	}
	if lookup != nil {
		n, err := lookup.DocCount()
		if err != nil {
			return nil, err
		}
		status.KeywordPassages = n
	}
	usage, err := storage.MeasureUsage(cfg.Corpus.ArtifactPath, cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, err
	}
	status.ArtifactBytes = usage.ArtifactBytes
	status.DatabaseBytes = usage.DatabaseBytes
	status.KeywordBytes = usage.KeywordBytes
	status.DiskUsageBytes = usage.Total()
	return status, nil
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.retriever.TopK()); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))

	start := time.Now()
	passages, err := s.retriever.Passages(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("retrieve failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RetrieveResponse{
		Query:     req.Query,
		Context:   retriever.Join(passages),
		Passages:  passages,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handlePassageSearch(w http.ResponseWriter, r *http.Request) {
	if s.lookup == nil {
		s.respondError(w, http.StatusNotImplemented, "passage search not enabled")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, models.MaxTopK)
	}
	var opts *keyword.SearchOptions
	if r.URL.Query().Get("fuzzy") == "true" {
		opts = &keyword.SearchOptions{FuzzyEnabled: true, Fuzziness: 1}
	}

	start := time.Now()
	passages, corrected, err := s.lookup.Search(r.Context(), q, limit, opts)
	if err != nil {
		s.logger.Error("passage search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.PassageSearchResponse{
		Query:          q,
		CorrectedQuery: corrected,
		Passages:       passages,
		Total:          len(passages),
		QueryTime:      time.Since(start).Milliseconds(),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
