package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/repository"
)

// Pinger is implemented by dependencies whose health the API reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	sm        domain.SQLManager
	resources domain.Namespace
	registry  *Registry
	version   string
}

// NewHandler creates a new API handler. resources may be nil.
func NewHandler(sm domain.SQLManager, resources domain.Namespace, registry *Registry, version string) *Handler {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Handler{
		sm:        sm,
		resources: resources,
		registry:  registry,
		version:   version,
	}
}

// RepositoryResponse is the response for GET /repositories/{name}.
type RepositoryResponse struct {
	repository.Descriptor
	SQL   string `json:"sql,omitempty"`
	Count *int64 `json:"count,omitempty"`
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.sm != nil {
		if err := h.sm.Ping(r.Context()); err != nil {
			slog.Warn("sql manager ping failed", "error", err)
			status = "degraded"
		}
	}

	// Only networked namespaces can be pinged.
	if p, ok := h.resources.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			slog.Warn("resource namespace ping failed", "error", err)
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether repositories have been built.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.registry.Len() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRepositories returns the descriptors of all built repositories.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	descriptors := h.registry.Descriptors()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"repositories": descriptors,
		"count":        len(descriptors),
	})
}

// GetRepository returns one repository with its bound SQL and, when
// ?count=true, the number of visible rows.
func (h *Handler) GetRepository(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	repo, ok := h.registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "repository not found",
		})
		return
	}

	resp := RepositoryResponse{Descriptor: repo.Describe()}
	if res := repo.BaseResource(); res != nil {
		resp.SQL = res.SQL
	}

	if r.URL.Query().Get("count") == "true" {
		n, err := repo.Count(r.Context())
		if err != nil {
			slog.Error("failed to count repository rows",
				"repository", name,
				"error", err,
				"trace_id", GetTraceID(r.Context()),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to count rows",
			})
			return
		}
		resp.Count = &n
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
