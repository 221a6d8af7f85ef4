package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
)

// ManagerSource resolves the connected manager of a database
type ManagerSource interface {
	Manager(ctx context.Context, database string) (*connection.Manager, error)
	Databases() []string
}

// Handler provides HTTP handlers for the database API
type Handler struct {
	managers ManagerSource
	logger   *slog.Logger
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(managers ManagerSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		managers: managers,
		logger:   logger,
	}
}

// manager resolves the {db} route variable, writing the error response on failure
func (h *Handler) manager(w http.ResponseWriter, r *http.Request) (*connection.Manager, bool) {
	dbName := mux.Vars(r)["db"]
	m, err := h.managers.Manager(r.Context(), dbName)
	if err != nil {
		h.logger.Error("connect failed", "database", dbName, "error", err)
		WriteError(w, err)
		return nil, false
	}
	return m, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
