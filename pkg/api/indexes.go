package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
)

// HandleCreateIndex creates indexes from a list of descriptors, e.g. [{"keys":{"name":1}}]
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	var descriptors []domain.IndexDescriptor
	if err := json.NewDecoder(r.Body).Decode(&descriptors); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(descriptors) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "at least one index descriptor is required")
		return
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	coll, err := m.GetCollection(r.Context(), collName)
	if err != nil {
		WriteError(w, err)
		return
	}

	results, err := m.Index(r.Context(), coll, descriptors)
	metrics.ObserveOperation("index", err)
	if err != nil {
		h.logger.Error("index creation failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}

	h.logger.Info("indexes created", "collection", collName, "count", len(results))
	writeJSON(w, http.StatusCreated, results)
}

// HandleGetIndexes handles GET requests to retrieve all indexes for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	coll, err := m.GetCollection(r.Context(), collName)
	if err != nil {
		WriteError(w, err)
		return
	}

	indexes, err := m.GetIndexes(r.Context(), coll)
	if err != nil {
		h.logger.Error("failed to get indexes", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, indexes)
}
