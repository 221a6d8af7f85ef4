package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
)

// UpdateRequest is the body of an update
type UpdateRequest struct {
	Query  map[string]interface{} `json:"query"`
	Update map[string]interface{} `json:"update"`
}

// UpdateResponse reports the documents an update changed
type UpdateResponse struct {
	Updated int               `json:"updated"`
	Results []domain.Document `json:"results"`
}

// HandleUpdate handles PUT/PATCH requests applying $set/$inc to matching documents
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]
	h.logger.Debug("handleUpdate called", "collection", collName)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("decoding body failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Update) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "update is required")
		return
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	updated, err := m.Update(r.Context(), connection.UpdateRequest{
		Query:      req.Query,
		Collection: collName,
		Update:     req.Update,
	})
	metrics.ObserveOperation("update", err)
	if err != nil {
		h.logger.Error("update failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}
	metrics.DocumentsAffected.WithLabelValues("update").Add(float64(len(updated)))

	h.logger.Info("update completed", "collection", collName, "updated", len(updated))
	writeJSON(w, http.StatusOK, UpdateResponse{Updated: len(updated), Results: updated})
}
