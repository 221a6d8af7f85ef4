package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
)

// DeleteRequest is the optional body of a delete
type DeleteRequest struct {
	Query map[string]interface{} `json:"query"`
}

// HandleDelete handles DELETE requests removing matching documents.
// The query comes from the body or, when the body is empty, the filter parameter.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]
	h.logger.Debug("handleDelete called", "collection", collName)

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("decoding body failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == nil {
		filter, err := parseObject(r.URL.Query().Get("filter"), "filter")
		if err != nil {
			WriteError(w, err)
			return
		}
		req.Query = filter
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	deleted, err := m.Delete(r.Context(), connection.DeleteRequest{
		Query:      req.Query,
		Collection: collName,
	})
	metrics.ObserveOperation("delete", err)
	if err != nil {
		h.logger.Error("delete failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}
	metrics.DocumentsAffected.WithLabelValues("delete").Add(float64(deleted))

	h.logger.Info("delete completed", "collection", collName, "deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}
