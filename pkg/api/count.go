package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
)

// CountResponse is the body returned by HandleCount
type CountResponse struct {
	Count int `json:"count"`
}

// HandleCount handles GET requests that count matching documents.
// Query parameters: filter (JSON object).
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	filter, err := parseObject(r.URL.Query().Get("filter"), "filter")
	if err != nil {
		WriteError(w, err)
		return
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	count, err := m.Count(r.Context(), connection.CountRequest{
		Query:      filter,
		Collection: collName,
	})
	metrics.ObserveOperation("count", err)
	if err != nil {
		h.logger.Warn("count failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}
