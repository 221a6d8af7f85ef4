package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
)

// HandleFind handles GET requests to find documents.
// Query parameters: filter, sort and fields (JSON objects), limit and skip.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]
	h.logger.Debug("handleFind called", "collection", collName)

	filter, opts, err := parseFindParams(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	result, err := m.Find(r.Context(), connection.FindRequest{
		Query:      filter,
		Collection: collName,
		Options:    opts,
	})
	metrics.ObserveOperation("find", err)
	if err != nil {
		h.logger.Warn("find failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}

	h.logger.Info("find completed", "collection", collName, "matched", result.Metadata.TotalCount, "returned", len(result.Results))
	writeJSON(w, http.StatusOK, result)
}
