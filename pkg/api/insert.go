package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
	"github.com/adfharrison1/go-filestore/pkg/schema"
)

// InsertRequest is the body of an insert: one document or a list, plus an optional JSON Schema
type InsertRequest struct {
	Data   interface{} `json:"data"`
	Schema interface{} `json:"schema,omitempty"`
}

// HandleInsert handles POST requests to insert documents into collections
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]
	h.logger.Debug("handleInsert called", "collection", collName)

	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("decoding body failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	docs, err := domain.NormalizeDocuments(req.Data)
	if err != nil {
		WriteError(w, err)
		return
	}

	if !schema.IsEmpty(req.Schema) {
		validator, err := schema.Compile(req.Schema)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validator.Validate(docs); err != nil {
			h.logger.Info("insert rejected by schema", "collection", collName, "error", err)
			WriteError(w, err)
			return
		}
	}

	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	inserted, err := m.Insert(r.Context(), connection.InsertRequest{
		Data:       docs,
		Collection: collName,
		Schema:     req.Schema,
	})
	metrics.ObserveOperation("insert", err)
	if err != nil {
		h.logger.Error("insert failed", "collection", collName, "error", err)
		WriteError(w, err)
		return
	}
	metrics.DocumentsAffected.WithLabelValues("insert").Add(float64(len(inserted)))

	h.logger.Info("insert successful", "collection", collName, "count", len(inserted))
	writeJSON(w, http.StatusCreated, inserted)
}
