package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleListDatabases lists the databases opened since the server started
func (h *Handler) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases": h.managers.Databases(),
	})
}

// HandleListCollections lists the collections of a database
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"database":    mux.Vars(r)["db"],
		"collections": m.Database().CollectionNames(),
	})
}
