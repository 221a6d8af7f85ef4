package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Database operations
	router.HandleFunc("/databases", h.HandleListDatabases).Methods("GET")
	router.HandleFunc("/databases/{db}/collections", h.HandleListCollections).Methods("GET")

	// Collection operations
	router.HandleFunc("/databases/{db}/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/databases/{db}/collections/{coll}", h.HandleFind).Methods("GET")
	router.HandleFunc("/databases/{db}/collections/{coll}", h.HandleUpdate).Methods("PUT", "PATCH")
	router.HandleFunc("/databases/{db}/collections/{coll}", h.HandleDelete).Methods("DELETE")
	router.HandleFunc("/databases/{db}/collections/{coll}/count", h.HandleCount).Methods("GET")

	// Index operations
	router.HandleFunc("/databases/{db}/collections/{coll}/indexes", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/databases/{db}/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
}
