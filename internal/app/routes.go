package app

import (
	"net/http"

	"github.com/angularhub/hub/internal/auth"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Listing
	r.HandleFunc("/api/events", deps.ListingHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/events.ics", deps.ListingHandler.ExportEvents).Methods("GET")
	r.HandleFunc("/api/events.csv", deps.ListingHandler.ExportCSV).Methods("GET")
	r.HandleFunc("/api/languages", deps.ListingHandler.GetLanguages).Methods("GET")
	r.HandleFunc("/api/status", deps.ListingHandler.GetStatus).Methods("GET")

	// Admin
	r.Handle("/api/admin/reload", auth.RequireAuth(deps.AdminCredentials, http.HandlerFunc(deps.ListingHandler.Reload))).Methods("POST")
}
