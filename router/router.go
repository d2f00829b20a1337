// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quota-gate/cliparse"
	"github.com/danielhkuo/quota-gate/handlers"
	"github.com/danielhkuo/quota-gate/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	validationHandler := handlers.NewValidationHandler(db, cfg)
	statsHandler := handlers.NewStatsHandler(db, cfg)
	configHandler := handlers.NewConfigHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Participant admission (public)
	mux.HandleFunc("POST /quota/validate", middleware.WithLogging(validationHandler.Validate))

	// Stats and administration
	mux.HandleFunc("GET /research/{researchId}/quota/stats", middleware.WithLogging(statsHandler.GetStats))
	mux.HandleFunc("POST /quota/reset", middleware.WithLogging(statsHandler.Reset))

	// Quota configuration (study setup)
	mux.HandleFunc("PUT /research/{researchId}/quota-config", middleware.WithLogging(configHandler.SaveConfig))
	mux.HandleFunc("GET /research/{researchId}/quota-config", middleware.WithLogging(configHandler.GetConfig))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quota-gate API v1"))
	})

	return mux
}
