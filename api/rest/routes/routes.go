package routes

import (
	"github.com/gorilla/mux"

	"github.com/dronreef2/3dPot2-sub000/api/rest/handlers"
	"github.com/dronreef2/3dPot2-sub000/core/playback"
	"github.com/dronreef2/3dPot2-sub000/core/store"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, st *store.Store, renderer *playback.Renderer, loader *playback.ModelLoader) {
	simHandler := handlers.NewSimulationHandler(st)
	playbackHandler := handlers.NewPlaybackHandler(renderer, loader)
	statusHandler := handlers.NewStatusHandler(st)

	api := r.PathPrefix("/v1").Subrouter()

	// Simulation lifecycle endpoints
	api.HandleFunc("/simulations", simHandler.Submit).Methods("POST")
	api.HandleFunc("/simulations/current", simHandler.Current).Methods("GET")
	api.HandleFunc("/simulations/current", simHandler.Delete).Methods("DELETE")
	api.HandleFunc("/simulations/current/clear", simHandler.Clear).Methods("POST")
	api.HandleFunc("/simulations/validate", simHandler.Validate).Methods("POST")
	api.HandleFunc("/simulations/history", simHandler.History).Methods("GET")
	api.HandleFunc("/simulations/templates", simHandler.Templates).Methods("GET")
	api.HandleFunc("/simulations/compare", simHandler.Compare).Methods("POST")

	// Playback endpoints
	api.HandleFunc("/playback", playbackHandler.Get).Methods("GET")
	api.HandleFunc("/playback/play", playbackHandler.Play).Methods("POST")
	api.HandleFunc("/playback/pause", playbackHandler.Pause).Methods("POST")
	api.HandleFunc("/playback/reset", playbackHandler.Reset).Methods("POST")
	api.HandleFunc("/playback/model", playbackHandler.LoadModel).Methods("POST")

	// Dashboard endpoints
	api.HandleFunc("/status", statusHandler.Get).Methods("GET")
	api.HandleFunc("/cache/clear", statusHandler.ClearCache).Methods("POST")
}
