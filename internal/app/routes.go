package app

import (
	"github.com/daypick/daypick/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Events
	r.HandleFunc("/api/event", deps.EventHandler.Create).Methods("POST")
	r.HandleFunc("/api/event/{eventId}", deps.EventHandler.Get).Methods("GET")
	r.HandleFunc("/api/event/{eventId}/results", deps.EventHandler.OpenResults).Methods("POST")
	r.HandleFunc("/api/event/{eventId}/finalize", deps.EventHandler.Finalize).Methods("POST")

	// Attendees
	r.HandleFunc("/api/event/{eventId}/join", deps.AttendeeHandler.Join).Methods("POST")
	r.HandleFunc("/api/event/{eventId}/attendee", deps.AttendeeHandler.Current).Methods("GET")
	r.HandleFunc("/api/event/{eventId}/attendee", deps.AttendeeHandler.SwitchName).Methods("PUT")
	r.HandleFunc("/api/event/{eventId}/names", deps.AttendeeHandler.ListNames).Methods("GET")

	// Votes
	r.HandleFunc("/api/event/{eventId}/vote", deps.VoteHandler.Cast).Methods("PUT")
	r.HandleFunc("/api/event/{eventId}/vote", deps.VoteHandler.Current).Methods("GET")
	r.HandleFunc("/api/event/{eventId}/vote/tally", deps.VoteHandler.Tally).Methods("GET")

	// Blocked days
	r.HandleFunc("/api/event/{eventId}/blocks", deps.DayBlockHandler.Submit).Methods("PUT")
	r.HandleFunc("/api/event/{eventId}/blocks", deps.DayBlockHandler.List).Methods("GET")

	// Results
	r.HandleFunc("/api/event/{eventId}/availability", deps.AvailabilityHandler.Results).Methods("GET")

	// Deadline sweep
	r.HandleFunc("/api/sweep", deps.EventHandler.Sweep).Methods("POST")

	// Login
	r.HandleFunc("/api/auth/google/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/auth/google/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/auth/google/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/user/current", deps.GoogleAuth.CurrentUser).Methods("GET")
}
