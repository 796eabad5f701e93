package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/nagarseva/nagarseva/internal/events"
)

// HTTPHandler handles HTTP endpoints
type HTTPHandler struct {
	complaintHandler *ComplaintHandler
	hub              *events.Hub
}

// NewHTTPHandler creates a new HTTP handler. The hub is optional.
func NewHTTPHandler(complaintHandler *ComplaintHandler, hub *events.Hub) *HTTPHandler {
	return &HTTPHandler{
		complaintHandler: complaintHandler,
		hub:              hub,
	}
}

// SetupRoutes configures all HTTP routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	if h.complaintHandler != nil {
		mux.HandleFunc("/api/complaints", h.complaintHandler.HandleCollection)
		mux.HandleFunc("/api/complaints/", h.complaintHandler.HandleGet)
	}
	if h.hub != nil {
		mux.HandleFunc("/ws/events", h.hub.HandleWS)
	}
}

// handleHealth returns a simple health check response
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{
		"status":  "ok",
		"version": "1.0.0",
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
