package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/nagarseva/nagarseva/internal/database"
	"github.com/nagarseva/nagarseva/internal/middleware"
	"github.com/nagarseva/nagarseva/internal/triage"
	"github.com/nagarseva/nagarseva/internal/utils"
)

// ComplaintHandler exposes the triage pipeline over a thin JSON surface.
type ComplaintHandler struct {
	pipeline *triage.Pipeline
	store    *database.ComplaintStore
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(pipeline *triage.Pipeline, store *database.ComplaintStore) *ComplaintHandler {
	return &ComplaintHandler{pipeline: pipeline, store: store}
}

type submitRequest struct {
	ReporterID  string   `json:"reporter_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type submitResponse struct {
	Outcome     string  `json:"outcome"` // "created" or "merged"
	UUID        string  `json:"uuid"`
	MergedInto  string  `json:"merged_into,omitempty"`
	Department  string  `json:"department"`
	Confidence  float64 `json:"confidence"`
	Priority    float64 `json:"priority"`
	Band        string  `json:"band"`
	ReportCount int     `json:"report_count"`
}

type listResponse struct {
	Complaints []database.Complaint `json:"complaints"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// HandleCollection dispatches the /api/complaints collection endpoint.
// POST submits a report, GET lists root issues.
func (h *ComplaintHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSubmit processes a new citizen report.
func (h *ComplaintHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	sub := triage.Submission{
		ReporterID:  req.ReporterID,
		Title:       utils.CleanTitle(req.Title),
		Description: utils.CleanDescription(req.Description),
		Address:     req.Address,
	}
	if req.Latitude != nil && req.Longitude != nil {
		sub.Latitude = *req.Latitude
		sub.Longitude = *req.Longitude
		sub.HasLocation = true
	}

	outcome, err := h.pipeline.Process(r.Context(), sub)
	switch {
	case errors.Is(err, triage.ErrEmptyTitle), errors.Is(err, triage.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, triage.ErrMergeContention):
		// Retryable: the submission raced other duplicates; nothing was
		// written.
		writeError(w, http.StatusServiceUnavailable, "triage busy, retry the submission")
		return
	case err != nil:
		log.Printf("Triage failed (request %s, title %q): %v",
			middleware.GetRequestID(r.Context()), utils.EscapeForLogging(sub.Title, 80), err)
		writeError(w, http.StatusInternalServerError, "triage failed")
		return
	}

	resp := submitResponse{
		UUID:       outcome.Complaint.UUID,
		Department: outcome.Complaint.Department,
		Confidence: outcome.Complaint.Confidence,
	}
	if outcome.Created {
		resp.Outcome = "created"
		resp.Priority = outcome.Complaint.Priority
		resp.Band = outcome.Complaint.PriorityBand
		resp.ReportCount = outcome.Complaint.ReportCount
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	resp.Outcome = "merged"
	resp.MergedInto = outcome.Root.UUID
	resp.Priority = outcome.Root.Priority
	resp.Band = outcome.Root.PriorityBand
	resp.ReportCount = outcome.Root.ReportCount
	writeJSON(w, http.StatusOK, resp)
}

// handleList returns a page of root issues for operator dashboards, filterable
// by status and department.
func (h *ComplaintHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	filter := database.ListFilter{
		Status:     database.ComplaintStatus(r.URL.Query().Get("status")),
		Department: r.URL.Query().Get("department"),
	}

	complaints, total, err := h.store.ListRoots(filter, page.PerPage, page.offset())
	if err != nil {
		log.Printf("Failed to list complaints (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if complaints == nil {
		complaints = []database.Complaint{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Complaints: complaints,
		Page:       page.Page,
		PerPage:    page.PerPage,
		Total:      total,
		TotalPages: page.totalPages(total),
	})
}

// HandleGet returns a complaint by UUID.
// Route: GET /api/complaints/{uuid}
func (h *ComplaintHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uuid := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/complaints/"), "/")
	if !utils.IsUUID(uuid) {
		writeError(w, http.StatusBadRequest, "malformed complaint uuid")
		return
	}

	complaint, err := h.store.GetByUUID(uuid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "complaint not found")
		return
	}
	if err != nil {
		log.Printf("Failed to load complaint %s: %v", uuid, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}
