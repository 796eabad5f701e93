package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nagarseva/nagarseva/internal/classify"
	"github.com/nagarseva/nagarseva/internal/database"
	"github.com/nagarseva/nagarseva/internal/lexicon"
	"github.com/nagarseva/nagarseva/internal/priority"
	"github.com/nagarseva/nagarseva/internal/spatial"
	"github.com/nagarseva/nagarseva/internal/triage"
)

func setupServer(t *testing.T) *http.ServeMux {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	lex := lexicon.Default()
	store := database.NewComplaintStore(db)
	pipeline := triage.NewPipeline(triage.DefaultConfig(), lex, store, spatial.NewIndex(100),
		classify.NewEngine(lex), priority.NewEngine(lex, nil), nil)

	mux := http.NewServeMux()
	NewHTTPHandler(NewComplaintHandler(pipeline, store), nil).SetupRoutes(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmit_CreatesComplaint(t *testing.T) {
	mux := setupServer(t)

	rec := postJSON(t, mux, "/api/complaints", map[string]interface{}{
		"reporter_id": "citizen-7",
		"title":       "No water supply since morning",
		"description": "The pipe near the temple is leaking",
		"latitude":    12.9716,
		"longitude":   77.5946,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp["outcome"] != "created" {
		t.Errorf("expected created outcome, got %v", resp["outcome"])
	}
	if resp["department"] != "water" {
		t.Errorf("expected water department, got %v", resp["department"])
	}
	if resp["uuid"] == "" {
		t.Error("expected a public uuid")
	}
}

func TestHandleSubmit_MergesDuplicate(t *testing.T) {
	mux := setupServer(t)

	payload := map[string]interface{}{
		"title":     "Pothole on Main Street",
		"latitude":  12.9716,
		"longitude": 77.5946,
	}
	first := postJSON(t, mux, "/api/complaints", payload)
	if first.Code != http.StatusCreated {
		t.Fatalf("first submit: expected 201, got %d", first.Code)
	}
	var firstResp map[string]interface{}
	json.Unmarshal(first.Body.Bytes(), &firstResp)

	second := postJSON(t, mux, "/api/complaints", payload)
	if second.Code != http.StatusOK {
		t.Fatalf("duplicate submit: expected 200, got %d: %s", second.Code, second.Body.String())
	}
	var secondResp map[string]interface{}
	json.Unmarshal(second.Body.Bytes(), &secondResp)

	if secondResp["outcome"] != "merged" {
		t.Errorf("expected merged outcome, got %v", secondResp["outcome"])
	}
	if secondResp["merged_into"] != firstResp["uuid"] {
		t.Errorf("expected merge into %v, got %v", firstResp["uuid"], secondResp["merged_into"])
	}
	if secondResp["report_count"].(float64) != 2 {
		t.Errorf("expected report count 2, got %v", secondResp["report_count"])
	}
}

func TestHandleSubmit_RejectsBadInput(t *testing.T) {
	mux := setupServer(t)

	rec := postJSON(t, mux, "/api/complaints", map[string]interface{}{"title": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty title: expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, mux, "/api/complaints", map[string]interface{}{
		"title":     "Pothole",
		"latitude":  95.0,
		"longitude": 77.59,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid coordinates: expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/complaints", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", rec.Code)
	}
}

func TestHandleCollection_MethodNotAllowed(t *testing.T) {
	mux := setupServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/complaints", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleList(t *testing.T) {
	mux := setupServer(t)

	titles := []string{
		"No water supply since morning",
		"Huge pothole on the road",
		"Garbage pile not collected",
	}
	for i, title := range titles {
		rec := postJSON(t, mux, "/api/complaints", map[string]interface{}{
			"title":     title,
			"latitude":  12.9716 + float64(i)*0.1,
			"longitude": 77.5946,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed %d: expected 201, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if resp.Total != 3 || len(resp.Complaints) != 3 {
		t.Fatalf("expected 3 complaints, got total=%d len=%d", resp.Total, len(resp.Complaints))
	}
	for i := 1; i < len(resp.Complaints); i++ {
		if resp.Complaints[i].Priority > resp.Complaints[i-1].Priority {
			t.Error("listing must be ordered highest priority first")
		}
	}

	// Department filter.
	req = httptest.NewRequest(http.MethodGet, "/api/complaints?department=water", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Complaints[0].Department != "water" {
		t.Errorf("expected 1 water complaint, got %+v", resp)
	}

	// Pagination.
	req = httptest.NewRequest(http.MethodGet, "/api/complaints?page=2&per_page=2", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Complaints) != 1 || resp.TotalPages != 2 {
		t.Errorf("expected second page with 1 row of 2 pages, got len=%d pages=%d",
			len(resp.Complaints), resp.TotalPages)
	}
}

func TestHandleGet(t *testing.T) {
	mux := setupServer(t)

	created := postJSON(t, mux, "/api/complaints", map[string]interface{}{
		"title":     "Garbage pile not collected",
		"latitude":  12.9716,
		"longitude": 77.5946,
	})
	var resp map[string]interface{}
	json.Unmarshal(created.Body.Bytes(), &resp)
	uuid := resp["uuid"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/complaints/"+uuid, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var complaint database.Complaint
	if err := json.Unmarshal(rec.Body.Bytes(), &complaint); err != nil {
		t.Fatalf("invalid complaint JSON: %v", err)
	}
	if complaint.UUID != uuid || complaint.Department != "sanitation" {
		t.Errorf("unexpected complaint %+v", complaint)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/complaints/"+"a3bb189e-8bf9-3888-9912-ace4e6543002", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for absent uuid, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/complaints/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed uuid, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("unexpected health payload %v", resp)
	}
}
