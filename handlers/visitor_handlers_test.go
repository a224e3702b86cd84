package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"webtracker/api/models"

	"github.com/gin-gonic/gin"
)

func newVisitorRouter(h *VisitorHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/visitors/:visitorId", h.GetVisitor)
	return r
}

func TestGetVisitorNotFound(t *testing.T) {
	h := NewVisitorHandlers(newFakeVisitorStore(), &fakeEventStore{})
	r := newVisitorRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/visitors/unknown", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown visitor, got %d", w.Code)
	}
}

func TestGetVisitorFound(t *testing.T) {
	visitors := newFakeVisitorStore()
	if err := visitors.Upsert(context.Background(), &models.VisitorUpdate{VisitorID: "v-1", LastIP: "203.0.113.7"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	events := &fakeEventStore{}
	events.events = []models.TrackingEvent{
		{EventID: "e-1", VisitorID: "v-1", Page: "/a"},
		{EventID: "e-2", VisitorID: "other", Page: "/b"},
		{EventID: "e-3", VisitorID: "v-1", Page: "/c"},
	}

	h := NewVisitorHandlers(visitors, events)
	r := newVisitorRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/visitors/v-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Visitor models.Visitor         `json:"visitor"`
		Events  []models.TrackingEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Visitor.VisitorID != "v-1" {
		t.Errorf("Expected visitor v-1, got %q", resp.Visitor.VisitorID)
	}
	if len(resp.Events) != 2 {
		t.Errorf("Expected 2 events for v-1, got %d", len(resp.Events))
	}
}

func TestGetVisitorStoreError(t *testing.T) {
	visitors := newFakeVisitorStore()
	visitors.readErr = errors.New("connection refused")
	h := NewVisitorHandlers(visitors, &fakeEventStore{})
	r := newVisitorRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/visitors/v-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on store error, got %d", w.Code)
	}
}
