package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"webtracker/api/models"

	"github.com/gin-gonic/gin"
)

func newStatsRouter(h *StatsHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stats", h.GetStats)
	return r
}

func TestGetStats(t *testing.T) {
	events := &fakeEventStore{
		topPages: []models.PageCount{
			{Page: "/a", Count: 3},
			{Page: "/b", Count: 1},
		},
	}
	now := time.Now().UTC()
	events.events = []models.TrackingEvent{
		{EventID: "e-1", Page: "/a", Timestamp: now},
		{EventID: "e-2", Page: "/a", Timestamp: now},
		{EventID: "e-3", Page: "/a", Timestamp: now.Add(-48 * time.Hour)},
		{EventID: "e-4", Page: "/b", Timestamp: now},
	}

	h := NewStatsHandlers(events)
	r := newStatsRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		TotalEvents  uint64             `json:"totalEvents"`
		RecentEvents uint64             `json:"recentEvents"`
		TopPages     []models.PageCount `json:"topPages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.TotalEvents != 4 {
		t.Errorf("Expected totalEvents=4, got %d", resp.TotalEvents)
	}
	if resp.RecentEvents != 3 {
		t.Errorf("Expected recentEvents=3 within default 24h window, got %d", resp.RecentEvents)
	}
	if len(resp.TopPages) != 2 || resp.TopPages[0].Page != "/a" || resp.TopPages[0].Count != 3 {
		t.Errorf("Expected topPages led by /a with count 3, got %+v", resp.TopPages)
	}
	if events.lastSince == nil {
		t.Error("Expected top pages query to be bounded by the lookback window")
	}
}

func TestGetStatsCustomWindow(t *testing.T) {
	events := &fakeEventStore{}
	h := NewStatsHandlers(events)
	r := newStatsRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stats?sinceHours=48", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if events.lastSince == nil {
		t.Fatal("Expected a lookback bound")
	}
	lookback := time.Since(*events.lastSince)
	if lookback < 47*time.Hour || lookback > 49*time.Hour {
		t.Errorf("Expected a ~48h lookback, got %v", lookback)
	}
}

func TestGetStatsStoreError(t *testing.T) {
	events := &fakeEventStore{readErr: errors.New("connection refused")}
	h := NewStatsHandlers(events)
	r := newStatsRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on store error, got %d", w.Code)
	}
}
