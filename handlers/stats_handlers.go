package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type StatsHandlers struct {
	Events EventStore
}

func NewStatsHandlers(events EventStore) *StatsHandlers {
	return &StatsHandlers{Events: events}
}

// GetStats returns overall and lookback-windowed event counts plus the top
// pages within the window. sinceHours defaults to the trailing 24 hours.
func (h *StatsHandlers) GetStats(c *gin.Context) {
	sinceHours := 24
	if v, err := strconv.Atoi(c.Query("sinceHours")); err == nil && v > 0 {
		sinceHours = v
	}
	since := time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	totalEvents, err := h.Events.TotalEvents(ctx)
	if err != nil {
		log.Printf("Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics", "details": err.Error()})
		return
	}

	recentEvents, err := h.Events.CountSince(ctx, since)
	if err != nil {
		log.Printf("Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics", "details": err.Error()})
		return
	}

	topPages, err := h.Events.TopPages(ctx, &since, 20)
	if err != nil {
		log.Printf("Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalEvents":  totalEvents,
		"recentEvents": recentEvents,
		"topPages":     topPages,
	})
}
