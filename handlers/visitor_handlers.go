package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"webtracker/api/store"

	"github.com/gin-gonic/gin"
)

// visitorEventsLimit caps how much history a detail lookup returns.
const visitorEventsLimit = 500

type VisitorHandlers struct {
	Visitors VisitorStore
	Events   EventStore
}

func NewVisitorHandlers(visitors VisitorStore, events EventStore) *VisitorHandlers {
	return &VisitorHandlers{Visitors: visitors, Events: events}
}

// GetVisitor returns one visitor rollup plus its most recent events.
func (h *VisitorHandlers) GetVisitor(c *gin.Context) {
	visitorID := c.Param("visitorId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	visitor, err := h.Visitors.FindByID(ctx, visitorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.Printf("Visitor lookup error for '%s': %v", visitorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load visitor", "details": err.Error()})
		return
	}

	events, err := h.Events.EventsByVisitor(ctx, visitorID, visitorEventsLimit)
	if err != nil {
		log.Printf("Visitor events lookup error for '%s': %v", visitorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load visitor events", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"visitor": visitor, "events": events})
}
