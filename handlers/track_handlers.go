package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"webtracker/api/database"
	"webtracker/api/models"
	"webtracker/api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Deadlines for the two persistence stages. The event write is fatal to the
// request; the visitor upsert races its own shorter budget and loses
// quietly.
const (
	eventWriteTimeout    = 8 * time.Second
	visitorUpsertTimeout = 5 * time.Second
)

type TrackHandlers struct {
	Guard    Guard
	Events   EventStore
	Visitors VisitorStore
	Enricher Enricher
}

func NewTrackHandlers(guard Guard, events EventStore, visitors VisitorStore, enricher Enricher) *TrackHandlers {
	return &TrackHandlers{
		Guard:    guard,
		Events:   events,
		Visitors: visitors,
		Enricher: enricher,
	}
}

// Track ingests one client event: admission has already happened in
// middleware, so the pipeline here is acquire, write, then best-effort
// visitor reconciliation.
func (h *TrackHandlers) Track(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.Guard.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable", "details": err.Error()})
		return
	}

	ip := req.IP
	if ip == "" {
		ip = forwardedFor(c)
	}
	if ip == "" {
		ip = c.ClientIP()
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.GetHeader("User-Agent")
	}

	eventType := req.Type
	if eventType == "" {
		eventType = "pageview"
	}

	event := &models.TrackingEvent{
		EventID:   uuid.New().String(),
		VisitorID: req.VisitorID,
		SessionID: req.SessionID,
		Page:      req.Page,
		Type:      eventType,
		Payload:   req.Payload,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now().UTC(),
	}
	if ip != "" {
		event.Geo = utils.LookupGeo(ip)
	}

	writeCtx, cancel := context.WithTimeout(c.Request.Context(), eventWriteTimeout)
	defer cancel()
	if err := h.Events.Insert(writeCtx, event); err != nil {
		log.Printf("Track error: %v", err)
		if errors.Is(err, database.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not save tracking event", "details": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save tracking event", "details": err.Error()})
		return
	}

	// The event is durable from here on. Reconciliation failures only lag
	// the rollup, never the response.
	if req.VisitorID != "" {
		upsertCtx, cancel := context.WithTimeout(c.Request.Context(), visitorUpsertTimeout)
		err := h.Visitors.Upsert(upsertCtx, &models.VisitorUpdate{
			VisitorID: req.VisitorID,
			LastIP:    ip,
			UserAgent: userAgent,
			Metadata:  req.Metadata,
		})
		cancel()
		if err != nil {
			log.Printf("Visitor upsert failed for '%s' (event %s kept): %v", req.VisitorID, event.EventID, err)
		} else if h.Enricher != nil {
			go h.enrich(req.VisitorID)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": event.EventID})
}

// Health reports liveness and the guardian's view of the event store.
func (h *TrackHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"database":  h.Guard.Status(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// enrich runs the optional identity lookup off the request path. Everything
// here is best-effort.
func (h *TrackHandlers) enrich(visitorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), visitorUpsertTimeout)
	defer cancel()

	score, err := h.Enricher.Enrich(ctx, visitorID)
	if err != nil {
		log.Printf("Fingerprint enrichment failed for '%s': %v", visitorID, err)
		return
	}
	if score == nil {
		return
	}
	if err := h.Visitors.SetConfidenceScore(ctx, visitorID, *score); err != nil {
		log.Printf("Failed to store confidence score for '%s': %v", visitorID, err)
	}
}

// forwardedFor returns the first entry of X-Forwarded-For, if any.
func forwardedFor(c *gin.Context) string {
	header := c.GetHeader("X-Forwarded-For")
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}
