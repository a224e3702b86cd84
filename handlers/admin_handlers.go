package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"webtracker/api/models"
	"webtracker/api/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandlers struct {
	Users    AdminStore
	Events   EventStore
	Visitors VisitorStore
}

func NewAdminHandlers(users AdminStore, events EventStore, visitors VisitorStore) *AdminHandlers {
	return &AdminHandlers{Users: users, Events: events, Visitors: visitors}
}

// Login authenticates an operator and issues a time-boxed bearer token.
// Invalid username and invalid password are indistinguishable on the wire.
func (h *AdminHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.Users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		log.Printf("Login failed for '%s': %v", req.Username, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		log.Printf("Login failed for '%s': password mismatch", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(user.Username)
	if err != nil {
		log.Printf("ERROR: Failed to generate JWT for '%s': %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	log.Printf("Operator logged in: %s", user.Username)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me echoes the authenticated operator's claims.
func (h *AdminHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"username": c.GetString("operator")}})
}

// Dashboard returns the operator overview: totals, the most recently active
// visitors, the trailing day bucketed by hour, and the all-time top pages.
func (h *AdminHandlers) Dashboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	totalEvents, err := h.Events.TotalEvents(ctx)
	if err != nil {
		h.dashboardError(c, err)
		return
	}

	uniqueVisitors, err := h.Visitors.Count(ctx)
	if err != nil {
		h.dashboardError(c, err)
		return
	}

	recentVisitors, err := h.Visitors.Recent(ctx, 10)
	if err != nil {
		h.dashboardError(c, err)
		return
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	eventsPerHour, err := h.Events.EventsPerHour(ctx, since)
	if err != nil {
		h.dashboardError(c, err)
		return
	}

	topPages, err := h.Events.TopPages(ctx, nil, 10)
	if err != nil {
		h.dashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalEvents":    totalEvents,
		"uniqueVisitors": uniqueVisitors,
		"recentVisitors": recentVisitors,
		"eventsPerHour":  eventsPerHour,
		"topPages":       topPages,
	})
}

func (h *AdminHandlers) dashboardError(c *gin.Context, err error) {
	log.Printf("Dashboard error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard data", "details": err.Error()})
}
