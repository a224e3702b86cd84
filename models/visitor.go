package models

import (
	"encoding/json"
	"time"
)

// Visitor is the mutable per-identity rollup maintained from events.
// There is at most one record per VisitorID.
type Visitor struct {
	VisitorID       string          `json:"visitorId"`
	FirstSeen       time.Time       `json:"firstSeen"`
	LastSeen        time.Time       `json:"lastSeen"`
	LastIP          string          `json:"lastIp,omitempty"`
	UserAgent       string          `json:"userAgent,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	EventsCount     int64           `json:"eventsCount"`
	ConfidenceScore *float64        `json:"confidenceScore,omitempty"`
}

// VisitorUpdate carries the fields an upsert overwrites. Metadata nil means
// "leave the stored value alone"; non-nil replaces it wholesale.
type VisitorUpdate struct {
	VisitorID string
	LastIP    string
	UserAgent string
	Metadata  json.RawMessage
}

// VisitorSummary is the dashboard projection of a Visitor.
type VisitorSummary struct {
	VisitorID   string    `json:"visitorId"`
	LastSeen    time.Time `json:"lastSeen"`
	EventsCount int64     `json:"eventsCount"`
}
