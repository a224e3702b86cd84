package models

import (
	"encoding/json"
	"time"
)

// TrackRequest is the body accepted by POST /track. Payload and metadata are
// opaque client-supplied documents and are stored as-is, unvalidated.
type TrackRequest struct {
	VisitorID string          `json:"visitorId"`
	SessionID string          `json:"sessionId"`
	Page      string          `json:"page"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UserAgent string          `json:"userAgent"`
	IP        string          `json:"ip"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TrackingEvent is one immutable record of a tracked client action.
// Created exactly once per accepted request, never updated or deleted.
type TrackingEvent struct {
	EventID   string          `json:"id"`
	VisitorID string          `json:"visitorId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Page      string          `json:"page"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	Geo       *GeoInfo        `json:"geo,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// GeoInfo is coarse address metadata derived without any external lookup.
type GeoInfo struct {
	Scope   string `json:"scope"`
	Version string `json:"version"`
}

// PageCount is one entry of a top-pages aggregation. The "_id" field name is
// what the dashboard clients already parse.
type PageCount struct {
	Page  string `json:"_id"`
	Count uint64 `json:"count"`
}

// HourBucket is one per-hour event count, keyed by the UTC hour boundary.
type HourBucket struct {
	Hour  string `json:"ts"`
	Count uint64 `json:"count"`
}
