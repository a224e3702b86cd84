package handlers

import (
	"context"
	"time"

	"webtracker/api/models"
)

// Guard is the connection guardian as the handlers see it: one bounded
// connect attempt per Ready call while disconnected, immediate success
// while connected.
type Guard interface {
	Ready(ctx context.Context) error
	Status() string
}

// EventStore is the append-only event record plus its read-only
// aggregations.
type EventStore interface {
	Insert(ctx context.Context, event *models.TrackingEvent) error
	TotalEvents(ctx context.Context) (uint64, error)
	CountSince(ctx context.Context, since time.Time) (uint64, error)
	TopPages(ctx context.Context, since *time.Time, limit int) ([]models.PageCount, error)
	EventsPerHour(ctx context.Context, since time.Time) ([]models.HourBucket, error)
	EventsByVisitor(ctx context.Context, visitorID string, limit int) ([]models.TrackingEvent, error)
}

// VisitorStore is the per-identity rollup.
type VisitorStore interface {
	Upsert(ctx context.Context, update *models.VisitorUpdate) error
	FindByID(ctx context.Context, visitorID string) (*models.Visitor, error)
	Count(ctx context.Context) (uint64, error)
	Recent(ctx context.Context, limit int) ([]models.VisitorSummary, error)
	SetConfidenceScore(ctx context.Context, visitorID string, score float64) error
}

// AdminStore holds operator credentials.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
}

// Enricher is the optional third-party identity lookup. A nil Enricher
// disables the hook.
type Enricher interface {
	Enrich(ctx context.Context, visitorID string) (*float64, error)
}
