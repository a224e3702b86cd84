package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"webtracker/api/models"
)

// ErrNotFound is returned when a lookup misses. Callers map it to a 404,
// never to a store error.
var ErrNotFound = errors.New("not found")

// VisitorStore maintains the per-identity rollup in PostgreSQL.
type VisitorStore struct {
	db *sql.DB
}

func NewVisitorStore(db *sql.DB) *VisitorStore {
	return &VisitorStore{db: db}
}

// Upsert applies "update if exists, else insert" in a single statement so
// that concurrent writers for the same visitor never lose an events_count
// increment or create a duplicate row. Metadata is replaced only when the
// update carries one; a fresh row without metadata starts empty.
func (s *VisitorStore) Upsert(ctx context.Context, update *models.VisitorUpdate) error {
	var metadata []byte
	if len(update.Metadata) > 0 {
		metadata = []byte(update.Metadata)
	}

	query := `
		INSERT INTO visitors (visitor_id, first_seen, last_seen, last_ip, user_agent, metadata, events_count)
		VALUES ($1, NOW(), NOW(), $2, $3, COALESCE($4::jsonb, '{}'::jsonb), 1)
		ON CONFLICT (visitor_id) DO UPDATE SET
			last_seen    = NOW(),
			last_ip      = EXCLUDED.last_ip,
			user_agent   = EXCLUDED.user_agent,
			metadata     = COALESCE($4::jsonb, visitors.metadata),
			events_count = visitors.events_count + 1;
	`
	if _, err := s.db.ExecContext(ctx, query, update.VisitorID, update.LastIP, update.UserAgent, metadata); err != nil {
		return fmt.Errorf("failed to upsert visitor '%s': %w", update.VisitorID, err)
	}
	return nil
}

// FindByID retrieves one visitor rollup.
func (s *VisitorStore) FindByID(ctx context.Context, visitorID string) (*models.Visitor, error) {
	visitor := &models.Visitor{}
	var metadata []byte
	var lastIP, userAgent sql.NullString
	var confidence sql.NullFloat64

	query := `
		SELECT visitor_id, first_seen, last_seen, last_ip, user_agent, metadata, events_count, confidence_score
		FROM visitors
		WHERE visitor_id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, visitorID).Scan(
		&visitor.VisitorID,
		&visitor.FirstSeen,
		&visitor.LastSeen,
		&lastIP,
		&userAgent,
		&metadata,
		&visitor.EventsCount,
		&confidence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get visitor by id: %w", err)
	}

	visitor.LastIP = lastIP.String
	visitor.UserAgent = userAgent.String
	if len(metadata) > 0 {
		visitor.Metadata = json.RawMessage(metadata)
	}
	if confidence.Valid {
		visitor.ConfidenceScore = &confidence.Float64
	}
	return visitor, nil
}

// Count returns the number of known visitor identities.
func (s *VisitorStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return count, nil
}

// Recent returns the most recently active visitors, newest first.
func (s *VisitorStore) Recent(ctx context.Context, limit int) ([]models.VisitorSummary, error) {
	query := `
		SELECT visitor_id, last_seen, events_count
		FROM visitors
		ORDER BY last_seen DESC
		LIMIT $1;
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent visitors: %w", err)
	}
	defer rows.Close()

	summaries := []models.VisitorSummary{}
	for rows.Next() {
		var vs models.VisitorSummary
		if err := rows.Scan(&vs.VisitorID, &vs.LastSeen, &vs.EventsCount); err != nil {
			return nil, fmt.Errorf("failed to scan recent visitor: %w", err)
		}
		summaries = append(summaries, vs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during recent visitors query: %w", err)
	}
	return summaries, nil
}

// SetConfidenceScore stores an enrichment result. Best-effort; updating a
// visitor that has since disappeared is not an error.
func (s *VisitorStore) SetConfidenceScore(ctx context.Context, visitorID string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE visitors SET confidence_score = $2 WHERE visitor_id = $1;`,
		visitorID, score,
	)
	if err != nil {
		return fmt.Errorf("failed to update confidence score for '%s': %w", visitorID, err)
	}
	return nil
}
