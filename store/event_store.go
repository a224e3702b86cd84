package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"webtracker/api/database"
	"webtracker/api/models"
)

// EventStore appends immutable tracking events to ClickHouse and serves the
// read-only aggregations. Every operation acquires the session through the
// Guardian so a dead store surfaces as ErrUnavailable instead of blocking.
type EventStore struct {
	guard *database.Guardian
}

func NewEventStore(guard *database.Guardian) *EventStore {
	return &EventStore{guard: guard}
}

// Insert appends one event row. The caller bounds ctx with the write
// deadline; an exceeded deadline or a session error both count as the store
// being unavailable.
func (s *EventStore) Insert(ctx context.Context, event *models.TrackingEvent) error {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return err
	}

	payload := rawToString(event.Payload)
	geo := ""
	if event.Geo != nil {
		b, err := json.Marshal(event.Geo)
		if err != nil {
			return fmt.Errorf("failed to encode geo metadata: %w", err)
		}
		geo = string(b)
	}

	err = conn.Exec(ctx, `
		INSERT INTO tracking_events (
			event_id, visitor_id, session_id, page, event_type, payload, ip, user_agent, geo, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.EventID,
		event.VisitorID,
		event.SessionID,
		event.Page,
		event.Type,
		payload,
		event.IP,
		event.UserAgent,
		geo,
		event.Timestamp,
	)
	if err != nil {
		s.observeError(err)
		if isConnectivityError(ctx, err) {
			return fmt.Errorf("%w: %v", database.ErrUnavailable, err)
		}
		return fmt.Errorf("failed to insert tracking event: %w", err)
	}
	return nil
}

// TotalEvents counts every stored event, unbounded in time.
func (s *EventStore) TotalEvents(ctx context.Context) (uint64, error) {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var total uint64
	if err := conn.QueryRow(ctx, `SELECT count() FROM tracking_events`).Scan(&total); err != nil {
		s.observeError(err)
		return 0, fmt.Errorf("failed to count tracking events: %w", err)
	}
	return total, nil
}

// CountSince counts events with a timestamp at or after the given instant.
func (s *EventStore) CountSince(ctx context.Context, since time.Time) (uint64, error) {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var count uint64
	err = conn.QueryRow(ctx,
		`SELECT count() FROM tracking_events WHERE timestamp >= ?`, since,
	).Scan(&count)
	if err != nil {
		s.observeError(err)
		return 0, fmt.Errorf("failed to count recent tracking events: %w", err)
	}
	return count, nil
}

// TopPages returns the most-hit pages by event count, descending. A nil
// since means the full retained history.
func (s *EventStore) TopPages(ctx context.Context, since *time.Time, limit int) ([]models.PageCount, error) {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT page, count() AS hits
		FROM tracking_events
	`
	var args []interface{}
	if since != nil {
		query += ` WHERE timestamp >= ?`
		args = append(args, *since)
	}
	query += `
		GROUP BY page
		ORDER BY hits DESC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		s.observeError(err)
		return nil, fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	results := []models.PageCount{}
	for rows.Next() {
		var pc models.PageCount
		if err := rows.Scan(&pc.Page, &pc.Count); err != nil {
			log.Printf("Error scanning row for top pages: %v", err)
			continue
		}
		results = append(results, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during top pages query: %w", err)
	}
	return results, nil
}

// EventsPerHour buckets events since the given instant by UTC hour,
// ascending.
func (s *EventStore) EventsPerHour(ctx context.Context, since time.Time) ([]models.HourBucket, error) {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT toStartOfHour(timestamp) AS bucket, count() AS hits
		FROM tracking_events
		WHERE timestamp >= ?
		GROUP BY bucket
		ORDER BY bucket ASC
	`, since)
	if err != nil {
		s.observeError(err)
		return nil, fmt.Errorf("failed to query events per hour: %w", err)
	}
	defer rows.Close()

	results := []models.HourBucket{}
	for rows.Next() {
		var bucket time.Time
		var count uint64
		if err := rows.Scan(&bucket, &count); err != nil {
			log.Printf("Error scanning row for events per hour: %v", err)
			continue
		}
		results = append(results, models.HourBucket{
			Hour:  bucket.UTC().Format("2006-01-02T15:00:00Z"),
			Count: count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during events per hour query: %w", err)
	}
	return results, nil
}

// EventsByVisitor returns the most recent events for one visitor, newest
// first.
func (s *EventStore) EventsByVisitor(ctx context.Context, visitorID string, limit int) ([]models.TrackingEvent, error) {
	conn, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT event_id, visitor_id, session_id, page, event_type, payload, ip, user_agent, geo, timestamp
		FROM tracking_events
		WHERE visitor_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, visitorID, limit)
	if err != nil {
		s.observeError(err)
		return nil, fmt.Errorf("failed to query visitor events: %w", err)
	}
	defer rows.Close()

	events := []models.TrackingEvent{}
	for rows.Next() {
		var ev models.TrackingEvent
		var payload, geo string
		if err := rows.Scan(
			&ev.EventID, &ev.VisitorID, &ev.SessionID, &ev.Page, &ev.Type,
			&payload, &ev.IP, &ev.UserAgent, &geo, &ev.Timestamp,
		); err != nil {
			log.Printf("Error scanning row for visitor events: %v", err)
			continue
		}
		if payload != "" {
			ev.Payload = json.RawMessage(payload)
		}
		if geo != "" {
			var g models.GeoInfo
			if err := json.Unmarshal([]byte(geo), &g); err == nil {
				ev.Geo = &g
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during visitor events query: %w", err)
	}
	return events, nil
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}

// observeError notifies the guardian so the next request reconnects instead
// of reusing a dead session.
func (s *EventStore) observeError(err error) {
	s.guard.MarkDown(err)
}

func isConnectivityError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
