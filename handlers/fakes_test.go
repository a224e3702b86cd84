package handlers

import (
	"context"
	"sync"
	"time"

	"webtracker/api/models"
	"webtracker/api/store"
)

type fakeGuard struct {
	err error
}

func (g *fakeGuard) Ready(ctx context.Context) error { return g.err }

func (g *fakeGuard) Status() string {
	if g.err != nil {
		return "disconnected"
	}
	return "connected"
}

type fakeEventStore struct {
	mu        sync.Mutex
	events    []models.TrackingEvent
	insertErr error
	readErr   error
	topPages  []models.PageCount
	perHour   []models.HourBucket
	lastSince *time.Time
}

func (s *fakeEventStore) Insert(ctx context.Context, event *models.TrackingEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *fakeEventStore) TotalEvents(ctx context.Context) (uint64, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.events)), nil
}

func (s *fakeEventStore) CountSince(ctx context.Context, since time.Time) (uint64, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count uint64
	for _, ev := range s.events {
		if !ev.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeEventStore) TopPages(ctx context.Context, since *time.Time, limit int) ([]models.PageCount, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSince = since
	if len(s.topPages) > limit {
		return s.topPages[:limit], nil
	}
	return s.topPages, nil
}

func (s *fakeEventStore) EventsPerHour(ctx context.Context, since time.Time) ([]models.HourBucket, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.perHour, nil
}

func (s *fakeEventStore) EventsByVisitor(ctx context.Context, visitorID string, limit int) ([]models.TrackingEvent, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.TrackingEvent{}
	for _, ev := range s.events {
		if ev.VisitorID == visitorID {
			matched = append(matched, ev)
		}
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeEventStore) stored() []models.TrackingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TrackingEvent, len(s.events))
	copy(out, s.events)
	return out
}

type fakeVisitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*models.Visitor
	upsertErr error
	readErr   error
	scores    map[string]float64
}

func newFakeVisitorStore() *fakeVisitorStore {
	return &fakeVisitorStore{
		visitors: make(map[string]*models.Visitor),
		scores:   make(map[string]float64),
	}
}

func (s *fakeVisitorStore) Upsert(ctx context.Context, update *models.VisitorUpdate) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	v, ok := s.visitors[update.VisitorID]
	if !ok {
		v = &models.Visitor{VisitorID: update.VisitorID, FirstSeen: now}
		s.visitors[update.VisitorID] = v
	}
	v.LastSeen = now
	v.LastIP = update.LastIP
	v.UserAgent = update.UserAgent
	if update.Metadata != nil {
		v.Metadata = update.Metadata
	}
	v.EventsCount++
	return nil
}

func (s *fakeVisitorStore) FindByID(ctx context.Context, visitorID string) (*models.Visitor, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[visitorID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (s *fakeVisitorStore) Count(ctx context.Context) (uint64, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.visitors)), nil
}

func (s *fakeVisitorStore) Recent(ctx context.Context, limit int) ([]models.VisitorSummary, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := []models.VisitorSummary{}
	for _, v := range s.visitors {
		summaries = append(summaries, models.VisitorSummary{
			VisitorID:   v.VisitorID,
			LastSeen:    v.LastSeen,
			EventsCount: v.EventsCount,
		})
		if len(summaries) == limit {
			break
		}
	}
	return summaries, nil
}

func (s *fakeVisitorStore) SetConfidenceScore(ctx context.Context, visitorID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[visitorID] = score
	return nil
}

type fakeAdminStore struct {
	users map[string]*models.AdminUser
}

func (s *fakeAdminStore) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}
