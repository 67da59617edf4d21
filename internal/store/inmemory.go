package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process fallback used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]*SessionRecord
	turns    map[int64][]TurnRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*SessionRecord),
		turns:    make(map[int64][]TurnRecord),
	}
}

func (s *MemoryStore) OpenSession(_ context.Context) (SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := SessionRecord{
		ID:        s.nextID,
		Token:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		IsActive:  true,
	}
	s.sessions[rec.ID] = &rec
	return rec, nil
}

func (s *MemoryStore) CloseSession(_ context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if !rec.IsActive {
		return nil
	}
	now := time.Now().UTC()
	rec.IsActive = false
	rec.EndedAt = &now
	return nil
}

func (s *MemoryStore) RecordTurn(_ context.Context, rec TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[rec.SessionID]; !ok {
		return ErrNotFound
	}
	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.turns[rec.SessionID] = append(s.turns[rec.SessionID], rec)
	return nil
}

func (s *MemoryStore) SessionByToken(_ context.Context, token string) (SessionRecord, []TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sessions {
		if rec.Token == token {
			turns := make([]TurnRecord, len(s.turns[rec.ID]))
			copy(turns, s.turns[rec.ID])
			return *rec, turns, nil
		}
	}
	return SessionRecord{}, nil, ErrNotFound
}

func (s *MemoryStore) RecentSessions(_ context.Context, limit int) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}

	summaries := make([]SessionSummary, 0, len(s.sessions))
	for _, rec := range s.sessions {
		summaries = append(summaries, SessionSummary{
			SessionRecord: *rec,
			TurnCount:     int64(len(s.turns[rec.ID])),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *MemoryStore) Totals(_ context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := Totals{Sessions: int64(len(s.sessions))}
	for _, turns := range s.turns {
		t.Turns += int64(len(turns))
	}
	return t, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
