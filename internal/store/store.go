// Package store persists voice-chat sessions and their conversation turns.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// SessionRecord is the identity record for one connection's lifetime.
// EndedAt is set exactly when IsActive flips to false; a session ends once.
type SessionRecord struct {
	ID        int64      `json:"-"`
	Token     string     `json:"session_token"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	IsActive  bool       `json:"is_active"`
}

// TurnRecord is one transcription/response exchange. It is created only after
// both texts are fully available and is immutable afterwards.
type TurnRecord struct {
	ID             int64      `json:"-"`
	SessionID      int64      `json:"-"`
	UserTranscript string     `json:"user_transcript"`
	AIResponse     string     `json:"ai_response"`
	CreatedAt      time.Time  `json:"created_at"`
	AudioDuration  *float64   `json:"audio_duration"`
	ProcessingTime *float64   `json:"processing_time"`
}

// SessionSummary lists a session with its turn count.
type SessionSummary struct {
	SessionRecord
	TurnCount int64 `json:"conversation_count"`
}

// Totals reports aggregate row counts for the health probe.
type Totals struct {
	Sessions int64
	Turns    int64
}

// Store is the persistence capability interface. Write failures are
// degraded-mode tolerant for callers: log and continue, never surface to the
// live stream.
type Store interface {
	OpenSession(ctx context.Context) (SessionRecord, error)
	CloseSession(ctx context.Context, sessionID int64) error
	RecordTurn(ctx context.Context, rec TurnRecord) error

	SessionByToken(ctx context.Context, token string) (SessionRecord, []TurnRecord, error)
	RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	Totals(ctx context.Context) (Totals, error)

	Ping(ctx context.Context) error
	Close() error
}
