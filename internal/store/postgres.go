package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions and turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 15
	// Recycle connections hourly so the pool tolerates backend restarts.
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute
	// Ping before handing a connection to a caller, so a dead backend
	// connection surfaces as a reconnect rather than a failed query.
	cfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		return conn.Ping(ctx) == nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGSERIAL PRIMARY KEY,
			session_token TEXT NOT NULL UNIQUE,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ended_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			user_transcript TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			audio_duration DOUBLE PRECISION,
			processing_time DOUBLE PRECISION
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session_created
			ON conversations (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) OpenSession(ctx context.Context) (SessionRecord, error) {
	rec := SessionRecord{Token: uuid.NewString(), IsActive: true}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (session_token) VALUES ($1) RETURNING id, started_at`,
		rec.Token,
	).Scan(&rec.ID, &rec.StartedAt)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("open session: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) CloseSession(ctx context.Context, sessionID int64) error {
	// The is_active guard makes the active -> ended transition happen once.
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE, ended_at = now()
		 WHERE id = $1 AND is_active`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordTurn(ctx context.Context, rec TurnRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (session_id, user_transcript, ai_response, audio_duration, processing_time)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.SessionID,
		rec.UserTranscript,
		rec.AIResponse,
		rec.AudioDuration,
		rec.ProcessingTime,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) SessionByToken(ctx context.Context, token string) (SessionRecord, []TurnRecord, error) {
	var rec SessionRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_token, started_at, ended_at, is_active
		 FROM sessions WHERE session_token = $1`,
		token,
	).Scan(&rec.ID, &rec.Token, &rec.StartedAt, &rec.EndedAt, &rec.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRecord{}, nil, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, nil, fmt.Errorf("query session: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_transcript, ai_response, created_at, audio_duration, processing_time
		 FROM conversations WHERE session_id = $1 ORDER BY created_at, id`,
		rec.ID,
	)
	if err != nil {
		return SessionRecord{}, nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserTranscript, &t.AIResponse, &t.CreatedAt, &t.AudioDuration, &t.ProcessingTime); err != nil {
			return SessionRecord{}, nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return SessionRecord{}, nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return rec, turns, nil
}

func (s *PostgresStore) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.session_token, s.started_at, s.ended_at, s.is_active, COUNT(c.id)
		 FROM sessions s
		 LEFT JOIN conversations c ON c.session_id = s.id
		 GROUP BY s.id
		 ORDER BY s.started_at DESC, s.id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]SessionSummary, 0, limit)
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Token, &sum.StartedAt, &sum.EndedAt, &sum.IsActive, &sum.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM sessions), (SELECT COUNT(*) FROM conversations)`,
	).Scan(&t.Sessions, &t.Turns)
	if err != nil {
		return Totals{}, fmt.Errorf("count totals: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
