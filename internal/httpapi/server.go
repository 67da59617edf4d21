package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ecolucci/amica/internal/config"
	"github.com/ecolucci/amica/internal/observability"
	"github.com/ecolucci/amica/internal/protocol"
	"github.com/ecolucci/amica/internal/store"
)

// Runner drives one websocket connection: audio frames in, transcript
// events out. It returns when the frame channel closes or the context
// is canceled.
type Runner interface {
	HandleConnection(ctx context.Context, frames <-chan []byte, events chan<- any) error
}

type Server struct {
	cfg      config.Config
	store    store.Store
	runner   Runner
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, st store.Store, runner Runner, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		runner:  runner,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the same
				// origin, so other websites cannot drive the user's mic session if
				// the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/voice_chat", s.handleVoiceChat)
	r.Get("/api/sessions", s.handleListSessions)
	r.Get("/api/sessions/{token}", s.handleSessionHistory)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	totals, err := s.store.Totals(ctx)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"database":            "connected",
		"total_sessions":      totals.Sessions,
		"total_conversations": totals.Turns,
	})
}

type sessionListResponse struct {
	TotalSessions int                    `json:"total_sessions"`
	Sessions      []store.SessionSummary `json:"sessions"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.store.RecentSessions(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	if sessions == nil {
		sessions = []store.SessionSummary{}
	}
	respondJSON(w, http.StatusOK, sessionListResponse{
		TotalSessions: len(sessions),
		Sessions:      sessions,
	})
}

type sessionDetailResponse struct {
	store.SessionRecord
	TurnCount int                `json:"conversation_count"`
	Turns     []store.TurnRecord `json:"conversations"`
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_token", "missing session token")
		return
	}

	sess, turns, err := s.store.SessionByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	if turns == nil {
		turns = []store.TurnRecord{}
	}
	respondJSON(w, http.StatusOK, sessionDetailResponse{
		SessionRecord: sess,
		TurnCount:     len(turns),
		Turns:         turns,
	})
}

func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ActiveSessions.Inc()
	defer s.metrics.ActiveSessions.Dec()
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte, 256)
	events := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(events)
		if err := s.runner.HandleConnection(ctx, frames, events); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("voice_chat: connection ended with error: %v", err)
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					s.metrics.SessionEvents.WithLabelValues("ws_write_error").Inc()
					cancel()
					return
				}
				if t, ok := protocol.TypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage {
			// Audio frames are binary. Anything else is ignored.
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		s.metrics.WSMessages.WithLabelValues("inbound", "audio").Inc()
		select {
		case <-ctx.Done():
			break readLoop
		case frames <- data:
		}
	}

	cancel()
	close(frames)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

const readIdleTimeout = 120 * time.Second

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
