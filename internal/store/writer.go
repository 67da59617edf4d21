package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ecolucci/amica/internal/observability"
)

const (
	defaultQueueDepth = 64
	writeTimeout      = 5 * time.Second
)

type jobKind int

const (
	jobRecordTurn jobKind = iota
	jobCloseSession
)

type job struct {
	kind      jobKind
	sessionID int64
	turn      TurnRecord
}

// Writer dispatches persistence writes to a bounded worker pool so a slow
// transaction never stalls the live audio path. Jobs are routed to a lane by
// session ID, which keeps one session's writes in submission order while the
// pool bounds global write concurrency. Enqueueing never blocks: when a lane
// is saturated the job is dropped and counted (writes are at-most-once
// best-effort).
type Writer struct {
	store   Store
	metrics *observability.Metrics
	lanes   []chan job
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWriter(s Store, workers int, metrics *observability.Metrics) *Writer {
	if workers <= 0 {
		workers = 4
	}
	w := &Writer{
		store:   s,
		metrics: metrics,
		lanes:   make([]chan job, workers),
	}
	for i := range w.lanes {
		lane := make(chan job, defaultQueueDepth)
		w.lanes[i] = lane
		w.wg.Add(1)
		go w.run(lane)
	}
	return w
}

// EnqueueTurn schedules a turn record write. Failures are logged, never
// propagated and never retried.
func (w *Writer) EnqueueTurn(rec TurnRecord) {
	w.enqueue(job{kind: jobRecordTurn, sessionID: rec.SessionID, turn: rec})
}

// EnqueueClose schedules the session-ended update. It rides the same lane as
// the session's turn writes, so ended_at never lands ahead of a turn record.
func (w *Writer) EnqueueClose(sessionID int64) {
	w.enqueue(job{kind: jobCloseSession, sessionID: sessionID})
}

func (w *Writer) enqueue(j job) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		log.Printf("persist: writer closed, dropping %s for session %d", j.kind.label(), j.sessionID)
		w.metrics.PersistDropped.Inc()
		return
	}
	lane := w.lanes[int(j.sessionID)%len(w.lanes)]
	select {
	case lane <- j:
	default:
		log.Printf("persist: queue full, dropping %s for session %d", j.kind.label(), j.sessionID)
		w.metrics.PersistDropped.Inc()
	}
}

// Close stops intake, drains the queued jobs, and waits for the workers.
// Writes dispatched before a connection closed still complete here.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	for _, lane := range w.lanes {
		close(lane)
	}
	w.wg.Wait()
}

func (w *Writer) run(lane <-chan job) {
	defer w.wg.Done()
	for j := range lane {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch j.kind {
		case jobRecordTurn:
			err = w.store.RecordTurn(ctx, j.turn)
		case jobCloseSession:
			err = w.store.CloseSession(ctx, j.sessionID)
		}
		cancel()
		if err != nil {
			log.Printf("persist: %s failed for session %d: %v", j.kind.label(), j.sessionID, err)
			w.metrics.PersistErrors.WithLabelValues(j.kind.label()).Inc()
		}
	}
}

func (k jobKind) label() string {
	if k == jobCloseSession {
		return "close_session"
	}
	return "record_turn"
}
