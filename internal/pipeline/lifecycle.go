package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/ecolucci/amica/internal/observability"
	"github.com/ecolucci/amica/internal/store"
)

const sessionOpenTimeout = 5 * time.Second

// Lifecycle owns a connection from accept to finalization: it creates the
// backing session record, runs the pipeline, and marks the session ended
// exactly once no matter how the connection exits.
type Lifecycle struct {
	store    store.Store
	writer   *store.Writer
	pipeline *Pipeline
	metrics  *observability.Metrics
}

func NewLifecycle(st store.Store, writer *store.Writer, p *Pipeline, metrics *observability.Metrics) *Lifecycle {
	return &Lifecycle{store: st, writer: writer, pipeline: p, metrics: metrics}
}

// HandleConnection runs one connection to completion. A failed session open
// is not fatal: the connection proceeds in degraded mode and every
// persistence call becomes a no-op.
func (l *Lifecycle) HandleConnection(ctx context.Context, frames <-chan []byte, events chan<- any) error {
	openCtx, cancel := context.WithTimeout(ctx, sessionOpenTimeout)
	sess, err := l.store.OpenSession(openCtx)
	cancel()

	var ref *store.SessionRecord
	if err != nil {
		log.Printf("session: open failed, continuing without persistence: %v", err)
		l.metrics.SessionEvents.WithLabelValues("open_failed").Inc()
	} else {
		ref = &sess
		log.Printf("session %s: created", sess.Token)
		l.metrics.SessionEvents.WithLabelValues("created").Inc()
	}

	// The deferred close is the single finalization path: normal close,
	// client disconnect, and mid-turn errors all land here once.
	defer func() {
		if ref == nil {
			return
		}
		l.writer.EnqueueClose(ref.ID)
		log.Printf("session %s: ended", ref.Token)
		l.metrics.SessionEvents.WithLabelValues("ended").Inc()
	}()

	return l.pipeline.Run(ctx, ref, frames, events)
}
