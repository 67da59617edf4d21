// Package pipeline orchestrates one voice-chat connection: audio
// accumulation, transcription, streamed response generation, and asynchronous
// persistence that never blocks the live stream on a write.
package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ecolucci/amica/internal/agent"
	"github.com/ecolucci/amica/internal/audio"
	"github.com/ecolucci/amica/internal/observability"
	"github.com/ecolucci/amica/internal/protocol"
	"github.com/ecolucci/amica/internal/store"
	"github.com/ecolucci/amica/internal/stt"
)

// Pipeline drives the per-connection turn loop. One instance serves one
// connection; instances share only the capability clients and the writer.
type Pipeline struct {
	transcriber stt.Transcriber
	agent       agent.Agent
	writer      *store.Writer
	metrics     *observability.Metrics
	minBytes    int
	maxBytes    int
}

func New(transcriber stt.Transcriber, ag agent.Agent, writer *store.Writer, metrics *observability.Metrics, minBytes, maxBytes int) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		agent:       ag,
		writer:      writer,
		metrics:     metrics,
		minBytes:    minBytes,
		maxBytes:    maxBytes,
	}
}

// Run consumes binary audio frames until the channel closes or the context is
// cancelled. An empty frame marks the end of an utterance. Turns are strictly
// sequential: no new frame is read while a turn is being transcribed or
// streamed, which lets the client's outbound buffer provide backpressure.
//
// sess may be nil (degraded mode after a failed session open); turns are then
// processed but not persisted.
func (p *Pipeline) Run(ctx context.Context, sess *store.SessionRecord, frames <-chan []byte, events chan<- any) error {
	acc := audio.NewAccumulator(p.minBytes, p.maxBytes)
	var history []agent.Exchange

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			acc.Append(frame)
			if !acc.ShouldFlush() {
				continue
			}
			segment := acc.Flush()
			if len(segment) == 0 {
				continue
			}
			if exchange, ok := p.processTurn(ctx, sess, segment, history, events); ok {
				history = append(history, exchange)
			}
			// A failed turn leaves the accumulator freshly reset; the
			// connection keeps going.
		}
	}
}

// processTurn runs one transcribe/respond/persist cycle. Turn-level failures
// are logged and absorbed; the client never receives an error frame.
func (p *Pipeline) processTurn(ctx context.Context, sess *store.SessionRecord, segment []byte, history []agent.Exchange, events chan<- any) (agent.Exchange, bool) {
	started := time.Now()

	transcript, err := p.transcriber.Transcribe(ctx, segment)
	if err != nil {
		log.Printf("pipeline: transcription failed for %d bytes: %v", len(segment), err)
		p.metrics.TurnOutcomes.WithLabelValues("transcription_error").Inc()
		return agent.Exchange{}, false
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		p.metrics.TurnOutcomes.WithLabelValues("empty_transcript").Inc()
		return agent.Exchange{}, false
	}

	// Forward the recognized speech before generating, so the client sees
	// its own words promptly.
	if err := p.send(ctx, events, protocol.NewUserTranscript(transcript)); err != nil {
		return agent.Exchange{}, false
	}

	var token string
	if sess != nil {
		token = sess.Token
	}
	reply, genErr := p.agent.StreamReply(ctx, agent.Request{
		SessionToken: token,
		Prompt:       transcript,
		History:      history,
	}, func(delta string) error {
		return p.send(ctx, events, protocol.NewAITranscript(delta))
	})

	if genErr != nil {
		log.Printf("pipeline: response stream failed after %d chars: %v", len(reply.Text), genErr)
		if reply.Text == "" || ctx.Err() != nil {
			// Nothing reached the client, or the connection is going away.
			p.metrics.TurnOutcomes.WithLabelValues("generation_error").Inc()
			return agent.Exchange{}, false
		}
		// Fragments already forwarded are not retracted; the truncated
		// text becomes the turn's persisted value.
		p.metrics.TurnOutcomes.WithLabelValues("completed_partial").Inc()
	} else {
		p.metrics.TurnOutcomes.WithLabelValues("completed").Inc()
	}

	elapsed := time.Since(started)
	p.metrics.ObserveTurnLatency(elapsed)

	if sess != nil {
		duration := audio.EstimateDuration(len(segment))
		processing := elapsed.Seconds()
		p.writer.EnqueueTurn(store.TurnRecord{
			SessionID:      sess.ID,
			UserTranscript: transcript,
			AIResponse:     reply.Text,
			AudioDuration:  &duration,
			ProcessingTime: &processing,
		})
	}

	return agent.Exchange{UserText: transcript, AssistantText: reply.Text}, true
}

func (p *Pipeline) send(ctx context.Context, events chan<- any, msg any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case events <- msg:
		return nil
	}
}
