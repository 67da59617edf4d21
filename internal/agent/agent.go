// Package agent produces the assistant's reply to a transcribed utterance as
// an incremental stream of text fragments.
package agent

import "context"

// Exchange is one completed user/assistant turn, carried as session-scoped
// context for later prompts.
type Exchange struct {
	UserText      string
	AssistantText string
}

// Request is the normalized prompt sent to the conversation model.
type Request struct {
	SessionToken string
	Prompt       string
	History      []Exchange
}

// Reply is the final response after streaming deltas. On a mid-stream failure
// Text holds whatever was produced before the error; fragments already
// forwarded are never retracted.
type Reply struct {
	Text string
}

// DeltaHandler receives streaming text fragments in order. Returning an error
// stops the stream.
type DeltaHandler func(delta string) error

// Agent is the capability interface the pipeline depends on. The fragment
// sequence is finite and not restartable; concatenating the fragments passed
// to onDelta yields Reply.Text.
type Agent interface {
	StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error)
}
