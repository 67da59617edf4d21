package agent

import (
	"context"
	"fmt"
	"strings"
)

// MockAgent provides deterministic local replies for tests and offline runs.
type MockAgent struct{}

func NewMockAgent() *MockAgent { return &MockAgent{} }

func (a *MockAgent) StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)

	// Stream word by word so consumers exercise real fragment handling.
	var sent strings.Builder
	words := strings.SplitAfter(text, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		sent.WriteString(w)
		if onDelta != nil {
			if err := onDelta(w); err != nil {
				return Reply{Text: sent.String()}, err
			}
		}
	}
	return Reply{Text: text}, nil
}

func buildMockReply(req Request) string {
	base := strings.TrimSpace(req.Prompt)
	if base == "" {
		base = "I am listening."
	}
	if len(req.History) == 0 {
		return fmt.Sprintf("I heard you: %s", base)
	}
	last := strings.TrimSpace(req.History[len(req.History)-1].UserText)
	if last == "" {
		return fmt.Sprintf("I heard you: %s", base)
	}
	return fmt.Sprintf("I heard you: %s\nEarlier you said: %s", base, last)
}
