package protocol

// EventType identifies outbound websocket payload variants.
type EventType string

const (
	TypeUserTranscript EventType = "user_transcript"
	TypeAITranscript   EventType = "ai_transcript"
)

// UserTranscript echoes the recognized speech back to the client before the
// assistant starts answering.
type UserTranscript struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

// AITranscript carries one streamed fragment of the assistant's reply.
// Concatenating the fragments of a turn in receipt order yields the full
// response text.
type AITranscript struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

func NewUserTranscript(text string) UserTranscript {
	return UserTranscript{Type: TypeUserTranscript, Text: text}
}

func NewAITranscript(text string) AITranscript {
	return AITranscript{Type: TypeAITranscript, Text: text}
}

// TypeOf reports the event type of an outbound message, for metrics labels.
func TypeOf(v any) (EventType, bool) {
	switch m := v.(type) {
	case UserTranscript:
		return m.Type, true
	case AITranscript:
		return m.Type, true
	default:
		return "", false
	}
}
