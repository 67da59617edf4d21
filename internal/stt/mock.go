package stt

import "context"

// MockTranscriber returns canned text, for tests and local development.
type MockTranscriber struct {
	Text string
	Err  error
}

func (m *MockTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(audio) == 0 {
		return "", nil
	}
	return m.Text, nil
}
