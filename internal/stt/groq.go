package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqConfig controls the Groq-backed transcriber. Groq exposes Whisper
// through an OpenAI-compatible endpoint, so the OpenAI SDK is pointed at it
// via the base URL.
type GroqConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// GroqTranscriber transcribes audio segments with Groq's hosted Whisper.
type GroqTranscriber struct {
	client   openai.Client
	model    string
	language string
}

func NewGroqTranscriber(cfg GroqConfig) (*GroqTranscriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("stt: api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("stt: model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en"
	}

	return &GroqTranscriber{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		language: language,
	}, nil
}

// Transcribe stages the segment to a temporary webm file and submits it for
// recognition. The upstream endpoint wants file-shaped input; the staging file
// is removed on every exit path.
func (g *GroqTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	tmp, err := os.CreateTemp("", "amica-audio-*.webm")
	if err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(audio); err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}

	resp, err := g.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:        tmp,
		Model:       openai.AudioModel(g.model),
		Language:    openai.String(g.language),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %d bytes: %w", len(audio), err)
	}
	return strings.TrimSpace(resp.Text), nil
}
