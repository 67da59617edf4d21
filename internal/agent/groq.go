package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// GroqConfig controls the Groq-backed conversation agent.
type GroqConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// GroqAgent streams chat completions from Groq's OpenAI-compatible API.
type GroqAgent struct {
	client       openai.Client
	model        string
	systemPrompt string
}

func NewGroqAgent(cfg GroqConfig) (*GroqAgent, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("agent: api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("agent: model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &GroqAgent{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// StreamReply forwards each completion fragment to onDelta in arrival order
// and returns the concatenated text. A mid-stream failure returns the partial
// text together with the error.
func (g *GroqAgent) StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(req.History)+2)
	if g.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(g.systemPrompt))
	}
	for _, ex := range req.History {
		messages = append(messages, openai.UserMessage(ex.UserText))
		messages = append(messages, openai.AssistantMessage(ex.AssistantText))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	stream := g.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
	})
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return Reply{Text: full.String()}, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Reply{Text: full.String()}, fmt.Errorf("chat stream: %w", err)
	}

	return Reply{Text: full.String()}, nil
}
