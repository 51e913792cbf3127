// Package gateway performs the single outbound completion call for a chat turn.
package gateway

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/salesdesk/internal/conversation"
	"github.com/comigor/salesdesk/internal/llm"
	"github.com/comigor/salesdesk/internal/logger"
)

// ErrNoChoices is reported when the API answers without any candidate reply.
var ErrNoChoices = errors.New("no choices in completion response")

// Gateway sends whole transcripts to one fixed model.
type Gateway struct {
	client llm.Client
	model  string
}

// New creates a Gateway for the given model.
func New(client llm.Client, model string) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("gateway: llm client must not be nil")
	}
	if model == "" {
		return nil, errors.New("gateway: model must not be empty")
	}
	return &Gateway{client: client, model: model}, nil
}

// Complete sends the full transcript and returns the first choice. Every
// failure is returned as a failed Reply; Complete itself never errors.
func (g *Gateway) Complete(ctx context.Context, transcript conversation.Transcript) conversation.Reply {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAI(transcript),
	})
	if err != nil {
		logger.L.Error("LLM call failed", "model", g.model, "error", err)
		return conversation.Failed(err)
	}
	if len(resp.Choices) == 0 {
		logger.L.Error("LLM call returned no choices", "model", g.model, "id", resp.ID)
		return conversation.Failed(ErrNoChoices)
	}
	logger.L.Debug("LLM response received", "model", g.model, "id", resp.ID, "usage", resp.Usage.TotalTokens)
	return conversation.Ok(resp.Choices[0].Message.Content)
}

func toOpenAI(transcript conversation.Transcript) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Display(),
		})
	}
	return out
}
