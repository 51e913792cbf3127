package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/salesdesk/internal/conversation"
)

type mockLLM struct {
	resp openai.ChatCompletionResponse
	err  error
	reqs []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(_ context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.reqs = append(m.reqs, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return m.resp, nil
}

func reply(texts ...string) openai.ChatCompletionResponse {
	var choices []openai.ChatCompletionChoice
	for _, t := range texts {
		choices = append(choices, openai.ChatCompletionChoice{Message: openai.ChatCompletionMessage{Role: "assistant", Content: t}})
	}
	return openai.ChatCompletionResponse{Choices: choices}
}

var seed = conversation.Seed{Instructions: "sell", Knowledge: "robots"}

func TestNew_ValidatesDependencies(t *testing.T) {
	_, err := New(nil, "gpt-4o")
	require.Error(t, err)
	_, err = New(&mockLLM{}, "")
	require.Error(t, err)
}

func TestComplete_SendsFullTranscriptAndTakesFirstChoice(t *testing.T) {
	m := &mockLLM{resp: reply("first", "second")}
	g, err := New(m, "gpt-4o")
	require.NoError(t, err)

	tr := conversation.New(seed).
		AppendUser("hi").
		AppendReply(conversation.Failed(errors.New("timeout"))).
		AppendUser("What robots do you sell?")

	r := g.Complete(context.Background(), tr)
	require.NoError(t, r.Err)
	require.Equal(t, "first", r.Text)

	require.Len(t, m.reqs, 1)
	req := m.reqs[0]
	require.Equal(t, "gpt-4o", req.Model)
	require.Equal(t, []openai.ChatCompletionMessage{
		{Role: "system", Content: "sell"},
		{Role: "system", Content: "Preloaded Knowledge: robots"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "An error occurred: timeout"},
		{Role: "user", Content: "What robots do you sell?"},
	}, req.Messages)
}

func TestComplete_TransportErrorBecomesFailedReply(t *testing.T) {
	g, err := New(&mockLLM{err: context.DeadlineExceeded}, "gpt-4o")
	require.NoError(t, err)

	r := g.Complete(context.Background(), conversation.New(seed).AppendUser("hi"))
	require.ErrorIs(t, r.Err, context.DeadlineExceeded)

	msg := r.Message()
	require.True(t, strings.HasPrefix(msg.Display(), "An error occurred:"))
}

func TestComplete_APIErrorBecomesFailedReply(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"}
	g, err := New(&mockLLM{err: apiErr}, "gpt-4o")
	require.NoError(t, err)

	r := g.Complete(context.Background(), conversation.New(seed).AppendUser("hi"))
	var got *openai.APIError
	require.ErrorAs(t, r.Err, &got)
	require.Contains(t, r.Message().Display(), "Incorrect API key provided")
}

func TestComplete_NoChoices(t *testing.T) {
	g, err := New(&mockLLM{resp: reply()}, "gpt-4o")
	require.NoError(t, err)

	r := g.Complete(context.Background(), conversation.New(seed).AppendUser("hi"))
	require.ErrorIs(t, r.Err, ErrNoChoices)
}
