package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChatClient struct {
	mu    sync.Mutex
	resp  goopenai.ChatCompletionResponse
	err   error
	calls []goopenai.ChatCompletionRequest
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return m.resp, m.err
}

func reply(text string) goopenai.ChatCompletionResponse {
	return goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{
		{Message: goopenai.ChatCompletionMessage{Role: "assistant", Content: text}},
	}}
}

func TestChat_MapsMessagesAndOptions(t *testing.T) {
	client := &mockChatClient{resp: reply("  Hello Ada \n")}
	p := NewProviderWithClient(client, llm.Options{Model: "qwen", Temperature: 0.65, MaxTokens: 100})

	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be nice"},
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.WithTemperature(0.1))
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", out)

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.Equal(t, "qwen", req.Model)
	assert.InDelta(t, 0.1, req.Temperature, 0.0001)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
}

func TestChat_ErrorsAreModelFailures(t *testing.T) {
	p := NewProviderWithClient(&mockChatClient{err: errors.New("503")}, llm.Options{})
	_, err := p.Generate(context.Background(), "x")
	assert.True(t, apperror.Is(err, apperror.KindModelInvocationFailure))

	p = NewProviderWithClient(&mockChatClient{}, llm.Options{})
	_, err = p.Generate(context.Background(), "x")
	assert.True(t, apperror.Is(err, apperror.KindModelInvocationFailure))
}

func TestCaption(t *testing.T) {
	client := &mockChatClient{resp: reply("A cat on a mat.")}
	p := NewProviderWithClient(client, llm.Options{})

	out, err := p.Caption(context.Background(), []byte{1, 2}, "image/png")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, client.calls)

	p.WithCaptionModel("llava")
	out, err = p.Caption(context.Background(), []byte{1, 2}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "A cat on a mat.", out)
	require.Len(t, client.calls, 1)
	parts := client.calls[0].Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestNewProvider_OpenAICompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL+"/v1/", "none", "local-model", 0.65, 64)
	out, err := p.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}
