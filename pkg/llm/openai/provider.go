package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of the go-openai client the provider needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Provider talks to any OpenAI-compatible chat endpoint (OpenAI, LM Studio,
// vLLM, llama.cpp server).
type Provider struct {
	client       ChatClient
	defaults     llm.Options
	captionModel string
}

var (
	_ llm.LLMProvider = (*Provider)(nil)
	_ llm.Captioner   = (*Provider)(nil)
)

func NewProvider(baseURL, apiKey, model string, temperature float64, maxTokens int) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return NewProviderWithClient(goopenai.NewClientWithConfig(cfg), llm.Options{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}

func NewProviderWithClient(client ChatClient, defaults llm.Options) *Provider {
	return &Provider{client: client, defaults: defaults}
}

// WithCaptionModel enables Caption using the given vision-capable model.
func (p *Provider) WithCaptionModel(model string) *Provider {
	p.captionModel = model
	return p
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(p.defaults, opts...)

	messages := make([]goopenai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		messages[i] = goopenai.ChatCompletionMessage{Role: role, Content: msg.Content}
	}

	req := goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	return p.complete(ctx, req)
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Caption sends the image inline as a data URL to the caption model.
func (p *Provider) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	if p.captionModel == "" {
		return "", nil
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	req := goopenai.ChatCompletionRequest{
		Model:     p.captionModel,
		MaxTokens: 100,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: llm.RoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: "Describe this image in one or two sentences."},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	}
	return p.complete(ctx, req)
}

func (p *Provider) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperror.ModelInvocationFailure(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperror.ModelInvocationFailure(fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
