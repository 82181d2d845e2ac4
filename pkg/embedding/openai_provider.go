package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls an OpenAI-compatible /embeddings endpoint. LM Studio
// serves local models such as multilingual-e5 this way.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(baseURL, apiKey, model string) EmbeddingProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{e5Prefix(p.model, taskType) + text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}
	return Normalize(resp.Data[0].Embedding), nil
}

// e5 models are trained with "query: " / "passage: " prefixes.
func e5Prefix(model, taskType string) string {
	if !strings.Contains(strings.ToLower(model), "e5") {
		return ""
	}
	if taskType == TaskRetrievalQuery {
		return "query: "
	}
	return "passage: "
}
