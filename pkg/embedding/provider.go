package embedding

import (
	"context"
	"fmt"
	"math"

	"owlynn-be/internal/config"
)

// Task types understood by providers that distinguish document and query
// embeddings. Others ignore them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}

// NewProvider builds the provider selected by EMBEDDING_PROVIDER, rate
// limited when EMBEDDING_RATE_LIMIT is set.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig) (EmbeddingProvider, error) {
	var (
		p   EmbeddingProvider
		err error
	)
	switch cfg.Provider {
	case "openai", "lmstudio", "":
		p = NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "ollama":
		p = NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithRateLimit(p, cfg.RateLimit, cfg.RateBurst), nil
}

// Normalize scales vec to unit length in place and returns it. Cosine
// distance in pgvector and chromem assumes unit vectors.
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / magnitude)
	}
	return vec
}
