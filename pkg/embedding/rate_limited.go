package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider spaces out calls to a provider that enforces a request
// rate, such as a hosted embedding API shared by uploads and reindexing.
type RateLimitedProvider struct {
	next    EmbeddingProvider
	limiter *rate.Limiter
}

// WithRateLimit wraps p when requestsPerSecond is positive and returns p
// unchanged otherwise.
func WithRateLimit(p EmbeddingProvider, requestsPerSecond float64, burst int) EmbeddingProvider {
	if requestsPerSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    p,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (r *RateLimitedProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.next.Generate(ctx, text, taskType)
}
