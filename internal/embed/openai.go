// Package embed provides embedding vectors for the grouping fallback.
package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/trendscope/trendscope/internal/ratelimit"
)

// ErrBudgetExhausted is returned when the daily embedding budget is spent.
var ErrBudgetExhausted = errors.New("embed: daily call budget exhausted")

// OpenAI implements group.EmbeddingProvider with the OpenAI embeddings API.
type OpenAI struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	limiter *ratelimit.Limiter
}

// NewOpenAI builds a provider. limiter may be nil.
func NewOpenAI(apiKey string, limiter *ratelimit.Limiter) *OpenAI {
	return &OpenAI{
		client:  openai.NewClient(apiKey),
		model:   openai.SmallEmbedding3,
		limiter: limiter,
	}
}

// Embed returns the vector for one text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if o.limiter != nil && !o.limiter.Allow("embedding") {
		return nil, ErrBudgetExhausted
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embed: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}
