// Package embed converts transcript text into fixed-length vectors via the
// hosted embedding API.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// Dimensions is the vector length produced by the embedding model.
	Dimensions = 1536
	// batchSize is the number of texts per embedding request.
	batchSize = 16
)

// embeddingAPI is the slice of the hosted client the embedder needs.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client turns texts into embedding vectors.
type Client struct {
	api     embeddingAPI
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an embedding client around the hosted API.
func New(api embeddingAPI, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:  logger,
	}
}

// EmbedTexts embeds every text, preserving input order. Requests are batched
// and paced; one vector comes back per text.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		response, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: openai.AdaEmbeddingV2,
		})
		if err != nil {
			return nil, fmt.Errorf("embed: batch %d:%d: %w", start, end, err)
		}
		if len(response.Data) != end-start {
			return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(response.Data), end-start)
		}
		for _, d := range response.Data {
			vectors = append(vectors, d.Embedding)
		}
	}
	c.logger.Info("embedded texts", "count", len(texts))
	return vectors, nil
}

// EmbedText embeds a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
