// Package search runs the query path: transcribe and embed the query clip
// exactly like save does, ask the vector store for the nearest records, and
// write the ranked results to a JSON file.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"clipindex/engine/domain"
	"clipindex/engine/semantic"
)

// Transcriber produces a transcript for the query clip.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (domain.Transcript, error)
}

// Embedder turns the query transcript into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// SemanticSearcher abstracts the vector store's filtered k-NN query.
type SemanticSearcher interface {
	Query(ctx context.Context, embedding []float32, topK int, matchTopics []string) ([]semantic.SearchResult, error)
}

// Options configures a single search run.
type Options struct {
	// TopK bounds the number of results.
	TopK int
	// Topics restricts results to records matching any of these labels.
	Topics []string
	// Output is the JSON file the ranked results are written to.
	Output string
}

// DefaultOptions returns the defaults the CLI advertises.
func DefaultOptions() Options {
	return Options{
		TopK:   2,
		Output: "output.json",
	}
}

// Service orchestrates the search path.
type Service struct {
	transcriber Transcriber
	embedder    Embedder
	store       SemanticSearcher
	logger      *slog.Logger
}

// New creates a search Service.
func New(transcriber Transcriber, embedder Embedder, store SemanticSearcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transcriber: transcriber,
		embedder:    embedder,
		store:       store,
		logger:      logger,
	}
}

// Run searches for the nearest stored clips to the given query file and
// writes the ranked results to opts.Output. The results are also returned
// for callers that want them in-process.
func (s *Service) Run(ctx context.Context, path string, opts Options) ([]semantic.SearchResult, error) {
	if err := domain.ValidateMediaFile(path); err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.Output == "" {
		opts.Output = DefaultOptions().Output
	}

	transcript, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("search: transcribe query: %w", err)
	}

	vector, err := s.embedder.EmbedText(ctx, transcript.Text)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	results, err := s.store.Query(ctx, vector, opts.TopK, opts.Topics)
	if err != nil {
		return nil, fmt.Errorf("search: vector query: %w", err)
	}
	s.logger.Info("search results", "count", len(results), "top_k", opts.TopK)

	if err := writeResults(opts.Output, results); err != nil {
		return nil, err
	}
	s.logger.Info("results written", "output", opts.Output)

	return results, nil
}

// writeResults marshals the ranked results to the output file.
func writeResults(path string, results []semantic.SearchResult) error {
	data, err := json.MarshalIndent(results, "", " ")
	if err != nil {
		return fmt.Errorf("search: marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("search: write %s: %w", path, err)
	}
	return nil
}
