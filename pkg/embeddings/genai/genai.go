// Package genai implements pkg/embeddings' Embedder on Google's Gemini API.
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mythos-rpg/mythos/pkg/embeddings"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

// DefaultEmbeddingModel is the default Gemini embedding model.
const DefaultEmbeddingModel = "gemini-embedding-001"

// Embedder wraps the Gemini embedding API.
type Embedder struct {
	client   *genai.Client
	model    string
	taskType string
}

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the embedding model. Defaults to DefaultEmbeddingModel.
	Model string
}

// NewEmbedder creates a new embedder backed by the Gemini API.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", vector.ErrEmbedding)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", vector.ErrEmbedding, err)
	}

	return &Embedder{
		client:   client,
		model:    model,
		taskType: "SEMANTIC_SIMILARITY",
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: e.taskType,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %v", vector.ErrEmbedding, err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return result.Embeddings[0].Values, nil
}

// Close closes the Gemini client.
func (e *Embedder) Close() error {
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
