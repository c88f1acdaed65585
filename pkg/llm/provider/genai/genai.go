// Package genai implements pkg/llm's Generator on Google's Gemini API.
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mythos-rpg/mythos/pkg/llm"
)

// DefaultModel is the default Gemini chat model.
const DefaultModel = "gemini-2.5-flash"

// Generator wraps the Gemini generation API.
type Generator struct {
	client *genai.Client
	model  string
}

// GeneratorConfig holds configuration for the Gemini generator.
type GeneratorConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the chat model. Defaults to DefaultModel.
	Model string
}

// NewGenerator creates a generator backed by the Gemini API.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", llm.ErrGeneration)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", llm.ErrGeneration, err)
	}

	return &Generator{
		client: client,
		model:  model,
	}, nil
}

// buildContents translates request messages into Gemini contents.
func buildContents(req llm.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Config.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Config.Temperature))
	}
	if req.Config.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*req.Config.TopP))
	}
	if req.Config.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*req.Config.TopK))
	}
	if req.Config.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = int32(*req.Config.MaxOutputTokens)
	}
	cfg.StopSequences = req.Config.Stop

	return cfg
}

// Generate returns the complete response text in one call.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(req), buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %v", llm.ErrGeneration, err)
	}

	return result.Text(), nil
}

// Stream forwards Gemini's streamed responses as ordered chunks.
func (g *Generator) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		for result, err := range g.client.Models.GenerateContentStream(ctx, g.model, buildContents(req), buildConfig(req)) {
			if err != nil {
				out <- llm.Chunk{Err: fmt.Errorf("%w: gemini stream: %v", llm.ErrGeneration, err)}
				return
			}

			text := result.Text()
			if text == "" {
				continue
			}

			select {
			case out <- llm.Chunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements llm.Generator
var _ llm.Generator = (*Generator)(nil)
