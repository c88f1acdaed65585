// Package provider constructs generation clients by provider name.
package provider

import (
	"context"
	"fmt"

	"github.com/mythos-rpg/mythos/pkg/llm"
	llmgenai "github.com/mythos-rpg/mythos/pkg/llm/provider/genai"
	"github.com/mythos-rpg/mythos/pkg/llm/provider/ollama"
)

// NewGeneratorOpts selects and configures a generation provider.
type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

// NewGenerator creates a generator for the named provider.
func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "gemini":
		return llmgenai.NewGenerator(ctx, llmgenai.GeneratorConfig{
			APIKey: o.APIKey,
			Model:  o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
