// Package ollama implements pkg/llm's Generator against Ollama's chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mythos-rpg/mythos/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gemma3:latest"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Generator wraps Ollama's chat API.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeneratorConfig holds configuration for the Ollama generator.
type GeneratorConfig struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// NewGenerator creates a generator backed by Ollama's chat API.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// buildMessages translates a request into Ollama's message list. The system
// prompt goes first; the "model" role becomes Ollama's "assistant".
func (g *Generator) buildMessages(req llm.Request) []ollamaMessage {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		role := m.Role
		if role == llm.RoleModel {
			role = "assistant"
		}
		messages = append(messages, ollamaMessage{Role: role, Content: m.Content})
	}

	return messages
}

func buildOptions(cfg llm.GenerationConfig) *ollamaOptions {
	if cfg.Temperature == nil && cfg.TopP == nil && cfg.TopK == nil &&
		cfg.MaxOutputTokens == nil && len(cfg.Stop) == 0 {
		return nil
	}

	return &ollamaOptions{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
		NumPredict:  cfg.MaxOutputTokens,
		Stop:        cfg.Stop,
	}
}

func (g *Generator) send(ctx context.Context, req llm.Request, stream bool) (*http.Response, error) {
	reqBody := ollamaRequest{
		Model:    g.model,
		Messages: g.buildMessages(req),
		Stream:   stream,
		Options:  buildOptions(req.Config),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrGeneration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llm.ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrGeneration, resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// Generate returns the complete response text in one call.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	resp, err := g.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chunk ollamaStreamChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrGeneration, err)
	}

	return chunk.Message.Content, nil
}

// Stream sends a streaming chat request and forwards Ollama's NDJSON lines
// as ordered chunks.
func (g *Generator) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	resp, err := g.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var chunk ollamaStreamChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Skip malformed lines rather than killing the stream
				continue
			}

			if chunk.Message.Content != "" {
				select {
				case out <- llm.Chunk{Text: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}

			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			out <- llm.Chunk{Err: fmt.Errorf("%w: reading stream: %v", llm.ErrGeneration, err)}
		}
	}()

	return out, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Generator implements llm.Generator
var _ llm.Generator = (*Generator)(nil)
