// Package llm adapts text-generation and embedding backends (Ollama, OpenAI,
// Gemini) to the small interfaces the generators and curators need.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Provider is the interface for text-generation collaborators.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider     string // "ollama", "openai" or "gemini"
	Model        string
	OllamaURL    string
	OpenAIModel  string
	GeminiModel  string
	APIKeyEnv    string
	GeminiKeyEnv string
	Temperature  float64
}

// CreateProvider creates an LLM provider based on configuration. It falls
// back from the configured provider to OpenAI and returns nil when nothing
// is usable.
func CreateProvider(ctx context.Context, opts Options, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(opts.Provider) {
	case "gemini":
		p, err := NewGeminiProvider(ctx, opts.GeminiModel, opts.GeminiKeyEnv)
		if err == nil && p.IsConfigured() {
			p.Temperature = float32(opts.Temperature)
			logger.Info("using Gemini", zap.String("model", p.Model))
			return p
		}
		logger.Warn("Gemini not available, trying OpenAI fallback", zap.Error(err))
	case "ollama":
		p := NewOllamaProvider(opts.Model, opts.OllamaURL)
		if p.IsConfigured() {
			p.Temperature = opts.Temperature
			logger.Info("using Ollama", zap.String("model", opts.Model))
			return p
		}
		logger.Warn("Ollama not available, trying OpenAI fallback", zap.String("model", opts.Model))
	}

	p := NewOpenAIProvider(opts.OpenAIModel, opts.APIKeyEnv)
	if p.IsConfigured() {
		p.Temperature = opts.Temperature
		logger.Info("using OpenAI", zap.String("model", opts.OpenAIModel))
		return p
	}

	logger.Warn("no LLM provider available; check Ollama is running or set an API key",
		zap.String("openai_key_env", opts.APIKeyEnv), zap.String("gemini_key_env", opts.GeminiKeyEnv))
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// postJSON sends body as JSON and decodes a 200 reply into out. Any other
// status is returned as an error carrying the response body.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
