package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// EmbedderOptions selects an embedding backend.
type EmbedderOptions struct {
	Backend      string // "none", "ollama" or "gemini"
	Model        string
	OllamaURL    string
	GeminiKeyEnv string
}

// CreateEmbedder returns the configured embedder, or nil when embeddings are
// disabled or unavailable. Callers fall back to lexical similarity on nil.
func CreateEmbedder(ctx context.Context, opts EmbedderOptions, logger *zap.Logger) Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(opts.Backend) {
	case "ollama":
		model := opts.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(model, opts.OllamaURL)
	case "gemini":
		e, err := NewGeminiEmbedder(ctx, opts.Model, opts.GeminiKeyEnv)
		if err != nil {
			logger.Warn("Gemini embedder unavailable, using lexical similarity", zap.Error(err))
			return nil
		}
		return e
	}
	return nil
}
