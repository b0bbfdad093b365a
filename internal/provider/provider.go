// Package provider contains the embedding providers the semantic search path
// depends on. Providers are capability-checked: callers must consult
// Available before relying on Embed, though Embed may still fail when
// available (network or provider errors).
package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/recall/internal/config"
)

// Embedder converts text into a numeric embedding vector.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Available reports whether the provider can be expected to embed.
	Available() bool

	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string
}

// FromConfig builds the configured embedder. Any failure (unknown provider,
// missing API key) yields the unavailable embedder alongside the error so the
// layer degrades to message-only operation.
func FromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", "none":
		return None{}, nil
	case "openai":
		e, err = NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), cfg.BaseURL, cfg.Model)
	case "ollama":
		e, err = NewOllamaEmbedder(cfg.Model)
	case "gemini":
		e, err = NewGeminiEmbedder(os.Getenv("GEMINI_API_KEY"), cfg.Model)
	default:
		return None{}, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return None{}, fmt.Errorf("%s embedder: %w", cfg.Provider, err)
	}
	return e, nil
}

// None is the embedder used when no provider is configured.
type None struct{}

func (None) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding provider configured")
}

func (None) Available() bool {
	return false
}

func (None) Name() string {
	return "none"
}
