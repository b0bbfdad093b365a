// Package config loads the layer's configuration from a YAML file,
// falling back to defaults when the file or individual keys are absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CacheConfig bounds the in-memory tiers. Zero values fall back to defaults.
type CacheConfig struct {
	MessageLimit int `yaml:"message_limit"`
	VectorLimit  int `yaml:"vector_limit"`
}

// EmbeddingConfig selects the embedding provider used for semantic search.
// Provider "none" disables vector search entirely.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // none, openai, ollama, gemini
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// Config is the root configuration for the storage layer.
type Config struct {
	DataDir       string          `yaml:"data_dir"`
	VectorBackend string          `yaml:"vector_backend"` // sqlite or chromem
	Cache         CacheConfig     `yaml:"cache"`
	Embedding     EmbeddingConfig `yaml:"embedding"`
}

const (
	DefaultMessageLimit = 200
	DefaultVectorLimit  = 1000
)

// Default returns the configuration used when no file is present.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:       filepath.Join(home, ".recall"),
		VectorBackend: "sqlite",
		Cache: CacheConfig{
			MessageLimit: DefaultMessageLimit,
			VectorLimit:  DefaultVectorLimit,
		},
		Embedding: EmbeddingConfig{
			Provider: "none",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Cache.MessageLimit <= 0 {
		cfg.Cache.MessageLimit = DefaultMessageLimit
	}
	if cfg.Cache.VectorLimit <= 0 {
		cfg.Cache.VectorLimit = DefaultVectorLimit
	}
	if cfg.VectorBackend == "" {
		cfg.VectorBackend = "sqlite"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "none"
	}

	return cfg, nil
}
