package processing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

type Config struct {
	Provider     string // "ollama" or "gemini"
	Model        string
	Dim          int
	OllamaURL    string
	GoogleAPIKey string
}

// Unavailable stands in for an embedder that could not be initialised.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Available() bool { return false }

func (u Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedder: %w: %s", graph.ErrUnavailable, u.Reason)
}

// NewEmbedder builds the configured embedder, or an Unavailable sentinel.
func NewEmbedder(ctx context.Context, cfg Config, logger *zap.Logger) graph.Embedder {
	switch cfg.Provider {
	case "gemini":
		e, err := NewGeminiEmbedder(ctx, cfg.GoogleAPIKey, cfg.Model, cfg.Dim)
		if err != nil {
			logger.Warn("gemini embeddings unavailable", zap.Error(err))
			return Unavailable{Reason: err.Error()}
		}
		logger.Info("embeddings initialized", zap.String("provider", "gemini"), zap.String("model", e.model))
		return e
	case "ollama", "":
		e := NewOllamaEmbedder(cfg.OllamaURL, cfg.Model, cfg.Dim)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := e.Ping(pingCtx); err != nil {
			logger.Warn("ollama embeddings unavailable", zap.Error(err))
			return Unavailable{Reason: err.Error()}
		}
		logger.Info("embeddings initialized", zap.String("provider", "ollama"), zap.String("model", e.model))
		return e
	default:
		return Unavailable{Reason: fmt.Sprintf("unknown embedding provider %q", cfg.Provider)}
	}
}
