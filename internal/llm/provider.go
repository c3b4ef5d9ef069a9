package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

type Config struct {
	Provider     string // "gemini" or "ollama"
	Model        string
	Temperature  float32
	MaxTokens    int
	GoogleAPIKey string
	OllamaURL    string
}

// Unavailable stands in for a language model that could not be initialised.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Available() bool { return false }

func (u Unavailable) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("language model: %w: %s", graph.ErrUnavailable, u.Reason)
}

func (u Unavailable) Judge(context.Context, string, string) (graph.Verdict, error) {
	return graph.Verdict{}, fmt.Errorf("language model: %w: %s", graph.ErrUnavailable, u.Reason)
}

// New builds the configured language model, or an Unavailable sentinel.
// The choice is made once; callers keep the returned value for the process.
func New(ctx context.Context, cfg Config, logger *zap.Logger) graph.LanguageModel {
	switch cfg.Provider {
	case "gemini", "":
		m, err := NewGemini(ctx, cfg.GoogleAPIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			logger.Warn("gemini unavailable, please check GOOGLE_API_KEY", zap.Error(err))
			return Unavailable{Reason: err.Error()}
		}
		logger.Info("LLM initialized", zap.String("provider", "gemini"), zap.String("model", m.model))
		return m
	case "ollama":
		m := NewOllama(cfg.OllamaURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := m.Ping(pingCtx); err != nil {
			logger.Warn("ollama unavailable", zap.Error(err))
			return Unavailable{Reason: err.Error()}
		}
		logger.Info("LLM initialized", zap.String("provider", "ollama"), zap.String("model", m.model))
		return m
	default:
		return Unavailable{Reason: fmt.Sprintf("unknown LLM provider %q", cfg.Provider)}
	}
}
