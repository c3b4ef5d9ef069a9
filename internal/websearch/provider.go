package websearch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

type Config struct {
	Provider     string // "tavily" or "google"
	TavilyAPIKey string
	GoogleAPIKey string
	GoogleCSEID  string
}

// Unavailable stands in for a search provider that could not be initialised.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Available() bool { return false }

func (u Unavailable) Search(context.Context, string, int) ([]graph.WebResult, error) {
	return nil, fmt.Errorf("web search: %w: %s", graph.ErrUnavailable, u.Reason)
}

// New builds the configured provider, or an Unavailable sentinel.
func New(ctx context.Context, cfg Config, logger *zap.Logger) graph.WebSearchProvider {
	var (
		p   graph.WebSearchProvider
		err error
	)
	switch cfg.Provider {
	case "tavily", "":
		if cfg.TavilyAPIKey == "" {
			err = errors.New("TAVILY_API_KEY is not set")
		} else {
			p = NewTavily(cfg.TavilyAPIKey)
		}
	case "google":
		p, err = NewGoogleSearch(ctx, cfg.GoogleAPIKey, cfg.GoogleCSEID)
	default:
		err = fmt.Errorf("unknown web search provider %q", cfg.Provider)
	}
	if err != nil {
		logger.Warn("web search not available", zap.String("provider", cfg.Provider), zap.Error(err))
		return Unavailable{Reason: err.Error()}
	}
	logger.Info("web search initialized", zap.String("provider", cfg.Provider))
	return p
}
