package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// webQueryPrefix biases web results toward Ayurvedic material.
const webQueryPrefix = "Ayurvedic treatment remedy "

const previewLen = 100

type SourcesConfig struct {
	TopK       int
	WebResults int
	// Timeout bounds each backend call. Zero means no timeout.
	Timeout time.Duration
	// WebRetries is the number of extra web-search attempts after a failure.
	WebRetries    uint
	RetryInterval time.Duration
}

func DefaultSourcesConfig() SourcesConfig {
	return SourcesConfig{
		TopK:          5,
		WebResults:    3,
		Timeout:       15 * time.Second,
		WebRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	}
}

// Sources fetches evidence from the vector index and from web search. Both
// fetches return an empty slice instead of an error.
type Sources struct {
	embedder Embedder
	index    VectorIndex
	web      WebSearchProvider
	cfg      SourcesConfig
	logger   *zap.Logger
}

func NewSources(embedder Embedder, index VectorIndex, web WebSearchProvider, cfg SourcesConfig, logger *zap.Logger) *Sources {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.WebResults <= 0 {
		cfg.WebResults = 3
	}
	return &Sources{
		embedder: embedder,
		index:    index,
		web:      web,
		cfg:      cfg,
		logger:   logger.Named("sources"),
	}
}

func (s *Sources) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// FetchVector returns the top-K passages nearest to the query embedding.
func (s *Sources) FetchVector(ctx context.Context, query string) []Passage {
	if !s.embedder.Available() || !s.index.Available() {
		s.logger.Info("vector retrieval not available, skipping")
		return []Passage{}
	}

	hits, err := s.searchVector(ctx, query)
	if err != nil {
		sourceErrorsTotal.WithLabelValues(string(OriginVector)).Inc()
		s.logger.Warn("vector retrieval failed", zap.Error(err))
		return []Passage{}
	}

	passages := make([]Passage, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, Passage{
			Text:   h.Text,
			Origin: OriginVector,
			Source: h.Source,
			Score:  h.Score,
		})
	}
	passagesFetched.WithLabelValues(string(OriginVector)).Add(float64(len(passages)))
	s.logFetched(OriginVector, passages)
	return passages
}

func (s *Sources) searchVector(ctx context.Context, query string) ([]ScoredText, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := s.index.Search(ctx, emb, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return hits, nil
}

// FetchWeb searches the web for the query and keeps results that have content.
func (s *Sources) FetchWeb(ctx context.Context, query string) []Passage {
	if !s.web.Available() {
		s.logger.Info("web search not available, skipping")
		return []Passage{}
	}

	q := webQueryPrefix + query
	s.logger.Info("searching web", zap.String("query", q))

	results, err := s.searchWeb(ctx, q)
	if err != nil {
		sourceErrorsTotal.WithLabelValues(string(OriginWeb)).Inc()
		s.logger.Warn("web search failed", zap.Error(err))
		return []Passage{}
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		passages = append(passages, Passage{
			Text:   r.Content,
			Origin: OriginWeb,
			Source: r.URL,
		})
	}
	passagesFetched.WithLabelValues(string(OriginWeb)).Add(float64(len(passages)))
	s.logFetched(OriginWeb, passages)
	return passages
}

func (s *Sources) searchWeb(ctx context.Context, q string) ([]WebResult, error) {
	b := backoff.NewExponentialBackOff()
	if s.cfg.RetryInterval > 0 {
		b.InitialInterval = s.cfg.RetryInterval
	}

	attempt := 0
	op := func() ([]WebResult, error) {
		attempt++
		callCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		results, err := s.web.Search(callCtx, q, s.cfg.WebResults)
		if err == nil {
			return results, nil
		}
		if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		s.logger.Debug("web search attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.cfg.WebRetries+1),
	)
}

func (s *Sources) logFetched(origin Origin, passages []Passage) {
	fields := []zap.Field{
		zap.String("origin", string(origin)),
		zap.Int("count", len(passages)),
	}
	if len(passages) > 0 {
		fields = append(fields, zap.String("preview", truncateRunes(passages[0].Text, previewLen)))
	}
	s.logger.Info("retrieved passages", fields...)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
