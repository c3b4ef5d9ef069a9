package graph

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned by capabilities that were not configured at startup.
var ErrUnavailable = errors.New("capability unavailable")

// Capability reports whether a provider was initialised. The answer is
// decided once, when the provider is constructed.
type Capability interface {
	Available() bool
}

// ScoredText is one similarity-search hit.
type ScoredText struct {
	Text   string
	Source string
	Score  float64
}

// WebResult is one web-search hit.
type WebResult struct {
	Title   string
	Content string
	URL     string
}

// Verdict is the structured output of a relevance judgment.
type Verdict struct {
	Score string `json:"score"`
}

// Relevant reports whether the verdict is a trimmed, case-insensitive "yes".
func (v Verdict) Relevant() bool {
	return strings.EqualFold(strings.TrimSpace(v.Score), "yes")
}

type Embedder interface {
	Capability
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Capability
	Search(ctx context.Context, embedding []float32, k int) ([]ScoredText, error)
}

type WebSearchProvider interface {
	Capability
	Search(ctx context.Context, query string, maxResults int) ([]WebResult, error)
}

// LanguageModel generates free text and fixed-shape relevance verdicts.
type LanguageModel interface {
	Capability
	Complete(ctx context.Context, prompt string) (string, error)
	Judge(ctx context.Context, system, user string) (Verdict, error)
}
