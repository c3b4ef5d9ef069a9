package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSourcesConfig() SourcesConfig {
	cfg := DefaultSourcesConfig()
	cfg.RetryInterval = time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}

func TestFetchVector(t *testing.T) {
	t.Run("maps hits to vector passages", func(t *testing.T) {
		idx := &fakeIndex{hits: []ScoredText{
			{Text: "Tulsi tea eases cold symptoms", Source: "herbs.pdf", Score: 0.91},
			{Text: "Ginger balances Kapha", Source: "doshas.md", Score: 0.72},
		}}
		s := NewSources(&fakeEmbedder{}, idx, &fakeWeb{}, testSourcesConfig(), nil)

		got := s.FetchVector(context.Background(), "What helps with a cold?")
		require.Len(t, got, 2)
		assert.Equal(t, 5, idx.lastK)
		assert.Equal(t, Passage{Text: "Tulsi tea eases cold symptoms", Origin: OriginVector, Source: "herbs.pdf", Score: 0.91}, got[0])
		assert.Equal(t, OriginVector, got[1].Origin)
	})

	t.Run("unconfigured index returns empty", func(t *testing.T) {
		emb := &fakeEmbedder{}
		s := NewSources(emb, &fakeIndex{unavailable: true}, &fakeWeb{}, testSourcesConfig(), nil)
		got := s.FetchVector(context.Background(), "q")
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Zero(t, emb.calls)
	})

	t.Run("unconfigured embedder returns empty", func(t *testing.T) {
		idx := &fakeIndex{hits: []ScoredText{{Text: "x"}}}
		s := NewSources(&fakeEmbedder{unavailable: true}, idx, &fakeWeb{}, testSourcesConfig(), nil)
		assert.Empty(t, s.FetchVector(context.Background(), "q"))
		assert.Zero(t, idx.calls)
	})

	t.Run("embedding failure returns empty", func(t *testing.T) {
		s := NewSources(&fakeEmbedder{err: errBoom}, &fakeIndex{}, &fakeWeb{}, testSourcesConfig(), nil)
		assert.Empty(t, s.FetchVector(context.Background(), "q"))
	})

	t.Run("search failure returns empty", func(t *testing.T) {
		s := NewSources(&fakeEmbedder{}, &fakeIndex{err: errBoom}, &fakeWeb{}, testSourcesConfig(), nil)
		assert.Empty(t, s.FetchVector(context.Background(), "q"))
	})

	t.Run("hung embedder is cut off by the timeout", func(t *testing.T) {
		cfg := testSourcesConfig()
		cfg.Timeout = 50 * time.Millisecond
		idx := &fakeIndex{hits: []ScoredText{{Text: "x"}}}
		s := NewSources(&fakeEmbedder{block: true}, idx, &fakeWeb{}, cfg, nil)

		start := time.Now()
		got := s.FetchVector(context.Background(), "q")
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Zero(t, idx.calls)
	})
}

func TestFetchWeb(t *testing.T) {
	t.Run("prefixes query and drops results without content", func(t *testing.T) {
		web := &fakeWeb{results: []WebResult{
			{Content: "Trikatu churna clears congestion", URL: "https://a.example"},
			{Content: "  ", URL: "https://b.example"},
			{Content: "Steam with eucalyptus", URL: "https://c.example"},
		}}
		s := NewSources(&fakeEmbedder{}, &fakeIndex{}, web, testSourcesConfig(), nil)

		got := s.FetchWeb(context.Background(), "sore throat")
		require.Len(t, got, 2)
		assert.Equal(t, []string{"Ayurvedic treatment remedy sore throat"}, web.queries)
		assert.Equal(t, 3, web.lastMax)
		assert.Equal(t, Passage{Text: "Trikatu churna clears congestion", Origin: OriginWeb, Source: "https://a.example"}, got[0])
		assert.Equal(t, "https://c.example", got[1].Source)
	})

	t.Run("unconfigured provider returns empty", func(t *testing.T) {
		web := &fakeWeb{unavailable: true}
		s := NewSources(&fakeEmbedder{}, &fakeIndex{}, web, testSourcesConfig(), nil)
		assert.Empty(t, s.FetchWeb(context.Background(), "q"))
		assert.Zero(t, web.calls)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		web := &fakeWeb{
			errs:    []error{errBoom, errBoom},
			results: []WebResult{{Content: "Ashwagandha", URL: "u"}},
		}
		s := NewSources(&fakeEmbedder{}, &fakeIndex{}, web, testSourcesConfig(), nil)
		got := s.FetchWeb(context.Background(), "stress")
		assert.Len(t, got, 1)
		assert.Equal(t, 3, web.calls)
	})

	t.Run("gives up after bounded retries", func(t *testing.T) {
		web := &fakeWeb{errs: []error{errBoom, errBoom, errBoom, errBoom}}
		cfg := testSourcesConfig()
		cfg.WebRetries = 1
		s := NewSources(&fakeEmbedder{}, &fakeIndex{}, web, cfg, nil)
		assert.Empty(t, s.FetchWeb(context.Background(), "q"))
		assert.Equal(t, 2, web.calls)
	})

	t.Run("unavailable error is not retried", func(t *testing.T) {
		web := &fakeWeb{errs: []error{ErrUnavailable, ErrUnavailable}}
		s := NewSources(&fakeEmbedder{}, &fakeIndex{}, web, testSourcesConfig(), nil)
		assert.Empty(t, s.FetchWeb(context.Background(), "q"))
		assert.Equal(t, 1, web.calls)
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "तुल", truncateRunes("तुलसी", 3))
	assert.Equal(t, 600, len([]rune(truncateRunes(strings.Repeat("é", 700), 600))))
}
