package websearch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

// cseScope is requested when no API key is configured and application
// default credentials are used instead.
const cseScope = "https://www.googleapis.com/auth/cse"

// maxGoogleResults is the largest page the Custom Search API returns.
const maxGoogleResults = 10

// GoogleSearch queries a Google Programmable Search Engine.
type GoogleSearch struct {
	svc *customsearch.Service
	cx  string
}

func NewGoogleSearch(ctx context.Context, apiKey, engineID string) (*GoogleSearch, error) {
	if engineID == "" {
		return nil, errors.New("GOOGLE_CSE_ID is not set")
	}

	var opt option.ClientOption
	if apiKey != "" {
		opt = option.WithAPIKey(apiKey)
	} else {
		ts, err := google.DefaultTokenSource(ctx, cseScope)
		if err != nil {
			return nil, fmt.Errorf("no API key and no default credentials: %w", err)
		}
		opt = option.WithTokenSource(oauth2.ReuseTokenSource(nil, ts))
	}

	svc, err := customsearch.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("creating custom search client: %w", err)
	}
	return &GoogleSearch{svc: svc, cx: engineID}, nil
}

func (g *GoogleSearch) Available() bool { return true }

func (g *GoogleSearch) Search(ctx context.Context, query string, maxResults int) ([]graph.WebResult, error) {
	n := min(max(maxResults, 1), maxGoogleResults)

	res, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("custom search failed: %w", err)
	}

	out := make([]graph.WebResult, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, graph.WebResult{
			Title:   item.Title,
			Content: item.Snippet,
			URL:     item.Link,
		})
	}
	return out, nil
}
