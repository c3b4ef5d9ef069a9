package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errBoom = errors.New("boom")

type fakeEmbedder struct {
	unavailable bool
	err         error
	block       bool // wait for ctx cancellation
	calls       int
}

func (f *fakeEmbedder) Available() bool { return !f.unavailable }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeIndex struct {
	unavailable bool
	hits        []ScoredText
	err         error
	calls       int
	lastK       int
}

func (f *fakeIndex) Available() bool { return !f.unavailable }

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]ScoredText, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeWeb struct {
	unavailable bool
	results     []WebResult
	errs        []error // consumed one per call before results are returned
	calls       int
	queries     []string
	lastMax     int
}

func (f *fakeWeb) Available() bool { return !f.unavailable }

func (f *fakeWeb) Search(_ context.Context, query string, maxResults int) ([]WebResult, error) {
	f.calls++
	f.queries = append(f.queries, query)
	f.lastMax = maxResults
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.results, nil
}

// fakeModel judges a passage relevant when its text contains one of the
// relevant markers, and fails when it contains a failing marker.
type fakeModel struct {
	unavailable bool
	relevant    []string
	failing     []string
	answer      string
	completeErr error
	block       bool // Complete waits for ctx cancellation

	mu          sync.Mutex
	judgeCalls  int
	prompts     []string
	completions int
}

func (f *fakeModel) Available() bool { return !f.unavailable }

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.completions++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.answer, nil
}

func (f *fakeModel) Judge(_ context.Context, _, user string) (Verdict, error) {
	f.mu.Lock()
	f.judgeCalls++
	f.mu.Unlock()
	doc := user
	if i := strings.Index(user, "Retrieved document:\n"); i >= 0 {
		doc = user[i+len("Retrieved document:\n"):]
	}
	for _, m := range f.failing {
		if strings.Contains(doc, m) {
			return Verdict{}, errBoom
		}
	}
	for _, m := range f.relevant {
		if strings.Contains(doc, m) {
			return Verdict{Score: " YES \n"}, nil
		}
	}
	return Verdict{Score: "No"}, nil
}
