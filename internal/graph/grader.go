package graph

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const graderSystemPrompt = `You are a grader assessing the relevance of a retrieved document to a user question.
Respond only with 'Yes' or 'No'.

Respond 'Yes' only if the document directly answers the user's question AND is on the correct topic.

Do NOT respond 'Yes' if:
- The document discusses unrelated diseases or topics (e.g., HIV vs COVID-19).
- The symptoms mentioned are general and not clearly tied to the topic in the question.
- The document content is ambiguous or off-topic.

Be strict. Respond 'No' if unsure.`

// GradeResult is the relevant subset of the graded passages, in input order.
type GradeResult struct {
	Relevant []Passage
	Failed   int
}

// Proceed reports whether any passage survived grading.
func (r GradeResult) Proceed() bool {
	return len(r.Relevant) > 0
}

// Grader judges each passage independently. A passage whose judgment call
// fails is dropped; the rest of the batch is unaffected.
type Grader struct {
	model       LanguageModel
	concurrency int
	logger      *zap.Logger
}

func NewGrader(model LanguageModel, concurrency int, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Grader{
		model:       model,
		concurrency: concurrency,
		logger:      logger.Named("grader"),
	}
}

func (g *Grader) Grade(ctx context.Context, query string, passages []Passage) GradeResult {
	if len(passages) == 0 {
		return GradeResult{Relevant: []Passage{}}
	}
	if !g.model.Available() {
		g.logger.Warn("language model not available, rejecting all passages", zap.Int("passages", len(passages)))
		gradingsTotal.WithLabelValues("failed").Add(float64(len(passages)))
		return GradeResult{Relevant: []Passage{}, Failed: len(passages)}
	}

	keep := make([]bool, len(passages))
	var failed atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, p := range passages {
		eg.Go(func() error {
			v, err := g.model.Judge(ctx, graderSystemPrompt, gradePrompt(query, p))
			if err != nil {
				failed.Add(1)
				gradingsTotal.WithLabelValues("failed").Inc()
				g.logger.Warn("grading call failed, excluding passage",
					zap.Int("index", i),
					zap.String("origin", string(p.Origin)),
					zap.Error(err))
				return nil
			}
			keep[i] = v.Relevant()
			if keep[i] {
				gradingsTotal.WithLabelValues("relevant").Inc()
			} else {
				gradingsTotal.WithLabelValues("irrelevant").Inc()
			}
			return nil
		})
	}
	_ = eg.Wait()

	relevant := make([]Passage, 0, len(passages))
	for i, p := range passages {
		if keep[i] {
			relevant = append(relevant, p)
		}
	}

	res := GradeResult{Relevant: relevant, Failed: int(failed.Load())}
	g.logger.Info("graded passages",
		zap.Int("total", len(passages)),
		zap.Int("relevant", len(relevant)),
		zap.Int("failed", res.Failed),
		zap.Bool("proceed", res.Proceed()))
	return res
}

func gradePrompt(query string, p Passage) string {
	return fmt.Sprintf("User question: %s\n\nRetrieved document:\n%s", query, p.Text)
}
