package graph

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Node names.
const (
	NodeEntry      = "entry"
	NodeRetrieve   = "retrieve"
	NodeGrade      = "grade"
	NodeWebSearch  = "websearch"
	NodeSynthesize = "synthesize"
	NodeOffTopic   = "off_topic_terminal"
	NodeGreeting   = "greeting_terminal"
)

// Turn is the input of one workflow execution.
type Turn struct {
	Intent  Intent
	Query   string
	History []Message
}

// Workflow runs a turn through retrieval, grading, web fallback and synthesis.
type Workflow struct {
	graph   *Graph[State]
	sources *Sources
	grader  *Grader
	synth   *Synthesizer
	logger  *zap.Logger
}

func NewWorkflow(sources *Sources, grader *Grader, synth *Synthesizer, logger *zap.Logger) (*Workflow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workflow{
		sources: sources,
		grader:  grader,
		synth:   synth,
		logger:  logger.Named("workflow"),
	}

	g := NewGraph[State](w.logger)
	g.OnNode = func(name string, elapsed time.Duration) {
		nodeDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}

	g.AddNode(NodeEntry, entryNode)
	g.AddNode(NodeRetrieve, w.retrieveNode)
	g.AddNode(NodeGrade, w.gradeNode)
	g.AddNode(NodeWebSearch, w.webSearchNode)
	g.AddNode(NodeSynthesize, w.synthesizeNode)
	g.AddNode(NodeOffTopic, offTopicNode)
	g.AddNode(NodeGreeting, greetingNode)

	g.SetEntryPoint(NodeEntry)
	g.AddConditionalEdges(NodeEntry, routeEntry, map[string]string{
		NodeRetrieve: NodeRetrieve,
		NodeGreeting: NodeGreeting,
		NodeOffTopic: NodeOffTopic,
	})
	g.AddEdge(NodeRetrieve, NodeGrade)
	g.AddConditionalEdges(NodeGrade, routeAfterGrade, map[string]string{
		NodeSynthesize: NodeSynthesize,
		NodeWebSearch:  NodeWebSearch,
	})
	g.AddEdge(NodeWebSearch, NodeSynthesize)
	g.SetFinishPoint(NodeSynthesize)
	g.SetFinishPoint(NodeOffTopic)
	g.SetFinishPoint(NodeGreeting)

	if err := g.Validate(); err != nil {
		return nil, err
	}
	w.graph = g
	return w, nil
}

// Run executes one turn. Provider failures never surface here; an error
// means the turn could not be routed or the context was cancelled.
func (w *Workflow) Run(ctx context.Context, turn Turn) (State, error) {
	start := time.Now()
	state := State{
		Intent:   turn.Intent,
		Query:    turn.Query,
		History:  turn.History,
		Evidence: []Passage{},
	}

	out, err := w.graph.Execute(ctx, state)
	if err != nil {
		w.logger.Error("workflow failed", zap.String("intent", string(turn.Intent)), zap.Error(err))
		return out, err
	}
	w.logger.Info("turn complete",
		zap.String("intent", string(turn.Intent)),
		zap.Int("evidence", len(out.Evidence)),
		zap.Bool("proceed", out.Proceed),
		zap.Int("failed_gradings", out.FailedGradings),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func entryNode(_ context.Context, s State) (State, error) {
	return s, nil
}

func (w *Workflow) retrieveNode(ctx context.Context, s State) (State, error) {
	return s.withEvidence(w.sources.FetchVector(ctx, s.Query)), nil
}

func (w *Workflow) gradeNode(ctx context.Context, s State) (State, error) {
	res := w.grader.Grade(ctx, s.Query, s.Evidence)
	s = s.withEvidence(res.Relevant)
	s.Proceed = res.Proceed()
	s.FailedGradings += res.Failed
	return s, nil
}

func (w *Workflow) webSearchNode(ctx context.Context, s State) (State, error) {
	w.logger.Info("local evidence insufficient, falling back to web search")
	s = s.withEvidence(w.sources.FetchWeb(ctx, s.Query))
	s.Proceed = len(s.Evidence) > 0
	return s, nil
}

func (w *Workflow) synthesizeNode(ctx context.Context, s State) (State, error) {
	answer := w.synth.Generate(ctx, s.History, s.Evidence, s.Query)
	return s.withReply(answer), nil
}
