package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// End is the pseudo-node every terminal node routes to.
const End = "__end__"

// defaultMaxSteps bounds a single execution; the workflow graph is acyclic so
// any run that hits it has a wiring bug.
const defaultMaxSteps = 16

type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc picks the outgoing route of a conditional edge. It must not
// modify state.
type RouterFunc[S any] func(state S) string

type edge[S any] struct {
	to     string
	router RouterFunc[S]
	routes map[string]string
}

// Graph is a small directed graph of nodes over a state value S.
type Graph[S any] struct {
	nodes    map[string]NodeFunc[S]
	edges    map[string]edge[S]
	entry    string
	maxSteps int
	logger   *zap.Logger

	// OnNode, when set, is called after each node finishes.
	OnNode func(name string, elapsed time.Duration)
}

func NewGraph[S any](logger *zap.Logger) *Graph[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string]edge[S]),
		maxSteps: defaultMaxSteps,
		logger:   logger,
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) {
	g.nodes[name] = fn
}

func (g *Graph[S]) SetEntryPoint(name string) {
	g.entry = name
}

// SetFinishPoint marks name as terminal.
func (g *Graph[S]) SetFinishPoint(name string) {
	g.AddEdge(name, End)
}

func (g *Graph[S]) AddEdge(from, to string) {
	g.edges[from] = edge[S]{to: to}
}

// AddConditionalEdges routes from a node through router; routes maps the
// router's decision to the next node.
func (g *Graph[S]) AddConditionalEdges(from string, router RouterFunc[S], routes map[string]string) {
	g.edges[from] = edge[S]{router: router, routes: routes}
}

// Validate checks that every edge points at a known node.
func (g *Graph[S]) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("entry point node %q not found", g.entry)
	}
	known := func(name string) bool {
		if name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}
	for from, e := range g.edges {
		if !known(from) {
			return fmt.Errorf("edge from unknown node %q", from)
		}
		if e.router == nil {
			if !known(e.to) {
				return fmt.Errorf("edge %q -> %q: unknown target", from, e.to)
			}
			continue
		}
		for decision, to := range e.routes {
			if !known(to) {
				return fmt.Errorf("conditional edge %q[%s] -> %q: unknown target", from, decision, to)
			}
		}
	}
	return nil
}

// Execute runs the graph from its entry point until a node routes to End.
// A node without outgoing edges ends the run.
func (g *Graph[S]) Execute(ctx context.Context, state S) (S, error) {
	current := g.entry
	if _, ok := g.nodes[current]; !ok {
		return state, fmt.Errorf("entry point node %q not found", current)
	}

	for step := 0; step < g.maxSteps; step++ {
		if current == End {
			return state, nil
		}
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("before node %q: %w", current, err)
		}

		fn, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("node %q not found in graph definition", current)
		}

		start := time.Now()
		next, err := fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("error executing node %q: %w", current, err)
		}
		state = next
		if g.OnNode != nil {
			g.OnNode(current, time.Since(start))
		}

		e, ok := g.edges[current]
		if !ok {
			g.logger.Debug("node has no outgoing edges, ending run", zap.String("node", current))
			return state, nil
		}
		if e.router == nil {
			g.logger.Debug("transition", zap.String("from", current), zap.String("to", e.to))
			current = e.to
			continue
		}

		decision := e.router(state)
		to, ok := e.routes[decision]
		if !ok {
			return state, fmt.Errorf("conditional edge from %q has no mapping for decision %q", current, decision)
		}
		g.logger.Debug("transition",
			zap.String("from", current),
			zap.String("decision", decision),
			zap.String("to", to))
		current = to
	}

	return state, fmt.Errorf("graph did not reach %s within %d steps", End, g.maxSteps)
}
