package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	embedder *fakeEmbedder
	index    *fakeIndex
	web      *fakeWeb
	model    *fakeModel
	workflow *Workflow
}

func newHarness(t *testing.T, index *fakeIndex, web *fakeWeb, model *fakeModel) *harness {
	t.Helper()
	h := &harness{embedder: &fakeEmbedder{}, index: index, web: web, model: model}
	sources := NewSources(h.embedder, index, web, testSourcesConfig(), nil)
	w, err := NewWorkflow(sources, NewGrader(model, 2, nil), NewSynthesizer(model, 0, nil), nil)
	require.NoError(t, err)
	h.workflow = w
	return h
}

func TestWorkflowColdScenario(t *testing.T) {
	h := newHarness(t,
		&fakeIndex{hits: []ScoredText{
			{Text: "Tulsi and ginger decoction relieves a cold", Source: "a"},
			{Text: "Managing blood sugar with bitter gourd", Source: "b"},
		}},
		&fakeWeb{},
		&fakeModel{relevant: []string{"cold"}, answer: "A Kapha imbalance; sip tulsi-ginger tea."},
	)
	history := []Message{{Role: RoleUser, Content: "What helps with a cold?"}}

	out, err := h.workflow.Run(context.Background(), Turn{Intent: IntentHealth, Query: "What helps with a cold?", History: history})
	require.NoError(t, err)

	assert.True(t, out.Proceed)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, "a", out.Evidence[0].Source)
	assert.Equal(t, "A Kapha imbalance; sip tulsi-ginger tea.", out.Message)
	assert.Zero(t, h.web.calls)
	require.Len(t, h.model.prompts, 1)
	assert.Contains(t, h.model.prompts[0], "Tulsi and ginger decoction")
	assert.NotContains(t, h.model.prompts[0], "bitter gourd")

	require.Len(t, out.History, 2)
	assert.Equal(t, Message{Role: RoleAssistant, Content: out.Message}, out.History[1])
	assert.Len(t, history, 1, "caller's history must not be written through")
}

func TestWorkflowNoMatchesScenario(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeWeb{}, &fakeModel{completeErr: errBoom})

	out, err := h.workflow.Run(context.Background(), Turn{Intent: IntentHealth, Query: "asdkjhasd"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.web.calls)
	assert.False(t, out.Proceed)
	assert.Empty(t, out.Evidence)
	assert.Equal(t, MsgInternalError, out.Message)
	assert.Len(t, out.History, 1)
}

func TestWorkflowWebFallback(t *testing.T) {
	h := newHarness(t,
		&fakeIndex{hits: []ScoredText{{Text: "unrelated HIV text"}}},
		&fakeWeb{results: []WebResult{{Content: "Haldi doodh soothes a sore throat", URL: "https://w.example"}}},
		&fakeModel{relevant: []string{"never-matches"}, answer: "Gargle with turmeric water."},
	)

	out, err := h.workflow.Run(context.Background(), Turn{Query: "sore throat"})
	require.NoError(t, err)

	assert.True(t, out.Proceed)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, OriginWeb, out.Evidence[0].Origin)
	assert.Equal(t, "Gargle with turmeric water.", out.Message)
	assert.Equal(t, []string{"Ayurvedic treatment remedy sore throat"}, h.web.queries)
}

func TestWorkflowAllBackendsDown(t *testing.T) {
	h := newHarness(t,
		&fakeIndex{err: errBoom},
		&fakeWeb{errs: []error{errBoom, errBoom, errBoom}},
		&fakeModel{completeErr: errBoom},
	)

	out, err := h.workflow.Run(context.Background(), Turn{Query: "headache"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Message)
	assert.Equal(t, MsgInternalError, out.Message)
}

func TestWorkflowUnconfiguredModel(t *testing.T) {
	h := newHarness(t,
		&fakeIndex{hits: []ScoredText{{Text: "cold remedy"}}},
		&fakeWeb{results: []WebResult{{Content: "cold tea", URL: "u"}}},
		&fakeModel{unavailable: true},
	)

	out, err := h.workflow.Run(context.Background(), Turn{Query: "cold"})
	require.NoError(t, err)
	assert.Equal(t, MsgNotConfigured, out.Message)
	assert.Equal(t, 1, out.FailedGradings)
}

func TestWorkflowGreeting(t *testing.T) {
	h := newHarness(t, &fakeIndex{hits: []ScoredText{{Text: "x"}}}, &fakeWeb{}, &fakeModel{answer: "unused"})

	out, err := h.workflow.Run(context.Background(), Turn{Intent: IntentGreeting, Query: "hello"})
	require.NoError(t, err)

	assert.True(t, out.Proceed)
	assert.NotNil(t, out.Evidence)
	assert.Empty(t, out.Evidence)
	assert.Equal(t, MsgGreeting, out.Message)
	assert.Zero(t, h.embedder.calls)
	assert.Zero(t, h.index.calls)
	assert.Zero(t, h.model.completions)
}

func TestWorkflowOffTopic(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeWeb{}, &fakeModel{answer: "unused"})

	out, err := h.workflow.Run(context.Background(), Turn{Intent: IntentOffTopic, Query: "who won the match?"})
	require.NoError(t, err)

	assert.Equal(t, MsgOffTopic, out.Message)
	assert.False(t, out.Proceed)
	assert.Zero(t, h.index.calls)
	assert.Zero(t, h.model.completions)
	assert.Zero(t, h.model.judgeCalls)
	require.Len(t, out.History, 1)
	assert.Equal(t, RoleAssistant, out.History[0].Role)
}

func TestWorkflowUnknownIntent(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeWeb{}, &fakeModel{})
	for _, intent := range []Intent{"smalltalk", NodeGreeting, NodeRetrieve, NodeOffTopic} {
		out, err := h.workflow.Run(context.Background(), Turn{Intent: intent, Query: "q"})
		assert.ErrorContains(t, err, "no mapping", "intent %q", intent)
		assert.Empty(t, out.Message, "intent %q", intent)
	}
	assert.Zero(t, h.index.calls)
}

func TestProceedMatchesEvidenceAfterRecompute(t *testing.T) {
	w := &Workflow{
		sources: NewSources(&fakeEmbedder{}, &fakeIndex{}, &fakeWeb{results: []WebResult{{Content: "c"}}}, testSourcesConfig(), nil),
		grader:  NewGrader(&fakeModel{relevant: []string{"keep"}}, 1, nil),
		logger:  zap.NewNop(),
	}
	ctx := context.Background()

	for _, in := range [][]Passage{nil, passages("drop"), passages("keep", "drop", "keep")} {
		s, err := w.gradeNode(ctx, State{Query: "q", Evidence: in})
		require.NoError(t, err)
		assert.Equal(t, len(s.Evidence) > 0, s.Proceed)
		assert.LessOrEqual(t, len(s.Evidence), len(in))
	}

	s, err := w.webSearchNode(ctx, State{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, len(s.Evidence) > 0, s.Proceed)
}

func TestStageReplacesEvidence(t *testing.T) {
	w := &Workflow{grader: NewGrader(&fakeModel{relevant: []string{"keep"}}, 1, nil)}
	in := passages("keep", "drop")
	before := append([]Passage(nil), in...)

	s, err := w.gradeNode(context.Background(), State{Query: "q", Evidence: in})
	require.NoError(t, err)
	s.Evidence[0].Text = "mutated"
	assert.Equal(t, before, in)
}

func TestParseIntent(t *testing.T) {
	tests := map[string]Intent{
		"":          IntentHealth,
		"Health":    IntentHealth,
		"greeting":  IntentGreeting,
		"off-topic": IntentOffTopic,
		"off_topic": IntentOffTopic,
	}
	for in, want := range tests {
		got, ok := ParseIntent(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseIntent("weather")
	assert.False(t, ok)
}
