package graph

import "strings"

// Intent is the upstream classification of a turn. The workflow does not
// compute it; callers pass it in with the enhanced query.
type Intent string

const (
	IntentHealth   Intent = "health"
	IntentGreeting Intent = "greeting"
	IntentOffTopic Intent = "off_topic"
)

// ParseIntent maps free-form input to an Intent. Empty input is a health query.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case "", IntentHealth:
		return IntentHealth, true
	case IntentGreeting:
		return IntentGreeting, true
	case IntentOffTopic, "offtopic", "off-topic":
		return IntentOffTopic, true
	}
	return "", false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Origin tags where a passage came from.
type Origin string

const (
	OriginVector Origin = "vector"
	OriginWeb    Origin = "web"
)

// Passage is a unit of retrieved evidence. Only Sources creates them.
type Passage struct {
	Text   string  `json:"text"`
	Origin Origin  `json:"origin"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// State is threaded through every node of one turn. Nodes take a State and
// return a new one; Evidence and History are replaced, never written through.
type State struct {
	Intent   Intent
	Query    string
	History  []Message
	Evidence []Passage
	Proceed  bool
	Message  string

	// FailedGradings counts passages dropped because their grading call failed.
	FailedGradings int
}

// withEvidence returns a copy of s holding its own copy of evidence.
func (s State) withEvidence(evidence []Passage) State {
	out := make([]Passage, len(evidence))
	copy(out, evidence)
	s.Evidence = out
	return s
}

// withReply appends an assistant message without touching the caller's slice.
func (s State) withReply(content string) State {
	history := make([]Message, len(s.History), len(s.History)+1)
	copy(history, s.History)
	s.History = append(history, Message{Role: RoleAssistant, Content: content})
	s.Message = content
	return s
}
