package graph

import "context"

// offTopicNode refuses the turn without touching evidence or the model.
func offTopicNode(_ context.Context, s State) (State, error) {
	s.Proceed = false
	return s.withReply(MsgOffTopic), nil
}

// greetingNode answers without grounding: proceed is set and evidence is
// emptied, and retrieval is never attempted.
func greetingNode(_ context.Context, s State) (State, error) {
	s.Proceed = true
	s = s.withEvidence(nil)
	return s.withReply(MsgGreeting), nil
}
