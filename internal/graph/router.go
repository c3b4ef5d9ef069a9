package graph

// Routing decisions. These are pure functions of the state; they read the
// proceed flag set by the grade and websearch nodes and never recompute it.

// routeEntry sends a turn down the path matching its intent. Unknown intents
// get a decision no route maps, so the run fails instead of jumping to a node
// that happens to share the intent's name.
func routeEntry(s State) string {
	switch s.Intent {
	case IntentGreeting:
		return NodeGreeting
	case IntentOffTopic:
		return NodeOffTopic
	case IntentHealth, "":
		return NodeRetrieve
	}
	return "unknown:" + string(s.Intent)
}

// routeAfterGrade accepts local evidence or escalates to web search.
func routeAfterGrade(s State) string {
	if s.Proceed {
		return NodeSynthesize
	}
	return NodeWebSearch
}
