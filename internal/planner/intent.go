// Package planner classifies incoming queries and resolves them into a
// domain.QueryPlan, dispatching across the three retrieval tiers: direct
// lexical search for single-word queries, the fingerprint cache, and the
// LLM interpreter as a last resort.
package planner

import (
	"strings"

	"jotx/internal/domain"
)

var knowledgePrefixes = []string{
	"how to", "how do i", "command to", "command for", "what is the command",
}

var retrievalMarkers = []string{
	"yesterday", "last week", "last month", "today", "ago",
	"i used", "i ran", "i did",
}

// ClassifyIntent reports whether query asks for general command help
// (Knowledge) or wants to search captured history (Retrieval). Retrieval
// is the default: an unrecognized query is assumed to be about the
// user's own history, the tool's main use case.
func ClassifyIntent(query string) domain.Intent {
	q := strings.ToLower(query)

	for _, p := range knowledgePrefixes {
		if strings.HasPrefix(q, p) {
			return domain.IntentKnowledge
		}
	}
	for _, m := range retrievalMarkers {
		if strings.Contains(q, m) {
			return domain.IntentRetrieval
		}
	}
	return domain.IntentRetrieval
}
