package domain

import "context"

// LLMClient is the language-model collaborator: answers knowledge
// queries directly and interprets retrieval queries into a QueryPlan.
// The CLI/installer/model-bootstrapping machinery around it is out of
// scope; only this port is modeled.
type LLMClient interface {
	// Answer responds to a knowledge-intent query in 1-2 sentences.
	Answer(ctx context.Context, query string) (string, error)
	// Interpret turns a retrieval-intent query into a structured plan,
	// given the current working directory and a set of prior-entry
	// exemplars to ground the model's keyword/filter choices.
	Interpret(ctx context.Context, query, directory string, samples []Entry) (QueryPlan, error)
	ModelName() string
}
