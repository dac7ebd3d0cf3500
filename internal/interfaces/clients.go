package interfaces

import "context"

// CommentarySink is the optional LLM commentary interface. Analyzers call
// Query only when Available returns true and never depend on its output
// for correctness; a failed call degrades to a report without commentary.
type CommentarySink interface {
	Available() bool
	Query(ctx context.Context, prompt, systemRole string) (string, error)
}
