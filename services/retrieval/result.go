package retrieval

import (
	"strings"

	"github.com/upb/nse-market-bot/models"
)

// Caller facing texts rendered by Result.Context
const (
	NoResultsMessage = "No relevant information found."
	ErrorMessage     = "Error retrieving context."
	ContextSeparator = "\n\n"
)

// Outcome tags a search result
type Outcome string

const (
	OutcomeFound Outcome = "found"
	OutcomeEmpty Outcome = "empty"
	OutcomeError Outcome = "error"
)

// Result is the tagged outcome of a search. Err is set only for OutcomeError
// and carries a services.DomainError of type embedding or storage.
type Result struct {
	Outcome  Outcome
	Passages []*models.ScoredPassage
	Err      error
}

// Contents returns the passage texts in ranked order
func (r Result) Contents() []string {
	out := make([]string, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.Content
	}
	return out
}

// Context renders the result for prompt injection: the ranked passages
// separated by a blank line, or a fixed message when there is nothing to show.
func (r Result) Context() string {
	switch r.Outcome {
	case OutcomeFound:
		return strings.Join(r.Contents(), ContextSeparator)
	case OutcomeError:
		return ErrorMessage
	default:
		return NoResultsMessage
	}
}
