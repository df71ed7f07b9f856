// Package forms pulls questions out of rendered quiz markup and turns them
// into a plain-text prompt.
package forms

import "errors"

var (
	// ErrNoQuestions reports a document with no recognizable quiz structure.
	ErrNoQuestions = errors.New("forms: no recognizable question structure")
	// ErrEmptyPrompt reports questions that produced nothing displayable.
	ErrEmptyPrompt = errors.New("forms: no displayable questions or answers")
)

// Record is one extracted question. Ordinal is its 1-based position among the
// questions kept by a single extraction pass.
type Record struct {
	Ordinal int
	Text    string
	// Options holds single choice or short answer options.
	Options []string
	// Choices holds multiple choice (checkbox / list) options. It is never
	// merged into Options because the prompt labels the two differently.
	Choices     []string
	Description string
}

func (r Record) empty() bool {
	return r.Text == "" && len(r.Options) == 0 && len(r.Choices) == 0 && r.Description == ""
}
