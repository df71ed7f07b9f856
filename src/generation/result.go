package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/quizbot/src/models"
)

var (
	// ErrBackend matches every BackendError.
	ErrBackend = errors.New("generation: backend error")
	// ErrAttachment reports reference material that could not be attached.
	ErrAttachment = errors.New("generation: attachment unavailable")
	// ErrEmptyPrompt rejects a blank prompt before any request is made.
	ErrEmptyPrompt = errors.New("generation: empty prompt")
)

// Kind classifies the outcome of one attempt.
type Kind int

const (
	KindSuccess Kind = iota
	KindRetryable
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one attempt against the backend.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// classify turns a backend reply into a Result. Successful text has literal
// '*' removed since the chat renderer treats it as markup.
func classify(text string, err error) Result {
	switch {
	case err == nil:
		return Result{Kind: KindSuccess, Text: strings.ReplaceAll(text, "*", "")}
	case models.IsTransient(err):
		return Result{Kind: KindRetryable, Err: err}
	default:
		return Result{Kind: KindFatal, Err: err}
	}
}

// BackendError is returned when generation gives up: either the error was not
// retryable or every attempt failed transiently. Err is the last attempt's error.
type BackendError struct {
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *BackendError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("generation: giving up after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("generation: attempt %d failed: %v", e.Attempts, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }
