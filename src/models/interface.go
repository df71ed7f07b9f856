package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransient marks a backend failure that is expected to clear on retry,
// such as a temporary server overload.
var ErrTransient = errors.New("models: transient backend error")

// Role names the speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// File is a lightweight attachment. URI is set when the provider stores the
// file remotely; otherwise Data carries the content and text files are inlined.
type File struct {
	Name string
	MIME string
	URI  string
	Data []byte
}

// Turn is one entry of the history a chat session is seeded with.
type Turn struct {
	Role Role
	Text string
	File *File
}

// Sampling is the generation configuration applied to every request.
type Sampling struct {
	Temperature float32
	TopP        float32
	TopK        int32
}

// DefaultSampling is the fixed configuration used by all providers.
var DefaultSampling = Sampling{Temperature: 0.6, TopP: 0.9, TopK: 30}

// Agent sends prompt as the next user turn of a fresh session seeded with
// history and returns the generated text. Retryable failures wrap ErrTransient.
type Agent interface {
	Chat(ctx context.Context, history []Turn, prompt string) (string, error)
}

// Attacher turns a local file into an attachment a provider can reference.
type Attacher interface {
	Attach(ctx context.Context, path string) (*File, error)
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
