package generation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/models"
)

const (
	DefaultPriming = `You solve online quiz forms. Each message lists numbered questions, optionally followed by
"Answers:" (pick one), "Answers (multiple choice):" (pick every correct option) and "Description:"
(extra context or the expected format of a free-text answer).
Reply with one line per question: its number followed by the correct answer. For free-text questions
write a short answer that fits the description. Do not repeat the questions.`
	DefaultAck = "Okay, I understand."

	referenceIntro = "Reference material for the quiz questions that follow. Prefer it over general knowledge."
	referenceAck   = "Okay, I will use the reference material."
)

// Seed is the fixed priming exchange sent before every prompt.
type Seed struct {
	Priming string
	Ack     string
}

func (s Seed) withDefaults() Seed {
	if strings.TrimSpace(s.Priming) == "" {
		s.Priming = DefaultPriming
	}
	if strings.TrimSpace(s.Ack) == "" {
		s.Ack = DefaultAck
	}
	return s
}

// Conversation is the history every request is seeded with. It is built once
// and never mutated, so one value is shared by all concurrent requests.
type Conversation struct {
	reference []models.Turn
	seed      []models.Turn
}

// NewConversation builds the seed turns and, when referencePath is set,
// attaches the reference material ahead of them. Attaching is best effort: on
// failure the error (wrapping ErrAttachment) is logged and returned alongside a
// seed-only Conversation, which is always usable.
func NewConversation(ctx context.Context, seed Seed, referencePath string, attacher models.Attacher, log *logger.Logger) (*Conversation, error) {
	if log == nil {
		log = logger.Nop()
	}
	seed = seed.withDefaults()
	c := &Conversation{
		seed: []models.Turn{
			{Role: models.RoleUser, Text: seed.Priming},
			{Role: models.RoleModel, Text: seed.Ack},
		},
	}
	if strings.TrimSpace(referencePath) == "" {
		return c, nil
	}
	if attacher == nil {
		attacher = models.LocalAttacher{}
	}

	file, err := attacher.Attach(ctx, referencePath)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrAttachment, referencePath, err)
		log.Warn("reference material not attached, using seed only",
			"kind", "attachment_error", "path", referencePath, "error", err)
		return c, err
	}
	c.reference = []models.Turn{
		{Role: models.RoleUser, Text: referenceIntro, File: file},
		{Role: models.RoleModel, Text: referenceAck},
	}
	log.Info("reference material attached", "path", referencePath, "name", file.Name, "mime", file.MIME)
	return c, nil
}

// HasReference reports whether reference material was attached.
func (c *Conversation) HasReference() bool { return len(c.reference) > 0 }

// Turns returns a fresh copy of the full history: reference exchange, seed,
// then extra.
func (c *Conversation) Turns(extra ...models.Turn) []models.Turn {
	if c == nil {
		return slices.Clone(extra)
	}
	out := make([]models.Turn, 0, len(c.reference)+len(c.seed)+len(extra))
	out = append(out, c.reference...)
	out = append(out, c.seed...)
	return append(out, extra...)
}
