// Package pipeline turns a form link into a relayed answer:
// fetch, extract, format, notify, generate, relay. Every failure ends the
// request with one fixed message to the requester.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Protocol-Lattice/quizbot/src/cache"
	"github.com/Protocol-Lattice/quizbot/src/fetch"
	"github.com/Protocol-Lattice/quizbot/src/forms"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/models"
)

// Stage names a step of the request state machine.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageFormat   Stage = "format"
	StageGenerate Stage = "generate"
	StageRelay    Stage = "relay"
)

// StageError records the step a request stopped at.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Replier delivers a text message back to whoever sent the link.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string) error

func (f ReplierFunc) Reply(ctx context.Context, text string) error { return f(ctx, text) }

// Generator produces the answer text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, extra ...models.Turn) (string, error)
}

type Pipeline struct {
	fetcher fetch.Fetcher
	gen     Generator
	cache   cache.Store
	log     *logger.Logger
}

type Option func(*Pipeline)

// WithCache answers repeated prompts from store.
func WithCache(store cache.Store) Option {
	return func(p *Pipeline) { p.cache = store }
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func New(fetcher fetch.Fetcher, gen Generator, opts ...Option) (*Pipeline, error) {
	if fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	if gen == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	p := &Pipeline{fetcher: fetcher, gen: gen, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Handle runs one request for rawURL. It returns nil once the answer has been
// relayed, otherwise a *StageError after the matching message was sent.
func (p *Pipeline) Handle(ctx context.Context, rawURL string, reply Replier) error {
	log := p.log.With("url", rawURL)

	body, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		log.Error("fetching form failed", "kind", "fetch_error", "error", err)
		return p.fail(ctx, reply, StageFetch, err, MsgFetchFailed)
	}

	records, err := forms.ExtractHTML(bytes.NewReader(body))
	if err == nil && len(records) == 0 {
		err = forms.ErrNoQuestions
	}
	if err != nil {
		log.Warn("no question structure found", "kind", "extraction_empty", "bytes", len(body), "error", err)
		return p.fail(ctx, reply, StageExtract, err, MsgNoQuestions)
	}

	prompt, err := forms.Prompt(records)
	if err != nil {
		log.Warn("questions produced no prompt", "kind", "format_empty", "questions", len(records), "error", err)
		return p.fail(ctx, reply, StageFormat, err, MsgEmptyPrompt)
	}
	log.Info("questions extracted", "questions", len(records), "prompt_bytes", len(prompt))

	key := cache.HashKey(prompt)
	if text, ok := p.cached(ctx, log, key); ok {
		log.Info("answer served from cache")
		return p.relay(ctx, reply, text)
	}

	if err := reply.Reply(ctx, MsgWaiting); err != nil {
		log.Warn("sending wait notice failed", "error", err)
	}

	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		log.Error("generation failed", "kind", "backend_error", "error", err)
		return p.fail(ctx, reply, StageGenerate, err, MsgGenerationFailed)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, text); err != nil {
			log.Warn("caching answer failed", "error", err)
		}
	}
	return p.relay(ctx, reply, text)
}

func (p *Pipeline) cached(ctx context.Context, log *logger.Logger, key string) (string, bool) {
	if p.cache == nil {
		return "", false
	}
	text, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
		return "", false
	}
	return text, ok
}

func (p *Pipeline) relay(ctx context.Context, reply Replier, text string) error {
	if err := reply.Reply(ctx, SuccessPrefix+text); err != nil {
		p.log.Error("relaying answer failed", "error", err)
		return &StageError{Stage: StageRelay, Err: err}
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, reply Replier, stage Stage, cause error, msg string) error {
	if err := reply.Reply(ctx, msg); err != nil {
		p.log.Error("sending failure notice failed", "stage", string(stage), "error", err)
		cause = errors.Join(cause, err)
	}
	return &StageError{Stage: stage, Err: cause}
}
