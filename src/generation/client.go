// Package generation sends formatted quiz prompts to a language model backend
// with a fixed seed history and a bounded retry policy.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Protocol-Lattice/quizbot/src/concurrent"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/models"
)

// Policy bounds the retry loop. Attempts counts the first try.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy makes three attempts five seconds apart.
var DefaultPolicy = Policy{Attempts: 3, Delay: 5 * time.Second}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Client struct {
	agent  models.Agent
	conv   *Conversation
	pool   *concurrent.WorkerPool
	policy Policy
	sleep  Sleeper
	log    *logger.Logger
}

type Option func(*Client)

func WithPolicy(p Policy) Option {
	return func(c *Client) {
		if p.Attempts > 0 {
			c.policy.Attempts = p.Attempts
		}
		if p.Delay >= 0 {
			c.policy.Delay = p.Delay
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithPool runs backend calls on wp instead of a private pool.
func WithPool(wp *concurrent.WorkerPool) Option {
	return func(c *Client) {
		if wp != nil {
			c.pool = wp
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(agent models.Agent, conv *Conversation, opts ...Option) (*Client, error) {
	if agent == nil {
		return nil, errors.New("generation: agent is required")
	}
	c := &Client{
		agent:  agent,
		conv:   conv,
		policy: DefaultPolicy,
		sleep:  SleepContext,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = concurrent.NewWorkerPool(0)
	}
	return c, nil
}

// Generate sends prompt after the conversation history (plus extra turns) in
// a fresh session. Transient failures are retried per the policy; anything
// else is returned at once. Failures are *BackendError.
func (c *Client) Generate(ctx context.Context, prompt string, extra ...models.Turn) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	history := c.conv.Turns(extra...)

	for attempt := 1; ; attempt++ {
		res := c.attempt(ctx, history, prompt)
		switch res.Kind {
		case KindSuccess:
			return res.Text, nil
		case KindFatal:
			c.log.Error("backend request failed",
				"kind", "backend_error", "attempt", attempt, "error", res.Err)
			return "", &BackendError{Attempts: attempt, Err: res.Err}
		}

		if attempt >= c.policy.Attempts {
			c.log.Error("backend retries exhausted",
				"kind", "backend_error", "attempt", attempt, "max_attempts", c.policy.Attempts, "error", res.Err)
			return "", &BackendError{Attempts: attempt, Exhausted: true, Err: res.Err}
		}
		c.log.Warn("transient backend error, retrying",
			"kind", "transient_backend_error", "attempt", attempt, "max_attempts", c.policy.Attempts,
			"retry_in", c.policy.Delay, "error", res.Err)
		if err := c.sleep(ctx, c.policy.Delay); err != nil {
			return "", &BackendError{Attempts: attempt, Err: err}
		}
	}
}

// attempt runs one backend call on the worker pool so the caller only waits
// on a channel.
func (c *Client) attempt(ctx context.Context, history []models.Turn, prompt string) Result {
	text, err := concurrent.Submit(ctx, c.pool, func() (string, error) {
		return c.agent.Chat(ctx, history, prompt)
	})
	return classify(text, err)
}
