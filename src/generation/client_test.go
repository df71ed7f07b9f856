package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Protocol-Lattice/quizbot/src/models"
)

type scriptedAgent struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	history [][]models.Turn
	prompts []string
}

func (a *scriptedAgent) Chat(_ context.Context, history []models.Turn, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.calls
	a.calls++
	a.history = append(a.history, history)
	a.prompts = append(a.prompts, prompt)
	var err error
	if i < len(a.errs) {
		err = a.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(a.replies) {
		return a.replies[i], nil
	}
	return "", nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(t *testing.T, agent models.Agent, sleeper *recordingSleeper) *Client {
	t.Helper()
	conv, err := NewConversation(context.Background(), Seed{}, "", nil, nil)
	if err != nil {
		t.Fatalf("NewConversation returned error: %v", err)
	}
	c, err := NewClient(agent, conv, WithSleeper(sleeper.Sleep))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func transientErr(n int) error {
	return fmt.Errorf("%w: overloaded %d", models.ErrTransient, n)
}

func TestGenerateStripsAsterisks(t *testing.T) {
	agent := &scriptedAgent{replies: []string{"**bold** answer"}}
	c := newTestClient(t, agent, &recordingSleeper{})
	got, err := c.Generate(context.Background(), "1. Q\n")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "bold answer" {
		t.Fatalf("Generate() = %q, want %q", got, "bold answer")
	}
	if agent.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", agent.calls)
	}
}

func TestGenerateRetriesTransientThreeTimes(t *testing.T) {
	errs := []error{transientErr(1), transientErr(2), transientErr(3)}
	agent := &scriptedAgent{errs: errs}
	sleeper := &recordingSleeper{}
	c := newTestClient(t, agent, sleeper)

	_, err := c.Generate(context.Background(), "1. Q\n")
	if agent.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", agent.calls)
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != 5*time.Second || sleeper.delays[1] != 5*time.Second {
		t.Fatalf("unexpected delays: %v", sleeper.delays)
	}
	if !errors.Is(err, errs[2]) {
		t.Fatalf("expected final attempt's error, got %v", err)
	}
	if errors.Is(err, errs[0]) {
		t.Fatalf("surfaced error should not be the first attempt's")
	}
	var be *BackendError
	if !errors.As(err, &be) || !be.Exhausted || be.Attempts != 3 {
		t.Fatalf("expected exhausted BackendError after 3 attempts, got %#v", err)
	}
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestGenerateRecoversAfterTransient(t *testing.T) {
	agent := &scriptedAgent{errs: []error{transientErr(1), nil}, replies: []string{"", "4*"}}
	sleeper := &recordingSleeper{}
	c := newTestClient(t, agent, sleeper)

	got, err := c.Generate(context.Background(), "1. Q\n")
	if err != nil || got != "4" {
		t.Fatalf("Generate() = %q, %v", got, err)
	}
	if agent.calls != 2 || len(sleeper.delays) != 1 {
		t.Fatalf("calls=%d delays=%v", agent.calls, sleeper.delays)
	}
}

func TestGenerateDoesNotRetryFatal(t *testing.T) {
	fatal := errors.New("invalid api key")
	agent := &scriptedAgent{errs: []error{fatal, nil}, replies: []string{"", "unused"}}
	sleeper := &recordingSleeper{}
	c := newTestClient(t, agent, sleeper)

	_, err := c.Generate(context.Background(), "1. Q\n")
	if agent.calls != 1 {
		t.Fatalf("expected one attempt, got %d", agent.calls)
	}
	if len(sleeper.delays) != 0 {
		t.Fatalf("expected no backoff, got %v", sleeper.delays)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Exhausted || !errors.Is(err, fatal) {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	agent := &scriptedAgent{}
	c := newTestClient(t, agent, &recordingSleeper{})
	if _, err := c.Generate(context.Background(), " \n\t"); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if agent.calls != 0 {
		t.Fatalf("backend must not be called for an empty prompt")
	}
}

func TestGenerateSendsSeedHistoryAndExtraTurns(t *testing.T) {
	agent := &scriptedAgent{replies: []string{"ok"}}
	c := newTestClient(t, agent, &recordingSleeper{})
	extra := models.Turn{Role: models.RoleUser, Text: "earlier"}
	if _, err := c.Generate(context.Background(), "1. Q\n", extra); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	h := agent.history[0]
	if len(h) != 3 {
		t.Fatalf("expected seed pair plus extra turn, got %d turns", len(h))
	}
	if h[0].Text != DefaultPriming || h[1].Role != models.RoleModel || h[1].Text != DefaultAck || h[2].Text != "earlier" {
		t.Fatalf("unexpected history: %+v", h)
	}
	if agent.prompts[0] != "1. Q\n" {
		t.Fatalf("unexpected prompt: %q", agent.prompts[0])
	}
}

func TestGenerateStopsWhenSleepCancelled(t *testing.T) {
	agent := &scriptedAgent{errs: []error{transientErr(1), transientErr(2)}}
	conv, _ := NewConversation(context.Background(), Seed{}, "", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := NewClient(agent, conv, WithSleeper(SleepContext), WithPolicy(Policy{Attempts: 3, Delay: time.Hour}))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Generate(ctx, "1. Q\n")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if agent.calls > 1 {
		t.Fatalf("expected at most one attempt, got %d", agent.calls)
	}
}

func TestWithPolicyOverridesAttempts(t *testing.T) {
	agent := &scriptedAgent{errs: []error{transientErr(1), transientErr(2)}}
	sleeper := &recordingSleeper{}
	conv, _ := NewConversation(context.Background(), Seed{}, "", nil, nil)
	c, _ := NewClient(agent, conv, WithSleeper(sleeper.Sleep), WithPolicy(Policy{Attempts: 2, Delay: time.Millisecond}))
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Fatalf("expected error")
	}
	if agent.calls != 2 || len(sleeper.delays) != 1 || sleeper.delays[0] != time.Millisecond {
		t.Fatalf("calls=%d delays=%v", agent.calls, sleeper.delays)
	}
}

func TestNewClientRequiresAgent(t *testing.T) {
	if _, err := NewClient(nil, nil); err == nil {
		t.Fatalf("expected error for nil agent")
	}
}

func TestClassify(t *testing.T) {
	if r := classify("a*b", nil); r.Kind != KindSuccess || r.Text != "ab" {
		t.Fatalf("unexpected success result: %+v", r)
	}
	if r := classify("", transientErr(1)); r.Kind != KindRetryable {
		t.Fatalf("expected retryable, got %v", r.Kind)
	}
	if r := classify("", errors.New("x")); r.Kind != KindFatal {
		t.Fatalf("expected fatal, got %v", r.Kind)
	}
}
