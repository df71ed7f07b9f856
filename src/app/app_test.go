package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/quizbot/src/config"
	"github.com/Protocol-Lattice/quizbot/src/fetch"
	"github.com/Protocol-Lattice/quizbot/src/models"
	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

const page = `<div class="Qr7Oae"><span class="M7eMe">Capital of Italy?</span></div>`

func dummyConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	if env == nil {
		env = map[string]string{}
	}
	env["LLM_PROVIDER"] = "dummy"
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	return cfg
}

func staticFetcher() fetch.Fetcher {
	return fetch.FetcherFunc(func(context.Context, string) ([]byte, error) { return []byte(page), nil })
}

func TestNewBuildsWorkingPipeline(t *testing.T) {
	a, err := New(context.Background(), dummyConfig(t, map[string]string{"CACHE_SIZE": "4"}), nil, WithFetcher(staticFetcher()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer a.Close()

	var replies []string
	err = a.Pipeline.Handle(context.Background(), "https://forms.example", pipeline.ReplierFunc(func(_ context.Context, s string) error {
		replies = append(replies, s)
		return nil
	}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	last := replies[len(replies)-1]
	if !strings.HasPrefix(last, pipeline.SuccessPrefix) || !strings.Contains(last, "Capital of Italy?") {
		t.Fatalf("unexpected relay: %q", last)
	}
}

func TestNewSurvivesMissingReference(t *testing.T) {
	cfg := dummyConfig(t, map[string]string{"REFERENCE_PATH": "/definitely/missing.txt"})
	a, err := New(context.Background(), cfg, nil, WithFetcher(staticFetcher()))
	if err != nil {
		t.Fatalf("missing reference must not abort startup: %v", err)
	}
	a.Close()
}

func TestNewPropagatesProviderError(t *testing.T) {
	boom := errors.New("no credentials")
	_, err := New(context.Background(), dummyConfig(t, nil), nil, WithAgentFactory(func(context.Context, models.Settings) (models.Agent, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := dummyConfig(t, map[string]string{"REDIS_URL": "bogus://"})
	if _, err := New(context.Background(), cfg, nil, WithFetcher(staticFetcher())); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
