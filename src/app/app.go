// Package app assembles the request pipeline from a Config. Every binary
// builds exactly one App at startup and shares it across requests.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Protocol-Lattice/quizbot/src/cache"
	"github.com/Protocol-Lattice/quizbot/src/concurrent"
	"github.com/Protocol-Lattice/quizbot/src/config"
	"github.com/Protocol-Lattice/quizbot/src/fetch"
	"github.com/Protocol-Lattice/quizbot/src/generation"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/models"
	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

type App struct {
	Config   config.Config
	Log      *logger.Logger
	Pipeline *pipeline.Pipeline

	closers []io.Closer
}

// AgentFactory builds the backend; tests substitute a fake.
type AgentFactory func(ctx context.Context, s models.Settings) (models.Agent, error)

type Option func(*options)

type options struct {
	newAgent AgentFactory
	fetcher  fetch.Fetcher
}

func WithAgentFactory(f AgentFactory) Option {
	return func(o *options) { o.newAgent = f }
}

func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// New wires the pipeline. A missing reference file only degrades the
// conversation; a broken backend or cache configuration is an error.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	o := options{newAgent: models.NewLLMProvider}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}

	agent, err := o.newAgent(ctx, models.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Host:     cfg.LLM.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	if c, ok := agent.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	conv, _ := generation.NewConversation(ctx, generation.Seed{
		Priming: cfg.Prompt.Priming,
		Ack:     cfg.Prompt.Ack,
	}, cfg.Prompt.ReferencePath, models.AttacherFor(agent), log)

	client, err := generation.NewClient(agent, conv,
		generation.WithPolicy(generation.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}),
		generation.WithPool(concurrent.NewWorkerPool(cfg.Workers)),
		generation.WithLogger(log),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = fetch.NewHTTPFetcher(cfg.Fetch.Timeout)
	}

	pipeOpts := []pipeline.Option{pipeline.WithLogger(log)}
	store, err := a.cacheStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store != nil {
		pipeOpts = append(pipeOpts, pipeline.WithCache(store))
	}

	a.Pipeline, err = pipeline.New(fetcher, client, pipeOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("pipeline ready",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"reference", conv.HasReference(),
		"workers", cfg.Workers,
		"cache", cfg.CacheEnabled(),
	)
	return a, nil
}

func (a *App) cacheStore(ctx context.Context) (cache.Store, error) {
	switch {
	case a.Config.Cache.RedisURL != "":
		rs, err := cache.NewRedisStore(ctx, a.Config.Cache.RedisURL, a.Config.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		a.closers = append(a.closers, rs)
		return rs, nil
	case a.Config.Cache.Size > 0:
		return cache.NewMemoryStore(a.Config.Cache.Size, a.Config.Cache.TTL), nil
	default:
		return nil, nil
	}
}

// Close releases backend and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
