// Command solve runs the form pipeline once per URL and prints the answers.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Protocol-Lattice/quizbot/src/app"
	"github.com/Protocol-Lattice/quizbot/src/concurrent"
	"github.com/Protocol-Lattice/quizbot/src/config"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(v string) error {
	*u = append(*u, v)
	return nil
}

func main() {
	var urls urlList
	flag.Var(&urls, "url", "Form URL to solve (repeatable; positional arguments are also accepted)")
	parallel := flag.Int("parallel", 4, "Maximum number of forms solved at once")
	flag.Parse()
	urls = append(urls, flag.Args()...)
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: solve -url <form url> [-url ...]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(config.ModeSolve); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode, cfg.LogRedact)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to build pipeline", "error", err)
	}
	defer a.Close()

	failed := report(os.Stdout, os.Stderr, solve(ctx, a.Pipeline, urls, *parallel))
	if failed {
		a.Close()
		lg.Sync()
		os.Exit(1)
	}
}

type handler interface {
	Handle(ctx context.Context, rawURL string, reply pipeline.Replier) error
}

type outcome struct {
	url  string
	text string
	err  error
}

// solve runs every URL and keeps the final reply of each, in input order.
func solve(ctx context.Context, h handler, urls []string, parallel int) []outcome {
	out, _ := concurrent.ParallelMap(ctx, urls, func(u string) (outcome, error) {
		var last string
		err := h.Handle(ctx, u, pipeline.ReplierFunc(func(_ context.Context, text string) error {
			if text != pipeline.MsgWaiting {
				last = text
			}
			return nil
		}))
		return outcome{url: u, text: last, err: err}, nil
	}, parallel)
	for i := range out {
		if out[i].url == "" {
			out[i] = outcome{url: urls[i], err: ctx.Err()}
		}
	}
	return out
}

func report(stdout, stderr io.Writer, results []outcome) (failed bool) {
	multi := len(results) > 1
	for _, r := range results {
		if r.err != nil {
			failed = true
			msg := r.text
			if msg == "" {
				msg = r.err.Error()
			}
			if multi {
				fmt.Fprintf(stderr, "%s: %s\n", r.url, msg)
			} else {
				fmt.Fprintln(stderr, msg)
			}
			continue
		}
		if multi {
			fmt.Fprintf(stdout, "== %s\n", r.url)
		}
		fmt.Fprintln(stdout, strings.TrimPrefix(r.text, pipeline.SuccessPrefix))
	}
	return failed
}
