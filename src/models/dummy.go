package models

import (
	"context"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Chat answers with the last non-empty line of the prompt.
func (d *DummyLLM) Chat(_ context.Context, _ []Turn, prompt string) (string, error) {
	last := "<empty prompt>"
	for line := range strings.Lines(prompt) {
		if s := strings.TrimSpace(line); s != "" {
			last = s
		}
	}
	return d.Prefix + " " + last, nil
}

var _ Agent = (*DummyLLM)(nil)
