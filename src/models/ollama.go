package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client   *ollama.Client
	Model    string
	Sampling Sampling
}

func NewOllamaLLM(host, model string) (*OllamaLLM, error) {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}

	c := ollama.NewClient(u, httpClient)
	return &OllamaLLM{Client: c, Model: model, Sampling: DefaultSampling}, nil
}

func (o *OllamaLLM) Chat(ctx context.Context, history []Turn, prompt string) (string, error) {
	msgs := make([]ollama.Message, 0, len(history)+1)
	for _, t := range history {
		text := turnText(t)
		if text == "" {
			continue
		}
		role := "user"
		if t.Role == RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, ollama.Message{Role: role, Content: text})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: prompt})

	stream := false
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": o.Sampling.Temperature,
			"top_p":       o.Sampling.TopP,
			"top_k":       o.Sampling.TopK,
		},
	}

	var text strings.Builder
	if err := o.Client.Chat(ctx, req, func(cr ollama.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		return nil
	}); err != nil {
		return "", classifyOllama(err)
	}
	return text.String(), nil
}

func classifyOllama(err error) error {
	var se ollama.StatusError
	if errors.As(err, &se) && retryableStatus(se.StatusCode) {
		return transient(err)
	}
	return err
}

var _ Agent = (*OllamaLLM)(nil)
