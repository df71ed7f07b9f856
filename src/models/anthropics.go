package models

import (
	"context"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// statusOverloaded is Anthropic's "overloaded" response code.
const statusOverloaded = 529

// AnthropicLLM implements Agent using Anthropic's Messages API.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
	Sampling  Sampling
}

// NewAnthropicLLM constructs a client, falling back to ANTHROPIC_API_KEY.
func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(apiKey),
	)
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model, // e.g. "claude-3-5-sonnet-latest"
		MaxTokens: 4096,
		Sampling:  DefaultSampling,
	}
}

func (a *AnthropicLLM) Chat(ctx context.Context, history []Turn, prompt string) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		text := turnText(t)
		if text == "" {
			continue
		}
		if t.Role == RoleModel {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.Model),
		MaxTokens:   int64(a.MaxTokens),
		Messages:    msgs,
		Temperature: anthropic.Float(float64(a.Sampling.Temperature)),
		TopP:        anthropic.Float(float64(a.Sampling.TopP)),
		TopK:        anthropic.Int(int64(a.Sampling.TopK)),
	})
	if err != nil {
		return "", classifyAnthropic(err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && (retryableStatus(apiErr.StatusCode) || apiErr.StatusCode == statusOverloaded) {
		return transient(err)
	}
	return err
}

var _ Agent = (*AnthropicLLM)(nil)
