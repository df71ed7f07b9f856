package models

import (
	"context"
	"errors"
	"os"

	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	Client   *openai.Client
	Model    string
	Sampling Sampling
}

func NewOpenAILLM(apiKey, model string) *OpenAILLM {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	client := openai.NewClient(apiKey)
	return &OpenAILLM{Client: client, Model: model, Sampling: DefaultSampling}
}

// Chat ignores Sampling.TopK; chat completions have no equivalent knob.
func (o *OpenAILLM) Chat(ctx context.Context, history []Turn, prompt string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		text := turnText(t)
		if text == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if t.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    msgs,
		Temperature: o.Sampling.Temperature,
		TopP:        o.Sampling.TopP,
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.HTTPStatusCode) {
		return transient(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retryableStatus(reqErr.HTTPStatusCode) {
		return transient(err)
	}
	return err
}

var _ Agent = (*OpenAILLM)(nil)
