package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client   *genai.Client
	Model    string
	Sampling Sampling
}

func NewGeminiLLM(ctx context.Context, apiKey, model string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, Sampling: DefaultSampling}, nil
}

// blockNone disables every default content filter category.
func blockNone() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockNone})
	}
	return out
}

func (g *GeminiLLM) generativeModel() *genai.GenerativeModel {
	m := g.Client.GenerativeModel(g.Model)
	m.SetTemperature(g.Sampling.Temperature)
	m.SetTopP(g.Sampling.TopP)
	m.SetTopK(g.Sampling.TopK)
	m.SafetySettings = blockNone()
	return m
}

func (g *GeminiLLM) Chat(ctx context.Context, history []Turn, prompt string) (string, error) {
	cs := g.generativeModel().StartChat()
	cs.History = geminiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGemini(fmt.Errorf("gemini generate: %w", err))
	}
	return geminiText(resp)
}

// Attach uploads the file through the Files API so turns can reference it.
func (g *GeminiLLM) Attach(ctx context.Context, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	up, err := g.Client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: name,
		MIMEType:    normalizeMIME(name, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini upload %s: %w", name, err)
	}
	return &File{Name: name, MIME: up.MIMEType, URI: up.URI}, nil
}

func (g *GeminiLLM) Close() error {
	return g.Client.Close()
}

func geminiHistory(turns []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var parts []genai.Part
		if t.File != nil {
			switch {
			case t.File.URI != "":
				parts = append(parts, genai.FileData{MIMEType: t.File.MIME, URI: t.File.URI})
			case isTextMIME(normalizeMIME(t.File.Name, t.File.MIME)):
				parts = append(parts, genai.Text(inlineFile(t.File)))
			}
		}
		if t.Text != "" {
			parts = append(parts, genai.Text(t.Text))
		}
		if len(parts) == 0 {
			continue
		}
		role := string(RoleUser)
		if t.Role == RoleModel {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

func classifyGemini(err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Internal, codes.Unavailable:
			return transient(err)
		}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && retryableStatus(gerr.Code) {
		return transient(err)
	}
	return err
}

// retryableStatus reports HTTP statuses that signal a temporary server fault.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

var (
	_ Agent    = (*GeminiLLM)(nil)
	_ Attacher = (*GeminiLLM)(nil)
)
