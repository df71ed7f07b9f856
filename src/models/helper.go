package models

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MIME type lookup table for the reference formats people actually attach.
var mimeExtMap = map[string]string{
	".txt":  "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".json": "application/json",
	".yaml": "application/x-yaml",
	".yml":  "application/x-yaml",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	// Host is the base URL for self-hosted providers (Ollama).
	Host string
}

// NewLLMProvider returns a concrete Agent.
func NewLLMProvider(ctx context.Context, s Settings) (Agent, error) {
	switch strings.ToLower(s.Provider) {
	case "gemini", "google", "":
		return NewGeminiLLM(ctx, s.APIKey, s.Model)
	case "openai":
		return NewOpenAILLM(s.APIKey, s.Model), nil
	case "anthropic", "claude":
		return NewAnthropicLLM(s.APIKey, s.Model), nil
	case "ollama":
		return NewOllamaLLM(s.Host, s.Model)
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", s.Provider)
	}
}

// AttacherFor returns the provider's own attacher, or a LocalAttacher that
// inlines the file when the provider has no file store.
func AttacherFor(a Agent) Attacher {
	if at, ok := a.(Attacher); ok {
		return at
	}
	return LocalAttacher{}
}

// LocalAttacher reads the file into memory.
type LocalAttacher struct{}

func (LocalAttacher) Attach(_ context.Context, path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	mt := normalizeMIME(name, "")
	if !isTextMIME(mt) {
		return nil, fmt.Errorf("attachment %s: unsupported type %q for inline use", name, mt)
	}
	return &File{Name: name, MIME: mt, Data: data}, nil
}

// normalizeMIME strips parameters and falls back to the file extension.
func normalizeMIME(name, m string) string {
	raw := strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if raw != "" && strings.Contains(raw, "/") && !strings.HasSuffix(raw, "/") {
		return raw
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := mimeExtMap[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return strings.TrimSpace(mt)
	}
	return ""
}

func isTextMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json",
		"application/xml",
		"application/x-yaml",
		"application/yaml":
		return true
	default:
		return false
	}
}

// inlineFile renders a text attachment as a delimited block.
func inlineFile(f *File) string {
	title := strings.TrimSpace(f.Name)
	if title == "" {
		title = "reference"
	}
	var b strings.Builder
	b.Grow(len(f.Data) + 2*len(title) + 32)
	b.WriteString("<<<FILE ")
	b.WriteString(title)
	b.WriteString(">>>:\n")
	b.Write(f.Data)
	b.WriteString("\n<<<END FILE ")
	b.WriteString(title)
	b.WriteString(">>>")
	return b.String()
}

// turnText flattens a turn for providers that only accept text content.
func turnText(t Turn) string {
	if t.File == nil || len(t.File.Data) == 0 || !isTextMIME(normalizeMIME(t.File.Name, t.File.MIME)) {
		return t.Text
	}
	if t.Text == "" {
		return inlineFile(t.File)
	}
	return inlineFile(t.File) + "\n\n" + t.Text
}
