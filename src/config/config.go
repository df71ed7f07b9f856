// Package config loads process-wide settings from the environment once at
// startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	LogMode   string
	LogRedact bool

	Telegram TelegramConfig
	LLM      LLMConfig
	Prompt   PromptConfig
	Retry    RetryConfig
	Fetch    FetchConfig
	Cache    CacheConfig
	HTTP     HTTPConfig

	Workers        int
	RequestTimeout time.Duration
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	Host     string
}

type PromptConfig struct {
	Priming       string
	Ack           string
	ReferencePath string
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type FetchConfig struct {
	Timeout time.Duration
}

type CacheConfig struct {
	Size     int
	TTL      time.Duration
	RedisURL string
}

type HTTPConfig struct {
	Addr string
}

// Mode names a binary for Validate.
type Mode string

const (
	ModeBot    Mode = "bot"
	ModeServer Mode = "server"
	ModeSolve  Mode = "solve"
)

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Malformed numbers and durations are
// reported rather than replaced by defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}

	provider := strings.ToLower(r.str("LLM_PROVIDER", "gemini"))
	cfg := Config{
		Env:       r.str("QUIZBOT_ENV", "development"),
		LogMode:   r.str("LOG_MODE", "dev"),
		LogRedact: r.boolean("LOG_REDACTION_ENABLED", true),
		Telegram: TelegramConfig{
			Token: r.str("TELEGRAM_BOT_TOKEN", ""),
			Debug: r.boolean("TELEGRAM_DEBUG", false),
		},
		LLM: LLMConfig{
			Provider: provider,
			Model:    r.str("LLM_MODEL", defaultModel(provider)),
			APIKey:   apiKey(&r, provider),
			Host:     r.str("OLLAMA_HOST", ""),
		},
		Prompt: PromptConfig{
			Priming:       r.str("PRIMING_PROMPT", ""),
			Ack:           r.str("PRIMING_ACK", ""),
			ReferencePath: r.str("REFERENCE_PATH", ""),
		},
		Retry: RetryConfig{
			Attempts: r.integer("RETRY_ATTEMPTS", 3),
			Delay:    r.duration("RETRY_DELAY", 5*time.Second),
		},
		Fetch: FetchConfig{
			Timeout: r.duration("FETCH_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			Size:     r.integer("CACHE_SIZE", 0),
			TTL:      r.duration("CACHE_TTL", 10*time.Minute),
			RedisURL: r.str("REDIS_URL", ""),
		},
		HTTP: HTTPConfig{
			Addr: r.str("HTTP_ADDR", ":8080"),
		},
		Workers:        r.integer("GENERATION_WORKERS", 8),
		RequestTimeout: r.duration("REQUEST_TIMEOUT", 3*time.Minute),
	}

	if path := r.str("PRIMING_PROMPT_FILE", ""); path != "" && cfg.Prompt.Priming == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("PRIMING_PROMPT_FILE: %w", err))
		} else {
			cfg.Prompt.Priming = strings.TrimSpace(string(data))
		}
	}

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the credentials a binary needs are present.
func (c Config) Validate(mode Mode) error {
	var errs []error
	if mode == ModeBot && c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	switch c.LLM.Provider {
	case "gemini", "google", "openai", "anthropic", "claude":
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("api key for provider %s is required", c.LLM.Provider))
		}
	case "ollama", "dummy":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, errors.New("RETRY_ATTEMPTS must be at least 1"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("RETRY_DELAY must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("CACHE_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}

// CacheEnabled reports whether answers should be cached.
func (c Config) CacheEnabled() bool {
	return c.Cache.Size > 0 || c.Cache.RedisURL != ""
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic", "claude":
		return "claude-3-5-sonnet-latest"
	case "ollama":
		return "llama3.1"
	default:
		return "gemini-2.0-flash-exp"
	}
}

func apiKey(r *reader, provider string) string {
	switch provider {
	case "openai":
		return r.str("OPENAI_API_KEY", "")
	case "anthropic", "claude":
		return r.str("ANTHROPIC_API_KEY", "")
	default:
		if k := r.str("GEMINI_API_KEY", ""); k != "" {
			return k
		}
		return r.str("GOOGLE_API_KEY", "")
	}
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) integer(key string, fallback int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (r *reader) boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}
