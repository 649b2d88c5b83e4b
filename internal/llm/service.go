package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cv-processor/internal/cv"
	"cv-processor/internal/logger"
	httpclient "cv-processor/pkg/http"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
	ProviderNone   Provider = "none"
)

// ErrNotConfigured is returned by NewService when no provider or key is set.
var ErrNotConfigured = errors.New("LLM provider not configured")

const systemPrompt = "You are a CV/Resume parser. Extract structured data and return only valid JSON."

type Options struct {
	Timeout       time.Duration // per attempt
	MaxAttempts   int
	MaxElapsed    time.Duration // whole retry budget
	InitialDelay  time.Duration
	MaxInputChars int
}

var DefaultOptions = Options{
	Timeout:       30 * time.Second,
	MaxAttempts:   3,
	MaxElapsed:    30 * time.Second,
	InitialDelay:  time.Second,
	MaxInputChars: 4000,
}

// Service is the model-backed field extraction strategy.
type Service struct {
	provider  Provider
	generator Generator
	opts      Options
	logger    *zap.Logger
}

// Config selects and authenticates a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewService builds the provider client. It returns ErrNotConfigured when the
// provider is "none" or the provider needs a key that is missing.
func NewService(ctx context.Context, cfg Config, client *httpclient.Client, opts Options, log *zap.Logger) (*Service, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	if provider == "" || provider == ProviderNone || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var generator Generator
	std := http.DefaultClient
	if client != nil {
		std = client.Standard()
	}

	switch provider {
	case ProviderOpenAI:
		generator = NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, std)
	case ProviderGroq:
		generator = NewOpenAIGenerator(cfg.APIKey, firstNonEmpty(cfg.BaseURL, groqBaseURL), cfg.Model, std)
	case ProviderOllama:
		generator = NewOpenAIGenerator(cfg.APIKey, firstNonEmpty(cfg.BaseURL, ollamaBaseURL), cfg.Model, std)
	case ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, std)
		if err != nil {
			return nil, err
		}
		generator = g
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return NewServiceWithGenerator(provider, generator, opts, log), nil
}

// NewServiceWithGenerator wires an explicit generator.
func NewServiceWithGenerator(provider Provider, generator Generator, opts Options, log *zap.Logger) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = DefaultOptions.MaxElapsed
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultOptions.InitialDelay
	}
	return &Service{
		provider:  provider,
		generator: generator,
		opts:      opts,
		logger:    logger.OrNop(log),
	}
}

func (s *Service) Name() string { return "llm:" + string(s.provider) }

// Extract asks the model for the candidate fields. Every failure (transport,
// API, unrecoverable JSON) is retried with exponential backoff until the
// attempt or wall-time budget runs out.
func (s *Service) Extract(ctx context.Context, text string) (*cv.Fields, error) {
	prompt := s.buildPrompt(truncateRunes(text, s.opts.MaxInputChars))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.InitialDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = s.opts.MaxElapsed
	policy.MaxElapsedTime = s.opts.MaxElapsed

	attempt := 0
	var fields *cv.Fields

	operation := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		start := time.Now()
		raw, err := s.generator.Generate(callCtx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		s.logger.Debug("[LLM] response received",
			zap.Int("attempt", attempt),
			zap.Duration("duration", time.Since(start)),
			zap.Int("length", len(raw)),
		)

		obj, err := RecoverJSON(raw)
		if err != nil {
			s.logger.Debug("[LLM] unparseable response", zap.String("response", logger.TruncateForLog(raw, 200)))
			return err
		}

		fields, err = decodeFields(obj)
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("[LLM] extraction attempt failed, retrying",
			zap.String("provider", string(s.provider)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	retries := backoff.WithMaxRetries(policy, uint64(s.opts.MaxAttempts-1))
	if err := backoff.RetryNotify(operation, backoff.WithContext(retries, ctx), notify); err != nil {
		return nil, fmt.Errorf("%s extraction failed after %d attempt(s): %w", s.provider, attempt, err)
	}
	return fields, nil
}

func (s *Service) buildPrompt(cvText string) string {
	return fmt.Sprintf(`Extract the following information from this CV/Resume text. Return ONLY a valid JSON object with these exact fields:
{
    "name": "candidate full name",
    "email": "email address",
    "phone": "phone number",
    "skills": ["skill1", "skill2"],
    "summary": "brief professional summary or objective"
}

If any field is not found, use null for strings or an empty array for skills.

CV Text:
%s`, cvText)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
