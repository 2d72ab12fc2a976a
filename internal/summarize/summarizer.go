// Package summarize turns article text into a short chat-ready summary using
// the configured LLM provider.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"newsbot/internal/domain"
)

// ErrEmptySummary is returned when the provider answers with no text.
var ErrEmptySummary = errors.New("provider returned an empty summary")

type Config struct {
	Provider      domain.Provider
	Template      string
	MaxInputChars int
	MaxTokens     int
	Temperature   float64
	// Limiter is optional; nil disables throttling.
	Limiter *RateLimiter
	Logger  *slog.Logger
}

// Summarizer implements domain.Summarizer.
type Summarizer struct {
	provider      domain.Provider
	template      string
	maxInputChars int
	maxTokens     int
	temperature   float64
	limiter       *RateLimiter
	logger        *slog.Logger
}

func New(cfg Config) (*Summarizer, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("summarizer: provider is required")
	}
	if _, err := validateTemplate("template", cfg.Template); err != nil {
		return nil, err
	}
	return &Summarizer{
		provider:      cfg.Provider,
		template:      cfg.Template,
		maxInputChars: cfg.MaxInputChars,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		limiter:       cfg.Limiter,
		logger:        cfg.Logger,
	}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	body, truncated := truncate(text, s.maxInputChars)
	if truncated {
		s.logger.Debug("article truncated for summarization",
			"original_chars", len([]rune(text)),
			"max_chars", s.maxInputChars,
		)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := s.provider.Chat(ctx, domain.ChatRequest{
		Messages:    []domain.Message{{Role: "user", Content: Render(s.template, body)}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", ErrEmptySummary
	}
	s.logger.Debug("article summarized",
		"provider", s.provider.Name(),
		"latency_ms", resp.LatencyMs,
		"tokens", resp.Usage.TotalTokens,
	)
	return out, nil
}
