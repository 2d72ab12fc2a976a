// Package article resolves URLs found in chat messages to readable text.
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Extractor downloads and parses one URL.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, url string) (string, error)
}

// Retriever implements domain.ArticleFetcher over an ordered list of
// extractors. It never returns an error: a broken article yields ok=false.
type Retriever struct {
	extractors []Extractor
	minChars   int
	logger     *slog.Logger
}

type RetrieverConfig struct {
	Extractors []Extractor
	// MinChars below which an extraction counts as empty and the next
	// extractor is tried.
	MinChars int
	Logger   *slog.Logger
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	return &Retriever{
		extractors: cfg.Extractors,
		minChars:   cfg.MinChars,
		logger:     cfg.Logger,
	}
}

// Fetch returns the article text for url, trying each extractor in turn.
func (r *Retriever) Fetch(ctx context.Context, url string) (string, bool) {
	for _, ex := range r.extractors {
		text, err := r.extract(ctx, ex, url)
		if err != nil {
			r.logger.Warn("article extraction failed", "extractor", ex.Name(), "url", url, "err", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" || len(text) < r.minChars {
			r.logger.Info("article extraction empty", "extractor", ex.Name(), "url", url, "chars", len(text))
			continue
		}
		r.logger.Info("article fetched", "extractor", ex.Name(), "url", url, "chars", len(text))
		return text, true
	}
	return "", false
}

func (r *Retriever) extract(ctx context.Context, ex Extractor, url string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extractor panic: %v", p)
		}
	}()
	return ex.Extract(ctx, url)
}
