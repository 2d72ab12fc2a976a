package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"newsbot/internal/domain"
)

// ErrEmptyChain is returned by a failover provider with no members.
var ErrEmptyChain = errors.New("failover chain is empty")

// FailoverProvider asks each member in turn and returns the first summary
// produced. Member errors are joined so callers can still match them.
type FailoverProvider struct {
	chain  []domain.Provider
	logger *slog.Logger
}

func NewFailoverProvider(chain []domain.Provider, logger *slog.Logger) *FailoverProvider {
	return &FailoverProvider{chain: chain, logger: logger}
}

func (fp *FailoverProvider) Name() string {
	var b strings.Builder
	b.WriteString("failover(")
	for i, p := range fp.chain {
		if i > 0 {
			b.WriteString("→")
		}
		b.WriteString(p.Name())
	}
	b.WriteString(")")
	return b.String()
}

// Healthy succeeds as soon as one member is reachable.
func (fp *FailoverProvider) Healthy(ctx context.Context) error {
	if len(fp.chain) == 0 {
		return ErrEmptyChain
	}
	var errs []error
	for _, p := range fp.chain {
		err := p.Healthy(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return fmt.Errorf("no healthy provider: %w", errors.Join(errs...))
}

func (fp *FailoverProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if len(fp.chain) == 0 {
		return nil, ErrEmptyChain
	}
	var errs []error
	for i, p := range fp.chain {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				fp.logger.Info("llm failover served request", "provider", p.Name(), "position", i+1)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failover aborted at %s: %w", p.Name(), ctx.Err())
		}
		fp.logger.Warn("llm provider failed, trying next", "provider", p.Name(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, fmt.Errorf("all %d providers failed: %w", len(fp.chain), errors.Join(errs...))
}
