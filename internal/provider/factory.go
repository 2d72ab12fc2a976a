package provider

import (
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/config"
	"newsbot/internal/domain"
)

// New builds the provider selected by cfg.Kind, wrapped in a failover chain
// when cfg.Failover names further providers. cfg must have been validated.
func New(cfg config.LLMConfig, logger *slog.Logger) (domain.Provider, error) {
	if cfg.Kind == "" {
		kind, err := config.ParseProviderKind(cfg.Provider)
		if err != nil {
			return nil, err
		}
		cfg.Kind = kind
	}

	primary, err := build(cfg, cfg.Kind, logger)
	if err != nil {
		return nil, err
	}
	if len(cfg.Failover) == 0 {
		return primary, nil
	}

	chain := []domain.Provider{primary}
	seen := map[config.ProviderKind]bool{cfg.Kind: true}
	for _, name := range cfg.Failover {
		kind, err := config.ParseProviderKind(name)
		if err != nil {
			return nil, fmt.Errorf("failover: %w", err)
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		p, err := build(cfg, kind, logger)
		if err != nil {
			return nil, fmt.Errorf("failover: %w", err)
		}
		chain = append(chain, p)
	}
	if len(chain) == 1 {
		return primary, nil
	}
	return NewFailoverProvider(chain, logger), nil
}

func build(cfg config.LLMConfig, kind config.ProviderKind, logger *slog.Logger) (domain.Provider, error) {
	pc := cfg.Settings(kind)
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second

	switch kind {
	case config.ProviderOpenAI:
		if pc.APIKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		return NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, Timeout: timeout, Logger: logger}), nil
	case config.ProviderAnthropic:
		if pc.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api key is required")
		}
		return NewAnthropic(AnthropicConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, Timeout: timeout, Logger: logger}), nil
	case config.ProviderOllama:
		return NewOllama(OllamaConfig{APIBase: pc.APIBase, DefaultModel: pc.Model, Timeout: timeout, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, kind)
	}
}
