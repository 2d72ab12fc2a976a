package config

import (
	"fmt"
	"strings"

	"newsbot/internal/domain"
)

// ProviderKind selects the LLM backend. It is resolved once during
// validation so call sites never compare provider names.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOllama    ProviderKind = "ollama"
)

// ParseProviderKind maps a configured provider name to its kind. "gpt4all"
// and "local" select the local Ollama backend.
func ParseProviderKind(name string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "ollama", "gpt4all", "local":
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
}

// IsRemote reports whether the provider is a hosted API.
func (k ProviderKind) IsRemote() bool {
	return k == ProviderOpenAI || k == ProviderAnthropic
}
