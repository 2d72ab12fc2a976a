package provider

import (
	"errors"
	"strings"
	"testing"

	"newsbot/internal/config"
	"newsbot/internal/domain"
)

func llmConfig(provider string) config.LLMConfig {
	return config.LLMConfig{
		Provider: provider,
		Providers: map[string]config.ProviderConfig{
			"openai":    {APIKey: "sk-test"},
			"anthropic": {APIKey: "ant-test"},
			"ollama":    {APIBase: "http://localhost:11434"},
		},
	}
}

func TestNew_SelectsConfiguredProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "openai"},
		{"claude", "anthropic"},
		{"gpt4all", "ollama"},
	}
	for _, tt := range tests {
		p, err := New(llmConfig(tt.provider), testLogger())
		if err != nil {
			t.Fatalf("%s: %v", tt.provider, err)
		}
		if p.Name() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.provider, p.Name(), tt.want)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(llmConfig("bard"), testLogger())
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNew_MissingKey(t *testing.T) {
	cfg := llmConfig("openai")
	cfg.Providers["openai"] = config.ProviderConfig{}
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNew_FailoverChain(t *testing.T) {
	cfg := llmConfig("openai")
	cfg.Failover = []string{"ollama", "openai", "local"}
	p, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	fp, ok := p.(*FailoverProvider)
	if !ok {
		t.Fatalf("expected failover provider, got %T", p)
	}
	if len(fp.chain) != 2 {
		t.Fatalf("duplicates should be dropped, got %s", fp.Name())
	}
	if !strings.HasPrefix(fp.Name(), "failover(openai") {
		t.Errorf("primary should lead the chain: %s", fp.Name())
	}
}
