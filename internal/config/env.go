package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides keeps the variable names of the original .env deployment.
type envOverrides struct {
	Platform            string   `env:"PLATFORM"`
	SlackTokens         string   `env:"SLACK_BOT_USER_OAUTH_TOKENS"`
	SlackSigningSecret  string   `env:"SLACK_SIGNING_SECRET"`
	DiscordToken        string   `env:"DISCORD_BOT_TOKEN"`
	DiscordGuildTokens  string   `env:"DISCORD_GUILD_TOKENS"`
	DiscordTriggerGroup []string `env:"DISCORD_TRIGGER_GROUP" envSeparator:","`
	DiscordGateway      string   `env:"DISCORD_GATEWAY"`
	TriggerEmoji        string   `env:"TRIGGER_EMOJI"`

	LLMProvider    string `env:"LLM_PROVIDER"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"OPENAI_MODEL"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	AnthropicKey   string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel string `env:"ANTHROPIC_MODEL"`
	OllamaHost     string `env:"OLLAMA_HOST"`
	OllamaModel    string `env:"OLLAMA_MODEL"`
	PromptsDir     string `env:"PROMPTS_DIR"`

	Port           int    `env:"PORT"`
	LogLevel       string `env:"LOG_LEVEL"`
	LogFormat      string `env:"LOG_FORMAT"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	AuditDBPath    string `env:"AUDIT_DB_PATH"`
	MetricsEnabled string `env:"METRICS_ENABLED"`
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var ov envOverrides
	var err error
	if environ == nil {
		err = env.Parse(&ov)
	} else {
		err = env.ParseWithOptions(&ov, env.Options{Environment: environ})
	}
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return ov.apply(cfg)
}

func (ov envOverrides) apply(cfg *Config) error {
	slack := &cfg.Platforms.Slack
	discord := &cfg.Platforms.Discord

	if ov.SlackTokens != "" {
		tokens, err := ParseCredentials(ov.SlackTokens)
		if err != nil {
			return fmt.Errorf("SLACK_BOT_USER_OAUTH_TOKENS: %w", err)
		}
		slack.Tokens = tokens
		slack.Enabled = true
	}
	if ov.SlackSigningSecret != "" {
		slack.SigningSecret = ov.SlackSigningSecret
	}

	if ov.DiscordToken != "" {
		discord.Token = ov.DiscordToken
		discord.Enabled = true
	}
	if ov.DiscordGuildTokens != "" {
		tokens, err := ParseCredentials(ov.DiscordGuildTokens)
		if err != nil {
			return fmt.Errorf("DISCORD_GUILD_TOKENS: %w", err)
		}
		discord.GuildTokens = tokens
		discord.Enabled = true
	}
	if len(ov.DiscordTriggerGroup) > 0 {
		discord.AllowedUsers = trimAll(ov.DiscordTriggerGroup)
	}
	if ov.DiscordGateway != "" {
		b, err := strconv.ParseBool(ov.DiscordGateway)
		if err != nil {
			return fmt.Errorf("DISCORD_GATEWAY: %w", err)
		}
		discord.Gateway = b
	}

	// PLATFORM narrows what the credentials above switched on.
	switch strings.ToLower(strings.TrimSpace(ov.Platform)) {
	case "":
	case "slack":
		slack.Enabled, discord.Enabled = true, false
	case "discord":
		slack.Enabled, discord.Enabled = false, true
	case "both", "all":
		slack.Enabled, discord.Enabled = true, true
	default:
		return fmt.Errorf("unsupported platform: %s (set PLATFORM to 'slack' or 'discord')", ov.Platform)
	}

	if ov.TriggerEmoji != "" {
		cfg.Trigger.Emoji = ov.TriggerEmoji
	}

	if ov.LLMProvider != "" {
		cfg.LLM.Provider = ov.LLMProvider
	}
	setProvider(cfg, ProviderOpenAI, ov.OpenAIKey, ov.OpenAIBaseURL, ov.OpenAIModel)
	setProvider(cfg, ProviderAnthropic, ov.AnthropicKey, "", ov.AnthropicModel)
	setProvider(cfg, ProviderOllama, "", ov.OllamaHost, ov.OllamaModel)
	if ov.PromptsDir != "" {
		cfg.LLM.PromptsDir = ov.PromptsDir
	}

	if ov.Port != 0 {
		cfg.Server.Port = ov.Port
	}
	if ov.LogLevel != "" {
		cfg.General.LogLevel = ov.LogLevel
	}
	if ov.LogFormat != "" {
		cfg.General.LogFormat = ov.LogFormat
	}
	if ov.WebhookSecret != "" {
		cfg.Server.WebhookSecret = ov.WebhookSecret
	}
	if ov.AuditDBPath != "" {
		cfg.Audit.DBPath = ov.AuditDBPath
		cfg.Audit.Enabled = true
	}
	if ov.MetricsEnabled != "" {
		b, err := strconv.ParseBool(ov.MetricsEnabled)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

func setProvider(cfg *Config, kind ProviderKind, apiKey, apiBase, model string) {
	if apiKey == "" && apiBase == "" && model == "" {
		return
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	pc := cfg.LLM.Providers[string(kind)]
	if apiKey != "" {
		pc.APIKey = apiKey
	}
	if apiBase != "" {
		pc.APIBase = apiBase
	}
	if model != "" {
		pc.Model = model
	}
	cfg.LLM.Providers[string(kind)] = pc
}

// ParseCredentials parses "id1:token1,id2:token2" into a map.
func ParseCredentials(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, token, ok := strings.Cut(pair, ":")
		id, token = strings.TrimSpace(id), strings.TrimSpace(token)
		if !ok || id == "" || token == "" {
			return nil, fmt.Errorf("malformed entry %q, expected id:token", pair)
		}
		out[id] = token
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no credentials found")
	}
	return out, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
