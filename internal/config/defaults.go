package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                3000,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 300,
		},
		Platforms: PlatformsConfig{
			Slack: SlackConfig{Enabled: true},
		},
		Trigger: TriggerConfig{
			Emoji: "newspaper",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Providers: map[string]ProviderConfig{
				"openai": {
					APIBase: "https://api.openai.com/v1",
					Model:   "gpt-4o-mini",
				},
				"anthropic": {
					Model: "claude-3-5-haiku-latest",
				},
				"ollama": {
					APIBase: "http://localhost:11434",
					Model:   "llama3.1:8b",
				},
			},
			PromptName:    "process_article_with_llm",
			MaxInputChars: 12000,
			MaxTokens:     400,
			Temperature:   0.2,
		},
		Article: ArticleConfig{
			TimeoutSeconds: 20,
			MaxRetries:     2,
			MinChars:       200,
			Browser: BrowserConfig{
				Enabled:        false,
				TimeoutSeconds: 45,
			},
		},
		Audit: AuditConfig{
			Enabled: false,
			DBPath:  "~/.newsbot/journal.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}
