package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable holding the config file path.
const ConfigPathEnv = "NEWSBOT_CONFIG"

// Config is the root configuration for newsbot.
type Config struct {
	General   GeneralConfig   `yaml:"general"`
	Server    ServerConfig    `yaml:"server"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	LLM       LLMConfig       `yaml:"llm"`
	Article   ArticleConfig   `yaml:"article"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // "text" | "json"
}

type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	WebhookSecret      string `yaml:"webhookSecret,omitempty"` // HMAC secret for the generic /events route
	ReadTimeoutSeconds int    `yaml:"readTimeoutSeconds"`
	// WriteTimeoutSeconds bounds a whole pipeline run as seen by the caller.
	WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds"`
}

type PlatformsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

type SlackConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Tokens        map[string]string `yaml:"tokens"` // team_id -> bot token
	SigningSecret string            `yaml:"signingSecret,omitempty"`
	AllowedUsers  []string          `yaml:"allowedUsers,omitempty"`
}

type DiscordConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Token        string            `yaml:"token"`                 // used for any guild without its own entry
	GuildTokens  map[string]string `yaml:"guildTokens,omitempty"` // guild_id -> bot token
	AllowedUsers []string          `yaml:"allowedUsers,omitempty"`
	Gateway      bool              `yaml:"gateway"` // also listen for reactions over the gateway
}

type TriggerConfig struct {
	Emoji string `yaml:"emoji"`
}

type LLMConfig struct {
	Provider           string                    `yaml:"provider"`
	Kind               ProviderKind              `yaml:"-"`
	Providers          map[string]ProviderConfig `yaml:"providers"`
	Failover           []string                  `yaml:"failover,omitempty"`
	PromptsDir         string                    `yaml:"promptsDir,omitempty"`
	PromptName         string                    `yaml:"promptName"`
	MaxInputChars      int                       `yaml:"maxInputChars"`
	MaxTokens          int                       `yaml:"maxTokens"`
	Temperature        float64                   `yaml:"temperature"`
	RateLimitPerMinute int                       `yaml:"rateLimitPerMinute"`
}

type ProviderConfig struct {
	APIKey         string `yaml:"apiKey,omitempty"`
	APIBase        string `yaml:"apiBase,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

type ArticleConfig struct {
	TimeoutSeconds int           `yaml:"timeoutSeconds"`
	MaxRetries     int           `yaml:"maxRetries"`
	MinChars       int           `yaml:"minChars"`
	UserAgent      string        `yaml:"userAgent,omitempty"`
	Browser        BrowserConfig `yaml:"browser"`
}

type BrowserConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeoutSeconds"`
}

type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Settings returns the settings block for kind, or an empty one.
func (c LLMConfig) Settings(kind ProviderKind) ProviderConfig {
	return c.Providers[string(kind)]
}

// EnabledPlatforms lists the platforms that will accept events.
func (c *Config) EnabledPlatforms() []string {
	var out []string
	if c.Platforms.Slack.Enabled {
		out = append(out, "slack")
	}
	if c.Platforms.Discord.Enabled {
		out = append(out, "discord")
	}
	return out
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the optional YAML file at path, applies environment overrides
// from the process environment and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; a nil map means the
// process environment.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}

		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}

	cfg.LLM.PromptsDir = ExpandPath(cfg.LLM.PromptsDir)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	kind, err := ParseProviderKind(cfg.LLM.Provider)
	if err != nil {
		errs = append(errs, "llm.provider: "+err.Error())
	} else {
		cfg.LLM.Kind = kind
		if msg := checkProvider(cfg.LLM, kind); msg != "" {
			errs = append(errs, msg)
		}
	}
	for _, name := range cfg.LLM.Failover {
		fk, err := ParseProviderKind(name)
		if err != nil {
			errs = append(errs, "llm.failover: "+err.Error())
			continue
		}
		if msg := checkProvider(cfg.LLM, fk); msg != "" {
			errs = append(errs, msg)
		}
	}
	if cfg.LLM.MaxInputChars < 0 {
		errs = append(errs, "llm.maxInputChars must be >= 0")
	}
	if cfg.LLM.MaxTokens < 1 {
		errs = append(errs, "llm.maxTokens must be >= 1")
	}
	if cfg.LLM.RateLimitPerMinute < 0 {
		errs = append(errs, "llm.rateLimitPerMinute must be >= 0")
	}
	if strings.TrimSpace(cfg.LLM.PromptName) == "" {
		errs = append(errs, "llm.promptName is required")
	}

	slack, discord := cfg.Platforms.Slack, cfg.Platforms.Discord
	if !slack.Enabled && !discord.Enabled {
		errs = append(errs, "at least one of platforms.slack or platforms.discord must be enabled")
	}
	if slack.Enabled && len(slack.Tokens) == 0 {
		errs = append(errs, "platforms.slack.tokens is required (SLACK_BOT_USER_OAUTH_TOKENS=team1:token1,team2:token2)")
	}
	if discord.Enabled && discord.Token == "" && len(discord.GuildTokens) == 0 {
		errs = append(errs, "platforms.discord.token is required (DISCORD_BOT_TOKEN)")
	}
	if discord.Gateway && discord.Token == "" {
		errs = append(errs, "platforms.discord.gateway requires platforms.discord.token")
	}

	if strings.TrimSpace(cfg.Trigger.Emoji) == "" {
		errs = append(errs, "trigger.emoji is required")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Article.TimeoutSeconds < 1 {
		errs = append(errs, "article.timeoutSeconds must be >= 1")
	}
	if cfg.Article.MaxRetries < 0 {
		errs = append(errs, "article.maxRetries must be >= 0")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	switch strings.ToLower(cfg.General.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func checkProvider(llm LLMConfig, kind ProviderKind) string {
	pc := llm.Settings(kind)
	switch kind {
	case ProviderOpenAI:
		if pc.APIKey == "" {
			return "llm.providers.openai.apiKey is required (OPENAI_API_KEY)"
		}
	case ProviderAnthropic:
		if pc.APIKey == "" {
			return "llm.providers.anthropic.apiKey is required (ANTHROPIC_API_KEY)"
		}
	}
	return ""
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
