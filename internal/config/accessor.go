package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetByPath retrieves a config value by dot-notation path using the YAML key
// names (e.g. "llm.providers.openai.model"). Secrets are masked.
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(Sanitize(cfg))
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	cp := *cfg

	cp.Server.WebhookSecret = maskString(cp.Server.WebhookSecret)

	cp.Platforms.Slack.Tokens = maskMap(cfg.Platforms.Slack.Tokens)
	cp.Platforms.Slack.SigningSecret = maskString(cp.Platforms.Slack.SigningSecret)
	cp.Platforms.Discord.Token = maskString(cp.Platforms.Discord.Token)
	cp.Platforms.Discord.GuildTokens = maskMap(cfg.Platforms.Discord.GuildTokens)

	if cfg.LLM.Providers != nil {
		cp.LLM.Providers = make(map[string]ProviderConfig, len(cfg.LLM.Providers))
		for name, prov := range cfg.LLM.Providers {
			prov.APIKey = maskString(prov.APIKey)
			cp.LLM.Providers[name] = prov
		}
	}
	return &cp
}

// ListPaths returns every leaf path with its (masked) value, sorted by path.
func ListPaths(cfg *Config) []string {
	m, err := toMap(Sanitize(cfg))
	if err != nil {
		return nil
	}
	flat := make(map[string]any)
	flattenMap("", m, flat)

	out := make([]string, 0, len(flat))
	for k, v := range flat {
		out = append(out, fmt.Sprintf("%s = %v", k, v))
	}
	sort.Strings(out)
	return out
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func maskMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = maskString(v)
	}
	return out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func flattenMap(prefix string, m map[string]any, result map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenMap(path, val, result)
		default:
			result[path] = val
		}
	}
}
