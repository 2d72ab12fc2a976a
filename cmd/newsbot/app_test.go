package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"newsbot/internal/config"
	"newsbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildApp_WiresSlackAndDiscord(t *testing.T) {
	cfg, err := config.LoadWithEnv("", map[string]string{
		"PLATFORM":                    "both",
		"SLACK_BOT_USER_OAUTH_TOKENS": "T1:xoxb-1",
		"DISCORD_BOT_TOKEN":           "discord-token",
		"LLM_PROVIDER":                "ollama",
		"AUDIT_DB_PATH":               filepath.Join(t.TempDir(), "journal.db"),
		"METRICS_ENABLED":             "true",
	})
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}

	a, err := buildApp(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.close()

	if a.slack == nil || a.discord == nil || a.journal == nil {
		t.Fatalf("missing components: slack=%v discord=%v journal=%v", a.slack != nil, a.discord != nil, a.journal != nil)
	}
	got := a.dispatcher.Platforms()
	if len(got) != 2 || got[0] != domain.PlatformDiscord || got[1] != domain.PlatformSlack {
		t.Errorf("platforms = %v", got)
	}
	if a.dispatcher.TriggerEmoji() != "newspaper" {
		t.Errorf("trigger = %q", a.dispatcher.TriggerEmoji())
	}

	srv := httptest.NewServer(a.server.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(`{"challenge":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Errorf("challenge = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestBuildApp_MissingPromptFails(t *testing.T) {
	cfg, err := config.LoadWithEnv("", map[string]string{
		"SLACK_BOT_USER_OAUTH_TOKENS": "T1:xoxb-1",
		"LLM_PROVIDER":                "ollama",
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg.LLM.PromptName = "no_such_prompt"

	if _, err := buildApp(cfg, testLogger()); err == nil {
		t.Fatal("expected an error for a missing prompt template")
	}
}
