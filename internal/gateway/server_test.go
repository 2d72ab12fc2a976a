package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"newsbot/internal/domain"
)

const reactionBody = `{"team_id":"T1","event":{"type":"reaction_added","user":"U1","reaction":"newspaper","item":{"channel":"C1","ts":"1700000000.000100"}}}`

func newTestServer(t *testing.T, cfg ServerConfig, platforms ...domain.Platform) *httptest.Server {
	t.Helper()
	cfg.Dispatcher = newTestDispatcher(platforms...)
	cfg.Logger = testLogger()
	srv := httptest.NewServer(NewServer(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("body %q is not JSON: %v", body, err)
	}
	return m
}

func TestServer_Challenge(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, newStub(domain.PlatformSlack, ""))

	resp, body := post(t, srv.URL+"/events", `{"token":"x","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if body != "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P" {
		t.Errorf("body = %q", body)
	}
}

func TestServer_ReactionSummarized(t *testing.T) {
	stub := newStub(domain.PlatformSlack, "see <https://example.com/a>")
	srv := newTestServer(t, ServerConfig{}, stub)

	resp, body := post(t, srv.URL+"/slack/events", reactionBody, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	m := decode(t, body)
	if m["status"] != domain.StatusSummarized || m["summary"] != "summary: body of https://example.com/a" {
		t.Errorf("body = %v", m)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	resp, body = post(t, srv.URL+"/slack/events", reactionBody, nil)
	if m := decode(t, body); resp.StatusCode != http.StatusOK || m["status"] != domain.StatusAlreadyProcessed {
		t.Errorf("second delivery: %d %v", resp.StatusCode, m)
	}
}

func TestServer_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, newStub(domain.PlatformSlack, ""))

	for _, body := range []string{"", "not json", "{"} {
		resp, got := post(t, srv.URL+"/events", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: status = %d", body, resp.StatusCode)
		}
		if m := decode(t, got); m["error"] != "Invalid data format" {
			t.Errorf("%q: body = %v", body, m)
		}
	}
}

func TestServer_MissingTeamID(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, newStub(domain.PlatformSlack, ""))

	resp, body := post(t, srv.URL+"/events", `{"event":{"type":"message","channel":"C1","user":"U1","ts":"1.0"}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if m := decode(t, body); m["status"] != domain.StatusInvalidData {
		t.Errorf("body = %v", m)
	}
}

func TestServer_NoPlatformsConfigured(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	resp, body := post(t, srv.URL+"/events", reactionBody, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if m := decode(t, body); m["error"] != "Platform not configured correctly." {
		t.Errorf("body = %v", m)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, newStub(domain.PlatformSlack, ""))

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_RootAndHealth(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, newStub(domain.PlatformSlack, ""))

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "running with slack") {
		t.Errorf("root = %q", data)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if m := decode(t, string(data)); resp.StatusCode != http.StatusOK || m["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, m)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, ServerConfig{MetricsPath: "/metrics"}, newStub(domain.PlatformSlack, ""))
	post(t, srv.URL+"/events", `{"challenge":"x"}`, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "newsbot_http_requests_total") {
		t.Errorf("metrics output missing request counter:\n%s", data)
	}
}

func slackSignature(secret, ts, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestServer_SlackSigning(t *testing.T) {
	const secret = "8f742231b10e8888abcd99yyyzzz85a5"
	srv := newTestServer(t, ServerConfig{SlackSigningSecret: secret}, newStub(domain.PlatformSlack, ""))
	body := `{"challenge":"ok"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	resp, _ := post(t, srv.URL+"/slack/events", body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unsigned: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = post(t, srv.URL+"/slack/events", body, map[string]string{
		"X-Slack-Request-Timestamp": ts,
		"X-Slack-Signature":         slackSignature("wrong", ts, body),
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d, want 401", resp.StatusCode)
	}

	resp, got := post(t, srv.URL+"/slack/events", body, map[string]string{
		"X-Slack-Request-Timestamp": ts,
		"X-Slack-Signature":         slackSignature(secret, ts, body),
	})
	if resp.StatusCode != http.StatusOK || got != "ok" {
		t.Errorf("signed: status = %d body = %q", resp.StatusCode, got)
	}
}

func TestServer_WebhookHMAC(t *testing.T) {
	const secret = "test-secret"
	srv := newTestServer(t, ServerConfig{WebhookSecret: secret}, newStub(domain.PlatformDiscord, ""))
	body := `{"challenge":"ok"}`

	resp, _ := post(t, srv.URL+"/discord/events", body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing signature: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = post(t, srv.URL+"/discord/events", body, map[string]string{"X-Signature-256": "sha256=invalid"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("invalid signature: status = %d, want 403", resp.StatusCode)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	resp, got := post(t, srv.URL+"/discord/events", body, map[string]string{"X-Signature-256": sig})
	if resp.StatusCode != http.StatusOK || got != "ok" {
		t.Errorf("valid signature: status = %d body = %q", resp.StatusCode, got)
	}
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"event":{}}`)
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write(body)
	good := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !verifyHMAC(body, "s", good) {
		t.Error("valid signature rejected")
	}
	if verifyHMAC(body, "s", "sha256=deadbeef") {
		t.Error("invalid signature accepted")
	}
	if verifyHMAC(body, "s", "") {
		t.Error("empty signature accepted")
	}
}
