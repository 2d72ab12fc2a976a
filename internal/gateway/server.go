package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/tidwall/gjson"

	"newsbot/internal/domain"
	"newsbot/internal/logging"
	"newsbot/internal/metrics"
)

const (
	maxBodyBytes = 1 << 20 // 1MB

	errInvalidData           = "Invalid data format"
	errPlatformNotConfigured = "Platform not configured correctly."
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Dispatcher *Dispatcher
	// SlackSigningSecret enables X-Slack-Signature verification.
	SlackSigningSecret string
	// WebhookSecret enables HMAC X-Signature-256 verification for requests
	// not authenticated by Slack signing.
	WebhookSecret string
	// MetricsPath serves the metrics collector when non-empty.
	MetricsPath string
	Logger      *slog.Logger
}

// Server accepts platform event deliveries over HTTP.
type Server struct {
	cfg        ServerConfig
	dispatcher *Dispatcher
	logger     *slog.Logger
	server     *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 300 * time.Second
	}
	return &Server{cfg: cfg, dispatcher: cfg.Dispatcher, logger: cfg.Logger}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /events", s.eventHandler("events", ""))
	mux.HandleFunc("POST /slack/events", s.eventHandler("slack", domain.PlatformSlack))
	mux.HandleFunc("POST /discord/events", s.eventHandler("discord", domain.PlatformDiscord))
	if s.cfg.MetricsPath != "" {
		mux.Handle("GET "+s.cfg.MetricsPath, metrics.Collector.Handler())
	}
	return chain(mux, withRecover(s.logger), withLogging(s.logger), withRequestID)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("event server starting", "addr", addr, "platforms", s.platformList())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("event server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("event server: %w", err)
	}
}

func (s *Server) platformList() string {
	names := s.dispatcher.Platforms()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(s.dispatcher.Platforms()) == 0 {
		io.WriteString(rw, "Hello, World! Platform configuration error. Check logs for details.")
		return
	}
	fmt.Fprintf(rw, "Hello, World! newsbot is running with %s!", s.platformList())
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"status":    "ok",
		"platforms": s.dispatcher.Platforms(),
	})
}

func (s *Server) eventHandler(route string, hint domain.PlatformName) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequests.Inc()
		code := s.serveEvent(rw, r, hint)
		metrics.Responses(route, code).Inc()
	}
}

// serveEvent writes the response for one event delivery and returns its
// status code.
func (s *Server) serveEvent(rw http.ResponseWriter, r *http.Request, hint domain.PlatformName) int {
	logger := logging.FromContext(r.Context(), s.logger)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return writeError(rw, http.StatusBadRequest, errInvalidData)
	}
	defer r.Body.Close()

	if code, ok := s.authenticate(r, body, hint); !ok {
		logger.Warn("request signature rejected", "code", code)
		return writeError(rw, code, "Invalid signature")
	}

	if len(s.dispatcher.Platforms()) == 0 {
		return writeError(rw, http.StatusInternalServerError, errPlatformNotConfigured)
	}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return writeError(rw, http.StatusBadRequest, errInvalidData)
	}

	resp := s.dispatcher.Handle(r.Context(), body, hint)
	writeResponse(rw, resp)
	return resp.Code
}

// authenticate verifies request signatures. Slack deliveries are checked
// against the signing secret; everything else against the webhook HMAC
// secret. It returns the rejection status when verification fails.
func (s *Server) authenticate(r *http.Request, body []byte, hint domain.PlatformName) (int, bool) {
	slackSigned := r.Header.Get("X-Slack-Signature") != ""
	if s.cfg.SlackSigningSecret != "" && (hint == domain.PlatformSlack || slackSigned) {
		if err := verifySlack(r.Header, body, s.cfg.SlackSigningSecret); err != nil {
			return http.StatusUnauthorized, false
		}
		return 0, true
	}
	if s.cfg.WebhookSecret == "" {
		return 0, true
	}
	sig := r.Header.Get("X-Signature-256")
	if sig == "" {
		return http.StatusUnauthorized, false
	}
	if !verifyHMAC(body, s.cfg.WebhookSecret, sig) {
		return http.StatusForbidden, false
	}
	return 0, true
}

func verifySlack(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeResponse(rw http.ResponseWriter, resp domain.Response) {
	if resp.IsPlainText() {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(resp.Code)
		io.WriteString(rw, resp.PlainText)
		return
	}
	writeJSON(rw, resp.Code, resp.Body())
}

func writeError(rw http.ResponseWriter, code int, msg string) int {
	writeJSON(rw, code, map[string]string{"error": msg})
	return code
}

func writeJSON(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(code)
	json.NewEncoder(rw).Encode(v)
}
