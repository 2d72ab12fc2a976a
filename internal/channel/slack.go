package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"newsbot/internal/article"
	"newsbot/internal/domain"
)

const (
	slackMaxMsgLen   = 4000
	slackRepliesPage = 200
)

// slackAPI is the subset of *slack.Client the adapter uses.
type slackAPI interface {
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// Slack implements domain.Platform for the Slack Events API. Each workspace
// (team_id) gets its own client built from its bot token.
type Slack struct {
	creds    Credentials
	allowed  allowList
	pipeline *Pipeline
	logger   *slog.Logger

	newAPI  func(token string) slackAPI
	mu      sync.Mutex
	clients map[string]slackAPI
}

// SlackConfig configures the Slack adapter.
type SlackConfig struct {
	Tokens       map[string]string // team_id -> bot token
	AllowedUsers []string
	Pipeline     *Pipeline
	Logger       *slog.Logger
}

// NewSlack creates a Slack adapter.
func NewSlack(cfg SlackConfig) *Slack {
	return newSlack(cfg, func(token string) slackAPI { return slack.New(token) })
}

func newSlack(cfg SlackConfig, newAPI func(string) slackAPI) *Slack {
	return &Slack{
		creds:    NewCredentials(cfg.Tokens, ""),
		allowed:  newAllowList(cfg.AllowedUsers),
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
		newAPI:   newAPI,
		clients:  make(map[string]slackAPI),
	}
}

func (s *Slack) Name() domain.PlatformName { return domain.PlatformSlack }

// HandleEvent runs the reaction pipeline for a trigger reaction.
func (s *Slack) HandleEvent(ctx context.Context, ev domain.InboundEvent) domain.Response {
	if ev.Reaction != nil && !s.allowed.permits(ev.Reaction.Reactor) {
		s.logger.Info("slack reaction from user outside the allow list", "user", ev.Reaction.Reactor)
		return domain.Fail(http.StatusForbidden, domain.StatusUnauthorized)
	}
	return s.pipeline.Run(ctx, s, ev)
}

func (s *Slack) ResolveWorkspace(workspace string) error {
	_, err := s.creds.Token(workspace)
	return err
}

// Workspaces lists the configured team ids.
func (s *Slack) Workspaces() []string { return s.creds.Workspaces() }

func (s *Slack) client(workspace string) (slackAPI, error) {
	token, err := s.creds.Token(workspace)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[workspace]; ok {
		return c, nil
	}
	c := s.newAPI(token)
	s.clients[workspace] = c
	return c, nil
}

// FetchMessage probes the channel, then looks the message up by its exact
// timestamp. Thread replies are absent from channel history, so a miss falls
// back to conversations.replies.
func (s *Slack) FetchMessage(ctx context.Context, ref domain.MessageRef) (*domain.RetrievedMessage, error) {
	api, err := s.client(ref.Workspace)
	if err != nil {
		return nil, err
	}

	if _, err := api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: ref.Channel}); err != nil {
		if strings.Contains(err.Error(), "channel_not_found") {
			s.logger.Warn("bot may not be a member of this channel; invite it with /invite",
				"channel", ref.Channel, "workspace", ref.Workspace)
		}
		return nil, fmt.Errorf("%w: %v", ErrChannelInfo, err)
	}

	ts := normalizeTS(ref.MessageID)
	hist, err := api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: ref.Channel,
		Latest:    ts,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("conversations.history: %w", err)
	}
	if len(hist.Messages) > 0 && hist.Messages[0].Timestamp == ts {
		return slackMessage(hist.Messages[0], ref.Channel), nil
	}

	msgs, _, _, err := api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: ref.Channel,
		Timestamp: ts,
		Inclusive: true,
		Limit:     slackRepliesPage,
	})
	if err != nil {
		if isSlackNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, ts)
		}
		return nil, fmt.Errorf("conversations.replies: %w", err)
	}
	for _, m := range msgs {
		if m.Timestamp == ts {
			return slackMessage(m, ref.Channel), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, ts)
}

// SendMessage posts text to ref.Channel, threaded under ref.MessageID when
// set. Long text is split into several posts.
func (s *Slack) SendMessage(ctx context.Context, ref domain.MessageRef, text string) error {
	api, err := s.client(ref.Workspace)
	if err != nil {
		return err
	}
	chunks := splitMessage(text, slackMaxMsgLen)
	for i, chunk := range chunks {
		opts := []slack.MsgOption{slack.MsgOptionText(chunk, false)}
		if ref.MessageID != "" {
			opts = append(opts, slack.MsgOptionTS(ref.MessageID))
		}
		if _, _, err := api.PostMessageContext(ctx, ref.Channel, opts...); err != nil {
			err = fmt.Errorf("chat.postMessage: %w", err)
			if i > 0 {
				return &domain.PartialPostError{Sent: i, Total: len(chunks), Err: err}
			}
			return err
		}
	}
	return nil
}

// AuthTest verifies the token of one workspace and returns the bot user and
// team names.
func (s *Slack) AuthTest(ctx context.Context, workspace string) (user, team string, err error) {
	api, err := s.client(workspace)
	if err != nil {
		return "", "", err
	}
	resp, err := api.AuthTestContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("auth.test: %w", err)
	}
	return resp.User, resp.Team, nil
}

func slackMessage(m slack.Message, channel string) *domain.RetrievedMessage {
	out := &domain.RetrievedMessage{
		ID:          m.Timestamp,
		Text:        article.NormalizeSlackText(m.Text),
		Channel:     channel,
		AuthorIsBot: m.BotID != "" || m.SubType == "bot_message",
		FetchedAt:   time.Now(),
	}
	if m.ThreadTimestamp != "" {
		out.ThreadRootID = m.ThreadTimestamp
	}
	return out
}

func isSlackNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "thread_not_found") || strings.Contains(msg, "message_not_found")
}

// normalizeTS pads the fractional part of a Slack timestamp to six digits,
// the form the API returns.
func normalizeTS(ts string) string {
	sec, frac, ok := strings.Cut(ts, ".")
	if !ok {
		return sec + ".000000"
	}
	if len(frac) < 6 {
		frac += strings.Repeat("0", 6-len(frac))
	}
	return sec + "." + frac
}
