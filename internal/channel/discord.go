package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"newsbot/internal/domain"
)

const (
	discordMaxMsgLen = 2000
	// discordUnknownMessage is the JSON error code for a deleted or missing message.
	discordUnknownMessage = 10008
)

// discordAPI is the subset of *discordgo.Session the adapter uses.
type discordAPI interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// EventHandler routes a classified event; the gateway listener feeds
// reactions through it.
type EventHandler func(ctx context.Context, ev domain.InboundEvent) domain.Response

// Discord implements domain.Platform over the Discord REST API, with an
// optional gateway listener for reaction events.
type Discord struct {
	creds    Credentials
	allowed  allowList
	pipeline *Pipeline
	logger   *slog.Logger

	newAPI   func(token string) (discordAPI, error)
	mu       sync.Mutex
	sessions map[string]discordAPI // keyed by token
}

// DiscordConfig configures the Discord adapter.
type DiscordConfig struct {
	Token        string            // default bot token
	GuildTokens  map[string]string // guild_id -> bot token
	AllowedUsers []string          // trigger group; empty allows everyone
	Pipeline     *Pipeline
	Logger       *slog.Logger
}

// NewDiscord creates a Discord adapter.
func NewDiscord(cfg DiscordConfig) *Discord {
	return newDiscord(cfg, func(token string) (discordAPI, error) {
		s, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func newDiscord(cfg DiscordConfig, newAPI func(string) (discordAPI, error)) *Discord {
	return &Discord{
		creds:    NewCredentials(cfg.GuildTokens, cfg.Token),
		allowed:  newAllowList(cfg.AllowedUsers),
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
		newAPI:   newAPI,
		sessions: make(map[string]discordAPI),
	}
}

func (d *Discord) Name() domain.PlatformName { return domain.PlatformDiscord }

// HandleEvent checks the trigger group, then runs the reaction pipeline.
func (d *Discord) HandleEvent(ctx context.Context, ev domain.InboundEvent) domain.Response {
	if ev.Reaction != nil && !d.allowed.permits(ev.Reaction.Reactor) {
		d.logger.Info("discord reaction from user outside the trigger group", "user", ev.Reaction.Reactor)
		return domain.Fail(http.StatusForbidden, domain.StatusUnauthorized)
	}
	return d.pipeline.Run(ctx, d, ev)
}

func (d *Discord) ResolveWorkspace(guild string) error {
	_, err := d.creds.Token(guild)
	return err
}

func (d *Discord) session(guild string) (discordAPI, error) {
	token, err := d.creds.Token(guild)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[token]; ok {
		return s, nil
	}
	s, err := d.newAPI(token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	d.sessions[token] = s
	return s, nil
}

func (d *Discord) FetchMessage(ctx context.Context, ref domain.MessageRef) (*domain.RetrievedMessage, error) {
	api, err := d.session(ref.Workspace)
	if err != nil {
		return nil, err
	}
	m, err := api.ChannelMessage(ref.Channel, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		if isDiscordNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, ref.MessageID)
		}
		return nil, fmt.Errorf("get channel message: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, ref.MessageID)
	}

	channel := m.ChannelID
	if channel == "" {
		channel = ref.Channel
	}
	return &domain.RetrievedMessage{
		ID:          m.ID,
		Text:        m.Content,
		Channel:     channel,
		AuthorIsBot: m.Author != nil && m.Author.Bot,
		FetchedAt:   time.Now(),
	}, nil
}

// SendMessage posts text to ref.Channel as a reply to ref.MessageID when set.
// Only the first chunk of a long text carries the reply reference.
func (d *Discord) SendMessage(ctx context.Context, ref domain.MessageRef, text string) error {
	api, err := d.session(ref.Workspace)
	if err != nil {
		return err
	}
	chunks := splitMessage(text, discordMaxMsgLen)
	for i, chunk := range chunks {
		msg := &discordgo.MessageSend{Content: chunk}
		if i == 0 && ref.MessageID != "" {
			msg.Reference = &discordgo.MessageReference{
				MessageID: ref.MessageID,
				ChannelID: ref.Channel,
				GuildID:   ref.Workspace,
			}
		}
		if _, err := api.ChannelMessageSendComplex(ref.Channel, msg, discordgo.WithContext(ctx)); err != nil {
			err = fmt.Errorf("send channel message: %w", err)
			if i > 0 {
				return &domain.PartialPostError{Sent: i, Total: len(chunks), Err: err}
			}
			return err
		}
	}
	return nil
}

func isDiscordNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordUnknownMessage {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// ReactionEvent converts a gateway reaction into the event the dispatcher
// routes for HTTP deliveries.
func ReactionEvent(r *discordgo.MessageReaction) domain.InboundEvent {
	return domain.InboundEvent{
		Kind:      domain.KindReactionAdded,
		Platform:  domain.PlatformDiscord,
		Workspace: r.GuildID,
		Reaction: &domain.ReactionAdded{
			Reactor:         r.UserID,
			Emoji:           r.Emoji.Name,
			TargetChannel:   r.ChannelID,
			TargetMessageID: r.MessageID,
		},
	}
}

// Listen connects to the Discord gateway with the default token and routes
// reaction events through handle until ctx is done.
func (d *Discord) Listen(ctx context.Context, token string, handle EventHandler) error {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageReaction == nil || r.GuildID == "" {
			return
		}
		// Ignore the bot's own reactions.
		if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
			return
		}
		resp := handle(ctx, ReactionEvent(r.MessageReaction))
		d.logger.Info("discord gateway reaction handled",
			"guild", r.GuildID,
			"message_id", r.MessageID,
			"status", resp.Status,
			"code", resp.Code,
		)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	if session.State != nil && session.State.User != nil {
		d.logger.Info("discord gateway connected", "user", session.State.User.Username)
	}

	<-ctx.Done()
	d.logger.Info("discord gateway disconnecting")
	return session.Close()
}
