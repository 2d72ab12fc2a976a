package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"newsbot/internal/domain"
	"newsbot/internal/logging"
)

// DefaultTriggerEmoji activates the pipeline when no emoji is configured.
const DefaultTriggerEmoji = "newspaper"

// Dispatcher routes classified events to the platform adapters. It depends
// only on domain.Platform.
type Dispatcher struct {
	platforms map[domain.PlatformName]domain.Platform
	emoji     string
	logger    *slog.Logger
}

type DispatcherConfig struct {
	Platforms    []domain.Platform
	TriggerEmoji string
	Logger       *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	emoji := NormalizeEmoji(cfg.TriggerEmoji)
	if emoji == "" {
		emoji = DefaultTriggerEmoji
	}
	platforms := make(map[domain.PlatformName]domain.Platform, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		platforms[p.Name()] = p
	}
	return &Dispatcher{platforms: platforms, emoji: emoji, logger: cfg.Logger}
}

// Platforms lists the registered platform names, sorted.
func (d *Dispatcher) Platforms() []domain.PlatformName {
	names := make([]domain.PlatformName, 0, len(d.platforms))
	for n := range d.platforms {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// TriggerEmoji returns the normalized trigger emoji name.
func (d *Dispatcher) TriggerEmoji() string { return d.emoji }

// Handle classifies body and routes the result.
func (d *Dispatcher) Handle(ctx context.Context, body []byte, hint domain.PlatformName) domain.Response {
	ev, err := Classify(body, hint)
	if err != nil {
		logging.FromContext(ctx, d.logger).Warn("invalid event payload", "err", err)
		if errors.Is(err, domain.ErrInvalidPayload) {
			return domain.Invalid(err.Error())
		}
		return domain.Fail(http.StatusBadRequest, domain.StatusInvalidData)
	}
	return d.Route(ctx, ev)
}

// Route produces the response for one classified event.
func (d *Dispatcher) Route(ctx context.Context, ev domain.InboundEvent) domain.Response {
	logger := logging.FromContext(ctx, d.logger)

	switch ev.Kind {
	case domain.KindURLVerification:
		logger.Info("responding to verification challenge")
		return domain.Challenge(ev.Verification.Challenge)

	case domain.KindMessageCreated:
		logger.Debug("message event acknowledged, waiting for a reaction",
			"platform", string(ev.Platform), "channel", ev.Message.Channel)
		return domain.OK(domain.StatusMessageIgnored)

	case domain.KindReactionAdded:
		if NormalizeEmoji(ev.Reaction.Emoji) != d.emoji {
			logger.Debug("reaction ignored", "emoji", ev.Reaction.Emoji)
			return domain.OK(domain.StatusReactionNotHandled)
		}
		plat, ok := d.platforms[ev.Platform]
		if !ok {
			logger.Error("reaction for unconfigured platform", "platform", string(ev.Platform))
			return domain.Fail(http.StatusInternalServerError, domain.StatusNotConfigured)
		}
		logger.Info("trigger reaction received",
			"platform", string(ev.Platform),
			"workspace", ev.Workspace,
			"channel", ev.Reaction.TargetChannel,
			"message_id", ev.Reaction.TargetMessageID,
			"user", ev.Reaction.Reactor,
		)
		return plat.HandleEvent(ctx, ev)

	default:
		if ev.Unrecognized != nil {
			logger.Debug("event not recognized", "reason", ev.Unrecognized.Reason)
		}
		return domain.OK(domain.StatusNotRecognized)
	}
}
