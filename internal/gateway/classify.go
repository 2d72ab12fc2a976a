// Package gateway classifies inbound platform payloads, routes them to the
// platform adapters and serves the HTTP surface.
package gateway

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"newsbot/internal/domain"
)

var (
	messageTypes  = map[string]bool{"message": true, "message_create": true}
	reactionTypes = map[string]bool{"reaction_added": true, "message_reaction_add": true}
)

// Classify parses a raw event body into an InboundEvent. hint names the
// platform for platform-specific routes; when empty the platform is inferred
// from team_id (Slack) or guild_id (Discord). Malformed payloads return an
// error wrapping domain.ErrInvalidPayload.
func Classify(body []byte, hint domain.PlatformName) (domain.InboundEvent, error) {
	if !gjson.ValidBytes(body) {
		return domain.InboundEvent{}, fmt.Errorf("%w: body is not JSON", domain.ErrInvalidPayload)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return domain.InboundEvent{}, fmt.Errorf("%w: body is not a JSON object", domain.ErrInvalidPayload)
	}

	// The verification handshake wins over every other field.
	if c := root.Get("challenge"); c.Exists() {
		return domain.InboundEvent{
			Kind:         domain.KindURLVerification,
			Platform:     hint,
			Verification: &domain.URLVerification{Challenge: c.String()},
		}, nil
	}

	event := root.Get("event")
	if !event.IsObject() {
		return unrecognized(body, hint, "no event object"), nil
	}
	typ := strings.ToLower(event.Get("type").String())
	if !messageTypes[typ] && !reactionTypes[typ] {
		return unrecognized(body, hint, "unhandled event type "+typ), nil
	}

	platform, workspace := workspaceOf(root, hint)
	if workspace == "" {
		return domain.InboundEvent{}, fmt.Errorf("%w: missing team_id/guild_id", domain.ErrInvalidPayload)
	}

	if messageTypes[typ] {
		return classifyMessage(event, body, platform, workspace)
	}
	return classifyReaction(event, platform, workspace)
}

func classifyMessage(event gjson.Result, body []byte, platform domain.PlatformName, workspace string) (domain.InboundEvent, error) {
	// Edits, deletes and system messages carry a subtype.
	if st := event.Get("subtype"); st.Exists() {
		return unrecognized(body, platform, "message subtype "+st.String()), nil
	}
	msg := &domain.MessageCreated{
		Channel:   first(event, "channel", "channel_id"),
		Author:    first(event, "user", "user_id", "author.id"),
		Text:      first(event, "text", "content"),
		Timestamp: first(event, "ts", "id", "message_id"),
	}
	if missing := missingFields(map[string]string{
		"channel": msg.Channel,
		"user":    msg.Author,
		"ts":      msg.Timestamp,
	}); missing != "" {
		return domain.InboundEvent{}, fmt.Errorf("%w: message event missing %s", domain.ErrInvalidPayload, missing)
	}
	return domain.InboundEvent{
		Kind:      domain.KindMessageCreated,
		Platform:  platform,
		Workspace: workspace,
		Message:   msg,
	}, nil
}

func classifyReaction(event gjson.Result, platform domain.PlatformName, workspace string) (domain.InboundEvent, error) {
	r := &domain.ReactionAdded{
		Reactor:         first(event, "user", "user_id"),
		Emoji:           first(event, "reaction", "emoji.name", "emoji"),
		TargetChannel:   first(event, "item.channel", "channel_id", "channel"),
		TargetMessageID: first(event, "item.ts", "message_id"),
		TargetAuthor:    first(event, "item_user", "message_author_id"),
	}
	if missing := missingFields(map[string]string{
		"user":       r.Reactor,
		"reaction":   r.Emoji,
		"channel":    r.TargetChannel,
		"message id": r.TargetMessageID,
	}); missing != "" {
		return domain.InboundEvent{}, fmt.Errorf("%w: reaction event missing %s", domain.ErrInvalidPayload, missing)
	}
	return domain.InboundEvent{
		Kind:      domain.KindReactionAdded,
		Platform:  platform,
		Workspace: workspace,
		Reaction:  r,
	}, nil
}

func workspaceOf(root gjson.Result, hint domain.PlatformName) (domain.PlatformName, string) {
	team := root.Get("team_id").String()
	guild := root.Get("guild_id").String()
	if guild == "" {
		guild = root.Get("event.guild_id").String()
	}
	switch hint {
	case domain.PlatformSlack:
		return hint, team
	case domain.PlatformDiscord:
		return hint, guild
	}
	if team != "" {
		return domain.PlatformSlack, team
	}
	if guild != "" {
		return domain.PlatformDiscord, guild
	}
	return "", ""
}

func unrecognized(body []byte, platform domain.PlatformName, reason string) domain.InboundEvent {
	return domain.InboundEvent{
		Kind:         domain.KindUnrecognized,
		Platform:     platform,
		Unrecognized: &domain.Unrecognized{Raw: body, Reason: reason},
	}
}

// first returns the first non-empty string value among paths.
func first(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := res.Get(p)
		if v.Type == gjson.String || v.Type == gjson.Number {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// missingFields names the empty entries in a stable order.
func missingFields(fields map[string]string) string {
	var missing []string
	for _, name := range []string{"user", "reaction", "channel", "message id", "ts"} {
		if v, ok := fields[name]; ok && v == "" {
			missing = append(missing, name)
		}
	}
	return strings.Join(missing, ", ")
}

// NormalizeEmoji reduces ":newspaper:", "newspaper" and "📰" to one name.
func NormalizeEmoji(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	e = strings.Trim(e, ":")
	// Drop Slack skin-tone modifiers such as "+1::skin-tone-2".
	if i := strings.Index(e, "::"); i >= 0 {
		e = e[:i]
	}
	if name, ok := unicodeEmoji[e]; ok {
		return name
	}
	return e
}

var unicodeEmoji = map[string]string{
	"📰": "newspaper",
}
