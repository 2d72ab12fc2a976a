package domain

import "time"

// PlatformName identifies a chat platform.
type PlatformName string

const (
	PlatformSlack   PlatformName = "slack"
	PlatformDiscord PlatformName = "discord"
)

// EventKind discriminates the InboundEvent union.
type EventKind string

const (
	KindURLVerification EventKind = "url_verification"
	KindMessageCreated  EventKind = "message_created"
	KindReactionAdded   EventKind = "reaction_added"
	KindUnrecognized    EventKind = "unrecognized"
)

// InboundEvent is one classified platform event. Exactly one of the
// variant pointers is set, matching Kind.
type InboundEvent struct {
	Kind      EventKind
	Platform  PlatformName
	Workspace string // team_id or guild_id

	Verification *URLVerification
	Message      *MessageCreated
	Reaction     *ReactionAdded
	Unrecognized *Unrecognized
}

type URLVerification struct {
	Challenge string
}

type MessageCreated struct {
	Channel   string
	Author    string
	Text      string
	Timestamp string
}

type ReactionAdded struct {
	Reactor         string
	Emoji           string
	TargetChannel   string
	TargetMessageID string
	TargetAuthor    string // optional, Slack item_user
}

type Unrecognized struct {
	Raw    []byte
	Reason string
}

// Key returns the deduplication key of a reaction event.
func (e InboundEvent) Key() TriggerKey {
	if e.Reaction == nil {
		return TriggerKey{}
	}
	return TriggerKey{
		Platform:  e.Platform,
		Workspace: e.Workspace,
		MessageID: e.Reaction.TargetMessageID,
	}
}

// TriggerKey identifies one reacted-to message across platforms and tenants.
type TriggerKey struct {
	Platform  PlatformName
	Workspace string
	MessageID string
}

func (k TriggerKey) String() string {
	return string(k.Platform) + "/" + k.Workspace + "/" + k.MessageID
}

// MessageRef locates a message on a platform.
type MessageRef struct {
	Workspace string
	Channel   string
	MessageID string
}

// RetrievedMessage is the reacted-to message fetched out of band.
type RetrievedMessage struct {
	ID           string
	Text         string
	Channel      string
	AuthorIsBot  bool
	ThreadRootID string // empty when the message starts no thread
	FetchedAt    time.Time
}

// ReplyAnchor returns the id a threaded reply should be attached to.
func (m RetrievedMessage) ReplyAnchor() string {
	if m.ThreadRootID != "" {
		return m.ThreadRootID
	}
	return m.ID
}
