package domain

import "context"

// Platform is a chat platform adapter. The dispatcher depends only on this
// interface.
type Platform interface {
	Name() PlatformName
	// HandleEvent runs the reaction pipeline for an accepted trigger event.
	HandleEvent(ctx context.Context, ev InboundEvent) Response
	// ResolveWorkspace returns ErrWorkspaceNotConfigured when no credential
	// exists for the workspace or guild.
	ResolveWorkspace(workspace string) error
	FetchMessage(ctx context.Context, ref MessageRef) (*RetrievedMessage, error)
	// SendMessage posts text to ref.Channel, threaded under ref.MessageID
	// when it is set. A failure after some chunks were delivered is returned
	// as *PartialPostError.
	SendMessage(ctx context.Context, ref MessageRef, text string) error
}

// ArticleFetcher resolves a URL to readable text. ok is false on any failure.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (text string, ok bool)
}

// Summarizer turns article text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, articleText string) (string, error)
}

// ClaimStore gates pipeline runs per TriggerKey.
type ClaimStore interface {
	MarkIfNew(key TriggerKey) bool
	Release(key TriggerKey)
}
