package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkspaceNotConfigured = errors.New("workspace not configured")
	ErrMessageNotFound        = errors.New("message not found")
	ErrUnknownProvider        = errors.New("unknown llm provider")
	ErrInvalidPayload         = errors.New("invalid event payload")
)

// PartialPostError reports a reply that stopped after Sent of Total chunks
// had already reached the channel.
type PartialPostError struct {
	Sent  int
	Total int
	Err   error
}

func (e *PartialPostError) Error() string {
	return fmt.Sprintf("posted %d of %d chunks: %v", e.Sent, e.Total, e.Err)
}

func (e *PartialPostError) Unwrap() error { return e.Err }
