package domain

import (
	"context"
	"time"
)

// RunRecord is the outcome of one reaction-triggered pipeline run.
// Summary text is deliberately absent.
type RunRecord struct {
	ID         int64
	Key        TriggerKey
	Channel    string
	Status     string
	Code       int
	URLs       int
	Summaries  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunJournal records pipeline outcomes.
type RunJournal interface {
	Record(ctx context.Context, rec RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}
