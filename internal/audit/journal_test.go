package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"newsbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "sub", "journal.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func record(msgID, status string, code int, finished time.Time) domain.RunRecord {
	return domain.RunRecord{
		Key:        domain.TriggerKey{Platform: domain.PlatformSlack, Workspace: "T1", MessageID: msgID},
		Channel:    "C1",
		Status:     status,
		Code:       code,
		URLs:       2,
		Summaries:  1,
		StartedAt:  finished.Add(-3 * time.Second),
		FinishedAt: finished,
	}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	for i, id := range []string{"1.0", "2.0", "3.0"} {
		if err := j.Record(ctx, record(id, domain.StatusSummarized, 200, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Key.MessageID != "3.0" || recs[1].Key.MessageID != "2.0" {
		t.Errorf("order = %s, %s", recs[0].Key.MessageID, recs[1].Key.MessageID)
	}
	got := recs[0]
	if got.Key.Platform != domain.PlatformSlack || got.Key.Workspace != "T1" || got.Channel != "C1" {
		t.Errorf("key fields = %+v", got)
	}
	if got.URLs != 2 || got.Summaries != 1 || got.Code != 200 {
		t.Errorf("counts = %+v", got)
	}
	if !got.FinishedAt.Equal(base.Add(2*time.Second)) {
		t.Errorf("finished = %v, want %v", got.FinishedAt, base.Add(2*time.Second))
	}
	if got.ID == 0 {
		t.Error("expected an assigned id")
	}
}

func TestJournal_RecentDefaultLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < defaultRecentLimit+5; i++ {
		if err := j.Record(ctx, record("m", domain.StatusNoURLs, 200, now)); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != defaultRecentLimit {
		t.Errorf("got %d records, want %d", len(recs), defaultRecentLimit)
	}
}

func TestJournal_CountByStatus(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	now := time.Now()

	_ = j.Record(ctx, record("old", domain.StatusSummarized, 200, now.Add(-48*time.Hour)))
	_ = j.Record(ctx, record("a", domain.StatusSummarized, 200, now))
	_ = j.Record(ctx, record("b", domain.StatusSummarized, 200, now))
	_ = j.Record(ctx, record("c", domain.StatusFetchFailed, 500, now))

	counts, err := j.CountByStatus(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if counts[domain.StatusSummarized] != 2 || counts[domain.StatusFetchFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestJournal_ReopenKeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(context.Background(), record("1.0", domain.StatusSummarized, 200, time.Now())); err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = Open(path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	v, err := SchemaVersion(j.db)
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
	recs, err := j.Recent(context.Background(), 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("recs = %v, err = %v", recs, err)
	}
	if err := j.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
