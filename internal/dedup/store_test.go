package dedup

import (
	"sync"
	"sync/atomic"
	"testing"

	"newsbot/internal/domain"
)

func key(id string) domain.TriggerKey {
	return domain.TriggerKey{Platform: domain.PlatformSlack, Workspace: "T1", MessageID: id}
}

func TestMarkIfNew_FirstClaimWins(t *testing.T) {
	s := New()
	if !s.MarkIfNew(key("1.0")) {
		t.Fatal("first claim should succeed")
	}
	if s.MarkIfNew(key("1.0")) {
		t.Fatal("second claim should fail")
	}
}

func TestMarkIfNew_KeyIncludesPlatformAndWorkspace(t *testing.T) {
	s := New()
	s.MarkIfNew(key("1.0"))

	other := key("1.0")
	other.Workspace = "T2"
	if !s.MarkIfNew(other) {
		t.Error("same message id in another workspace should be new")
	}

	discord := key("1.0")
	discord.Platform = domain.PlatformDiscord
	if !s.MarkIfNew(discord) {
		t.Error("same message id on another platform should be new")
	}
}

func TestRelease_AllowsRetry(t *testing.T) {
	s := New()
	s.MarkIfNew(key("1.0"))
	s.Release(key("1.0"))
	if !s.MarkIfNew(key("1.0")) {
		t.Fatal("released key should be claimable again")
	}
}

func TestRelease_UnknownKeyIsNoop(t *testing.T) {
	s := New()
	s.Release(key("never"))
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestMarkIfNew_ConcurrentSameKey(t *testing.T) {
	s := New()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.MarkIfNew(key("race")) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}
