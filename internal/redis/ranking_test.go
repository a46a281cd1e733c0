package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

func TestKeys(t *testing.T) {
	if got := rankingKey("creators"); got != "rumpus:watch:creators:ranking" {
		t.Errorf("rankingKey = %q", got)
	}
	if got := subjectInfoKey("0ihetl"); got != "rumpus:subject:0ihetl:info" {
		t.Errorf("subjectInfoKey = %q", got)
	}
}

// newTestStore connects to the Redis named by TRACKER_TEST_REDIS_ADDR.
func newTestStore(t *testing.T) *RankingStore {
	t.Helper()
	addr := os.Getenv("TRACKER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRACKER_TEST_REDIS_ADDR not set")
	}
	cfg := config.DefaultConfig().Redis
	cfg.Addr = addr
	store, err := NewRankingStore(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewRankingStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRankingStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	watch := "test-" + t.Name()
	t.Cleanup(func() { store.ResetWatch(ctx, watch) })

	if err := store.SetScores(ctx, watch, map[string]float64{"a": 10, "b": 30, "c": 20}); err != nil {
		t.Fatalf("SetScores: %v", err)
	}
	if err := store.SetNames(ctx, map[string]string{"b": "Bee"}); err != nil {
		t.Fatalf("SetNames: %v", err)
	}

	top, err := store.GetTopN(ctx, watch, 2)
	if err != nil {
		t.Fatalf("GetTopN: %v", err)
	}
	if len(top) != 2 || top[0].SubjectID != "b" || top[0].Name != "Bee" || top[1].SubjectID != "c" {
		t.Errorf("unexpected top %+v", top)
	}

	entry, err := store.GetRank(ctx, watch, "a")
	if err != nil {
		t.Fatalf("GetRank: %v", err)
	}
	if entry.Rank != 3 || entry.Score != 10 {
		t.Errorf("unexpected entry %+v", entry)
	}

	// a second poll replaces the ranking
	if err := store.SetScores(ctx, watch, map[string]float64{"c": 5}); err != nil {
		t.Fatalf("SetScores: %v", err)
	}
	if n, _ := store.GetCount(ctx, watch); n != 1 {
		t.Errorf("GetCount = %d, want 1", n)
	}
	if _, err := store.GetRank(ctx, watch, "a"); !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Errorf("GetRank(a) error = %v, want ErrSubjectNotFound", err)
	}
}
