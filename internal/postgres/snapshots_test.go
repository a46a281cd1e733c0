package postgres

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// newTestStore connects using the POSTGRES_* environment variables when
// TRACKER_TEST_POSTGRES is set.
func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	if os.Getenv("TRACKER_TEST_POSTGRES") == "" {
		t.Skip("TRACKER_TEST_POSTGRES not set")
	}
	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	store, err := NewSnapshotStore(&cfg.Postgres, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return store
}

func TestSnapshotStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	watch := domain.Watch{Name: "test-" + uuid.NewString()[:8], Kind: domain.WatchKindPlayers, RankBy: "Subscribers", Query: "limit=2"}
	if err := store.UpsertWatch(ctx, watch); err != nil {
		t.Fatalf("UpsertWatch: %v", err)
	}
	subject := uuid.NewString()[:12]

	first := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
	second := first.Add(30 * time.Minute)
	snaps := []domain.Snapshot{
		{ID: uuid.New(), Watch: watch.Name, Kind: watch.Kind, SubjectID: subject, Score: 1, ObservedAt: first},
		{ID: uuid.New(), Watch: watch.Name, Kind: watch.Kind, SubjectID: subject, Name: "Shoeless", Score: -1,
			Payload: json.RawMessage(`{"userId":"x"}`), ObservedAt: second},
	}
	if err := store.RecordSnapshots(ctx, snaps); err != nil {
		t.Fatalf("RecordSnapshots: %v", err)
	}

	latest, err := store.LatestScores(ctx, watch.Name)
	if err != nil {
		t.Fatalf("LatestScores: %v", err)
	}
	if len(latest) != 1 || latest[0].Score != -1 || latest[0].Payload != nil {
		t.Errorf("unexpected latest %+v", latest)
	}

	history, err := store.History(ctx, subject, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || !history[0].ObservedAt.Equal(second) || history[0].Payload == nil {
		t.Errorf("unexpected history %+v", history)
	}

	ok, err := store.WatchExists(ctx, watch.Name)
	if err != nil || !ok {
		t.Errorf("WatchExists = %v, %v", ok, err)
	}
}
