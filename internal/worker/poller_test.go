package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

type fakeTracker struct {
	polls    atomic.Int32
	restored map[string]int
	failing  string
}

func (f *fakeTracker) Watches() []domain.Watch {
	return []domain.Watch{{Name: "creators"}, {Name: "gems"}, {Name: "broken"}}
}

func (f *fakeTracker) PollAll(ctx context.Context) ([]domain.PollResult, error) {
	f.polls.Add(1)
	return []domain.PollResult{{Watch: "creators", Subjects: 3}}, nil
}

func (f *fakeTracker) RestoreWatch(ctx context.Context, name string) (int, error) {
	if name == f.failing {
		return 0, errors.New("postgres down")
	}
	return f.restored[name], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRestoreRankings(t *testing.T) {
	tracker := &fakeTracker{restored: map[string]int{"creators": 4}, failing: "broken"}
	w := NewPollWorker(tracker, &config.PollConfig{Interval: time.Minute}, testLogger())

	if got := w.RestoreRankings(context.Background()); got != 1 {
		t.Errorf("RestoreRankings() = %d, want 1", got)
	}
}

func TestRunOnce(t *testing.T) {
	tracker := &fakeTracker{}
	w := NewPollWorker(tracker, &config.PollConfig{Interval: time.Minute}, testLogger())

	w.RunOnce(context.Background())
	if got := tracker.polls.Load(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
}

func TestStartStop(t *testing.T) {
	tracker := &fakeTracker{}
	w := NewPollWorker(tracker, &config.PollConfig{Interval: 5 * time.Millisecond}, testLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("worker not running after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for tracker.polls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if tracker.polls.Load() < 2 {
		t.Errorf("expected at least 2 polls, got %d", tracker.polls.Load())
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("worker still running after Stop")
	}

	// restartable
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
