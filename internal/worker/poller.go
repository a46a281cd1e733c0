package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// Tracker is the part of the tracker service the worker drives
type Tracker interface {
	Watches() []domain.Watch
	PollAll(ctx context.Context) ([]domain.PollResult, error)
	RestoreWatch(ctx context.Context, name string) (int, error)
}

// PollWorker polls every watch on a fixed interval
type PollWorker struct {
	tracker Tracker
	config  *config.PollConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewPollWorker creates a new poll worker
func NewPollWorker(tracker Tracker, cfg *config.PollConfig, logger *slog.Logger) *PollWorker {
	return &PollWorker{
		tracker: tracker,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the background poll loop
func (w *PollWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("poll worker started", "interval", w.config.Interval)

	go w.run(ctx, w.stopCh, w.doneCh)
	return nil
}

// Stop stops the background poll loop and waits for an in-flight poll
func (w *PollWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("poll worker stopped")
	return nil
}

func (w *PollWorker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.pollAll(ctx)
		}
	}
}

func (w *PollWorker) pollAll(ctx context.Context) {
	w.logger.Info("starting poll cycle")
	startTime := time.Now()

	results, err := w.tracker.PollAll(ctx)
	subjects := 0
	for _, r := range results {
		subjects += r.Subjects
	}

	attrs := []any{
		"duration", time.Since(startTime),
		"polled", len(results),
		"subjects", subjects,
	}
	if err != nil {
		w.logger.Warn("poll cycle completed with errors", append(attrs, "error", err)...)
		return
	}
	w.logger.Info("poll cycle completed", attrs...)
}

// RestoreRankings reloads every empty ranking from the latest recorded
// snapshots. A watch that fails to restore is logged and skipped.
func (w *PollWorker) RestoreRankings(ctx context.Context) int {
	w.logger.Info("restoring rankings from snapshots")

	restored := 0
	for _, watch := range w.tracker.Watches() {
		n, err := w.tracker.RestoreWatch(ctx, watch.Name)
		if err != nil {
			w.logger.Error("failed to restore ranking",
				"watch", watch.Name,
				"error", err,
			)
			continue
		}
		if n > 0 {
			w.logger.Debug("restored ranking", "watch", watch.Name, "subjects", n)
			restored++
		}
	}

	w.logger.Info("completed restoring rankings", "restored", restored)
	return restored
}

// IsRunning returns whether the worker is currently running
func (w *PollWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single poll cycle
func (w *PollWorker) RunOnce(ctx context.Context) {
	w.pollAll(ctx)
}
