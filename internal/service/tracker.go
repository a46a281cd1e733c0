package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
	"github.com/rumpus-tracker/internal/metrics"
	"github.com/rumpus-tracker/internal/query"
)

// Fetcher runs live searches against the API
type Fetcher interface {
	Players(ctx context.Context, q query.PlayerSearch) ([]domain.Player, error)
	Levels(ctx context.Context, q query.LevelSearch) ([]domain.Level, error)
	DelegationKey(ctx context.Context) (domain.DelegationKeyInfo, error)
}

// Ranker stores the current ranking of each watch
type Ranker interface {
	SetScores(ctx context.Context, watch string, scores map[string]float64) error
	SetNames(ctx context.Context, names map[string]string) error
	GetTopN(ctx context.Context, watch string, n int) ([]domain.RankingEntry, error)
	GetRank(ctx context.Context, watch, subjectID string) (*domain.RankingEntry, error)
	GetCount(ctx context.Context, watch string) (int64, error)
	ResetWatch(ctx context.Context, watch string) error
}

// SnapshotStore keeps the history of every poll
type SnapshotStore interface {
	UpsertWatch(ctx context.Context, w domain.Watch) error
	WatchExists(ctx context.Context, name string) (bool, error)
	RecordSnapshots(ctx context.Context, snapshots []domain.Snapshot) error
	LatestScores(ctx context.Context, watch string) ([]domain.Snapshot, error)
	History(ctx context.Context, subjectID string, limit int) ([]domain.Snapshot, error)
}

// EventPublisher announces completed polls
type EventPublisher interface {
	PublishPoll(ctx context.Context, event domain.PollEvent) error
}

// Broadcaster pushes ranking updates to live subscribers
type Broadcaster interface {
	BroadcastRanking(watch string, entries []domain.RankingEntry, total int64)
}

// watch is a configured watch with its compiled search
type watch struct {
	domain.Watch
	players query.PlayerSearch
	levels  query.LevelSearch
}

// TrackerService polls configured watches and serves their rankings
type TrackerService struct {
	fetcher     Fetcher
	ranker      Ranker
	store       SnapshotStore
	publisher   EventPublisher
	broadcaster Broadcaster
	metrics     *metrics.Collector
	config      *config.RankingConfig
	watches     map[string]*watch
	logger      *slog.Logger
}

// Option customizes a TrackerService
type Option func(*TrackerService)

// WithPublisher publishes an event after every successful poll
func WithPublisher(p EventPublisher) Option {
	return func(s *TrackerService) {
		s.publisher = p
	}
}

// WithBroadcaster pushes the top of each ranking after every successful poll
func WithBroadcaster(b Broadcaster) Option {
	return func(s *TrackerService) {
		s.broadcaster = b
	}
}

// WithMetrics records poll outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(s *TrackerService) {
		s.metrics = m
	}
}

// NewTrackerService compiles the configured watches. A watch whose params
// or rank_by do not fit its kind fails construction.
func NewTrackerService(
	fetcher Fetcher,
	ranker Ranker,
	store SnapshotStore,
	watches []config.WatchConfig,
	cfg *config.RankingConfig,
	logger *slog.Logger,
	opts ...Option,
) (*TrackerService, error) {
	s := &TrackerService{
		fetcher: fetcher,
		ranker:  ranker,
		store:   store,
		config:  cfg,
		watches: make(map[string]*watch, len(watches)),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, wc := range watches {
		w, err := compileWatch(wc)
		if err != nil {
			return nil, fmt.Errorf("watch %q: %w", wc.Name, err)
		}
		if _, dup := s.watches[w.Name]; dup {
			return nil, fmt.Errorf("watch %q: %w: duplicate name", wc.Name, domain.ErrInvalidRequest)
		}
		s.watches[w.Name] = w
	}
	return s, nil
}

func compileWatch(wc config.WatchConfig) (*watch, error) {
	kind, err := domain.ParseWatchKind(wc.Kind)
	if err != nil {
		return nil, err
	}
	w := &watch{Watch: domain.Watch{Name: wc.Name, Kind: kind, RankBy: wc.RankBy, Params: wc.Params}}

	switch kind {
	case domain.WatchKindPlayers:
		if !domain.IsPlayerCounter(wc.RankBy) {
			return nil, fmt.Errorf("%w: %q is not a player stat", domain.ErrInvalidRequest, wc.RankBy)
		}
		q, err := query.ParsePlayerParams(wc.Params)
		if err != nil {
			return nil, err
		}
		// names come from aliases
		if _, ok := q.Get("includeAliases"); !ok {
			q = q.IncludeAliases(true)
		}
		w.players = q
		w.Query = q.Encode()
	case domain.WatchKindLevels:
		if !domain.IsLevelMetric(wc.RankBy) {
			return nil, fmt.Errorf("%w: %q is not a level stat", domain.ErrInvalidRequest, wc.RankBy)
		}
		q, err := query.ParseLevelParams(wc.Params)
		if err != nil {
			return nil, err
		}
		// levels without stats cannot be ranked
		if _, ok := q.Get("includeStats"); !ok {
			q = q.IncludeStats(true)
		}
		w.levels = q
		w.Query = q.Encode()
	}
	return w, nil
}

// Watches returns the configured watches sorted by name
func (s *TrackerService) Watches() []domain.Watch {
	out := make([]domain.Watch, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w.Watch)
	}
	slices.SortFunc(out, func(a, b domain.Watch) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Watch returns a configured watch by name
func (s *TrackerService) Watch(name string) (domain.Watch, error) {
	w, ok := s.watches[name]
	if !ok {
		return domain.Watch{}, domain.ErrWatchNotFound
	}
	return w.Watch, nil
}

// RegisterWatches records every watch definition in the snapshot store
func (s *TrackerService) RegisterWatches(ctx context.Context) error {
	for _, w := range s.Watches() {
		exists, err := s.store.WatchExists(ctx, w.Name)
		if err != nil {
			return fmt.Errorf("checking watch %s: %w", w.Name, err)
		}
		if err := s.store.UpsertWatch(ctx, w); err != nil {
			return fmt.Errorf("registering watch %s: %w", w.Name, err)
		}
		if !exists {
			s.logger.Info("registered new watch", "watch", w.Name, "kind", w.Kind, "query", w.Query)
		}
	}
	return nil
}

// ResetWatch clears a watch's ranking until its next poll
func (s *TrackerService) ResetWatch(ctx context.Context, name string) error {
	if _, ok := s.watches[name]; !ok {
		return domain.ErrWatchNotFound
	}
	if err := s.ranker.ResetWatch(ctx, name); err != nil {
		return fmt.Errorf("resetting ranking: %w", err)
	}
	s.logger.Info("ranking reset", "watch", name)
	return nil
}

// PollWatch runs a watch's search once and replaces its ranking with the
// results. Only the ranking update must succeed; snapshot recording,
// publishing and broadcasting failures are logged.
func (s *TrackerService) PollWatch(ctx context.Context, name string) (*domain.PollResult, error) {
	w, ok := s.watches[name]
	if !ok {
		return nil, domain.ErrWatchNotFound
	}

	start := time.Now()
	snapshots, err := s.fetch(ctx, w, start.UTC())
	if err != nil {
		outcome := metrics.OutcomeTransportError
		var de *domain.DecodeError
		if errors.As(err, &de) {
			outcome = metrics.OutcomeDecodeError
		}
		s.metrics.ObservePoll(name, outcome, 0)
		return nil, fmt.Errorf("polling %s: %w", name, err)
	}

	scores := make(map[string]float64, len(snapshots))
	names := make(map[string]string, len(snapshots))
	for _, snap := range snapshots {
		scores[snap.SubjectID] = snap.Score
		if snap.Name != "" {
			names[snap.SubjectID] = snap.Name
		}
	}

	// Update ranking (must succeed)
	if err := s.ranker.SetScores(ctx, name, scores); err != nil {
		s.metrics.ObservePoll(name, metrics.OutcomeStoreError, 0)
		return nil, fmt.Errorf("updating ranking: %w", err)
	}
	if err := s.ranker.SetNames(ctx, names); err != nil {
		s.logger.Warn("failed to cache subject names", "watch", name, "error", err)
	}

	// Record history (best effort)
	if err := s.store.RecordSnapshots(ctx, snapshots); err != nil {
		s.logger.Warn("failed to record snapshots", "watch", name, "error", err)
	}

	s.announce(ctx, w, len(snapshots), start.UTC())
	s.metrics.ObservePoll(name, metrics.OutcomeSuccess, len(snapshots))

	duration := time.Since(start)
	s.logger.Info("watch polled", "watch", name, "subjects", len(snapshots), "duration", duration)
	return &domain.PollResult{
		Watch:      name,
		Subjects:   len(snapshots),
		Duration:   duration.String(),
		ObservedAt: start.UTC(),
	}, nil
}

// announce publishes and broadcasts the new top of a ranking
func (s *TrackerService) announce(ctx context.Context, w *watch, subjects int, observedAt time.Time) {
	if s.publisher == nil && s.broadcaster == nil {
		return
	}

	top, err := s.ranker.GetTopN(ctx, w.Name, s.config.BroadcastTop)
	if err != nil {
		s.logger.Warn("failed to read ranking for broadcast", "watch", w.Name, "error", err)
		return
	}

	if s.publisher != nil {
		event := domain.PollEvent{
			Watch:      w.Name,
			Kind:       w.Kind,
			Query:      w.Query,
			Subjects:   subjects,
			Top:        top,
			ObservedAt: observedAt,
		}
		if err := s.publisher.PublishPoll(ctx, event); err != nil {
			s.logger.Warn("failed to publish poll event", "watch", w.Name, "error", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastRanking(w.Name, top, int64(subjects))
	}
}

// fetch runs the watch's search and turns every rankable result into a
// snapshot. Results lacking the ranked stat are skipped.
func (s *TrackerService) fetch(ctx context.Context, w *watch, observedAt time.Time) ([]domain.Snapshot, error) {
	newSnapshot := func(subjectID, name string, score float64, v any) domain.Snapshot {
		payload, err := json.Marshal(v)
		if err != nil {
			s.logger.Warn("failed to encode snapshot payload", "watch", w.Name, "subject_id", subjectID, "error", err)
			payload = nil
		}
		return domain.Snapshot{
			ID:         uuid.New(),
			Watch:      w.Name,
			Kind:       w.Kind,
			SubjectID:  subjectID,
			Name:       name,
			Score:      score,
			Payload:    payload,
			ObservedAt: observedAt,
		}
	}

	var snapshots []domain.Snapshot
	switch w.Kind {
	case domain.WatchKindPlayers:
		players, err := s.fetcher.Players(ctx, w.players)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			score, ok := p.Stats.Counter(w.RankBy)
			if !ok {
				continue
			}
			snapshots = append(snapshots, newSnapshot(p.UserID, p.DisplayName(), float64(score), p))
		}
	case domain.WatchKindLevels:
		levels, err := s.fetcher.Levels(ctx, w.levels)
		if err != nil {
			return nil, err
		}
		for _, l := range levels {
			if l.Stats == nil {
				continue
			}
			score, ok := l.Stats.Metric(w.RankBy)
			if !ok {
				continue
			}
			snapshots = append(snapshots, newSnapshot(l.LevelID, l.Title, score, l))
		}
	}
	return snapshots, nil
}

// PollAll polls every watch in name order. A failing watch does not stop
// the others; all failures are returned joined.
func (s *TrackerService) PollAll(ctx context.Context) ([]domain.PollResult, error) {
	var (
		results []domain.PollResult
		errs    []error
	)
	for _, w := range s.Watches() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.PollWatch(ctx, w.Name)
		if err != nil {
			s.logger.Error("failed to poll watch", "watch", w.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}

// RestoreWatch reloads a watch's ranking from its latest snapshots when the
// ranking is empty. It returns the number of restored subjects.
func (s *TrackerService) RestoreWatch(ctx context.Context, name string) (int, error) {
	if _, ok := s.watches[name]; !ok {
		return 0, domain.ErrWatchNotFound
	}

	count, err := s.ranker.GetCount(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	snapshots, err := s.store.LatestScores(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("loading latest scores: %w", err)
	}
	if len(snapshots) == 0 {
		return 0, nil
	}

	scores := make(map[string]float64, len(snapshots))
	names := make(map[string]string, len(snapshots))
	for _, snap := range snapshots {
		scores[snap.SubjectID] = snap.Score
		if snap.Name != "" {
			names[snap.SubjectID] = snap.Name
		}
	}
	if err := s.ranker.SetScores(ctx, name, scores); err != nil {
		return 0, fmt.Errorf("restoring ranking: %w", err)
	}
	if err := s.ranker.SetNames(ctx, names); err != nil {
		s.logger.Warn("failed to cache subject names", "watch", name, "error", err)
	}
	return len(scores), nil
}

// clamp applies the ranking limits to a requested count
func (s *TrackerService) clamp(n int) int {
	if n <= 0 {
		n = s.config.DefaultLimit
	}
	if n > s.config.MaxLimit {
		n = s.config.MaxLimit
	}
	return n
}

// Top returns the top n subjects of a watch
func (s *TrackerService) Top(ctx context.Context, name string, n int) ([]domain.RankingEntry, error) {
	if _, ok := s.watches[name]; !ok {
		return nil, domain.ErrWatchNotFound
	}
	entries, err := s.ranker.GetTopN(ctx, name, s.clamp(n))
	if err != nil {
		return nil, fmt.Errorf("getting top n from redis: %w", err)
	}
	return entries, nil
}

// Rank returns a subject's position in a watch's ranking
func (s *TrackerService) Rank(ctx context.Context, name, subjectID string) (*domain.RankingEntry, error) {
	if _, ok := s.watches[name]; !ok {
		return nil, domain.ErrWatchNotFound
	}
	return s.ranker.GetRank(ctx, name, subjectID)
}

// Stats returns statistics for a watch's ranking
func (s *TrackerService) Stats(ctx context.Context, name string) (*domain.WatchStats, error) {
	if _, ok := s.watches[name]; !ok {
		return nil, domain.ErrWatchNotFound
	}
	count, err := s.ranker.GetCount(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting count: %w", err)
	}

	stats := &domain.WatchStats{
		Watch:         name,
		TotalSubjects: count,
	}
	top, err := s.ranker.GetTopN(ctx, name, 1)
	if err == nil && len(top) > 0 {
		stats.TopScore = top[0].Score
	}
	return stats, nil
}

// History returns a subject's recorded snapshots, newest first
func (s *TrackerService) History(ctx context.Context, subjectID string, limit int) ([]domain.Snapshot, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject id is required", domain.ErrInvalidRequest)
	}
	snapshots, err := s.store.History(ctx, subjectID, s.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("getting history from postgres: %w", err)
	}
	return snapshots, nil
}

// SearchPlayers runs a live player search built from URL query values
func (s *TrackerService) SearchPlayers(ctx context.Context, values url.Values) ([]domain.Player, error) {
	q, err := query.ParsePlayerSearch(values)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Players(ctx, q)
}

// SearchLevels runs a live level search built from URL query values
func (s *TrackerService) SearchLevels(ctx context.Context, values url.Values) ([]domain.Level, error) {
	q, err := query.ParseLevelSearch(values)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Levels(ctx, q)
}

// DelegationKey describes the key the tracker polls with
func (s *TrackerService) DelegationKey(ctx context.Context) (domain.DelegationKeyInfo, error) {
	return s.fetcher.DelegationKey(ctx)
}
