package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// RankingStore keeps one sorted set per watch. It holds rankings derived
// from polls, never raw API responses.
type RankingStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRankingStore creates a new Redis ranking store
func NewRankingStore(cfg *config.RedisConfig, logger *slog.Logger) (*RankingStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RankingStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RankingStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *RankingStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// rankingKey returns the Redis key for a watch's sorted set
func rankingKey(watch string) string {
	return fmt.Sprintf("rumpus:watch:%s:ranking", watch)
}

// subjectInfoKey returns the Redis key for a subject's display info
func subjectInfoKey(subjectID string) string {
	return fmt.Sprintf("rumpus:subject:%s:info", subjectID)
}

// SetScores replaces a watch's ranking with scores in one transaction, so
// subjects that dropped out of the search leave the ranking too.
func (s *RankingStore) SetScores(ctx context.Context, watch string, scores map[string]float64) error {
	key := rankingKey(watch)
	members := make([]redis.Z, 0, len(scores))
	for subjectID, score := range scores {
		members = append(members, redis.Z{Score: score, Member: subjectID})
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting scores: %w", err)
	}
	return nil
}

// SetNames caches subject display names using pipelining
func (s *RankingStore) SetNames(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for subjectID, name := range names {
		pipe.HSet(ctx, subjectInfoKey(subjectID), "name", name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting names: %w", err)
	}
	return nil
}

// GetTopN returns the top n subjects of a watch, highest score first
func (s *RankingStore) GetTopN(ctx context.Context, watch string, n int) ([]domain.RankingEntry, error) {
	if n <= 0 {
		return []domain.RankingEntry{}, nil
	}
	results, err := s.client.ZRevRangeWithScores(ctx, rankingKey(watch), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.RankingEntry, len(results))
	for i, result := range results {
		entries[i] = domain.RankingEntry{
			Rank:      int64(i + 1),
			SubjectID: result.Member.(string),
			Score:     result.Score,
		}
	}
	if err := s.fillNames(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// fillNames looks up cached names for entries in one round trip
func (s *RankingStore) fillNames(ctx context.Context, entries []domain.RankingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(entries))
	for i, e := range entries {
		cmds[i] = pipe.HGet(ctx, subjectInfoKey(e.SubjectID), "name")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("getting names: %w", err)
	}
	for i, cmd := range cmds {
		if name, err := cmd.Result(); err == nil {
			entries[i].Name = name
		}
	}
	return nil
}

// GetRank returns a subject's rank and score within a watch
func (s *RankingStore) GetRank(ctx context.Context, watch, subjectID string) (*domain.RankingEntry, error) {
	key := rankingKey(watch)

	// Use pipeline to get both rank and score
	pipe := s.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, key, subjectID)
	scoreCmd := pipe.ZScore(ctx, key, subjectID)
	nameCmd := pipe.HGet(ctx, subjectInfoKey(subjectID), "name")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("getting subject rank: %w", err)
	}

	rank, err := rankCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	score, err := scoreCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting score result: %w", err)
	}

	entry := &domain.RankingEntry{
		Rank:      rank + 1, // Convert 0-indexed to 1-indexed
		SubjectID: subjectID,
		Score:     score,
	}
	if name, err := nameCmd.Result(); err == nil {
		entry.Name = name
	}
	return entry, nil
}

// GetCount returns the number of subjects ranked for a watch
func (s *RankingStore) GetCount(ctx context.Context, watch string) (int64, error) {
	count, err := s.client.ZCard(ctx, rankingKey(watch)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// ResetWatch clears a watch's ranking
func (s *RankingStore) ResetWatch(ctx context.Context, watch string) error {
	if err := s.client.Del(ctx, rankingKey(watch)).Err(); err != nil {
		return fmt.Errorf("resetting ranking: %w", err)
	}
	return nil
}
