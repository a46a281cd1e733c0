package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// SnapshotStore keeps the history of every poll in PostgreSQL
type SnapshotStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSnapshotStore creates a new PostgreSQL snapshot store
func NewSnapshotStore(cfg *config.PostgresConfig, logger *slog.Logger) (*SnapshotStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &SnapshotStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (s *SnapshotStore) Close() {
	s.pool.Close()
}

// Ping checks the connection
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (s *SnapshotStore) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS watches (
			name VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			rank_by VARCHAR(64) NOT NULL,
			query TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id UUID PRIMARY KEY,
			watch VARCHAR(64) NOT NULL REFERENCES watches(name) ON DELETE CASCADE,
			kind VARCHAR(16) NOT NULL,
			subject_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			score DOUBLE PRECISION NOT NULL,
			payload JSONB,
			observed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_watch_observed ON snapshots(watch, observed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_subject_observed ON snapshots(subject_id, observed_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// UpsertWatch records a watch definition
func (s *SnapshotStore) UpsertWatch(ctx context.Context, w domain.Watch) error {
	query := `
		INSERT INTO watches (name, kind, rank_by, query)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name)
		DO UPDATE SET kind = $2, rank_by = $3, query = $4, updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.pool.Exec(ctx, query, w.Name, string(w.Kind), w.RankBy, w.Query)
	if err != nil {
		return fmt.Errorf("upserting watch: %w", err)
	}
	return nil
}

// RecordSnapshots inserts the snapshots of one poll in a single batch
func (s *SnapshotStore) RecordSnapshots(ctx context.Context, snapshots []domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO snapshots (id, watch, kind, subject_id, name, score, payload, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, snap := range snapshots {
		var payload []byte
		if len(snap.Payload) > 0 {
			payload = snap.Payload
		}
		batch.Queue(query,
			snap.ID.String(),
			snap.Watch,
			string(snap.Kind),
			snap.SubjectID,
			snap.Name,
			snap.Score,
			payload,
			snap.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("recording snapshots: %w", err)
		}
	}
	return nil
}

// LatestScores returns the snapshots of the most recent poll of a watch,
// without payloads. Used to rebuild rankings after a restart.
func (s *SnapshotStore) LatestScores(ctx context.Context, watch string) ([]domain.Snapshot, error) {
	query := `
		SELECT id, watch, kind, subject_id, name, score, NULL::jsonb, observed_at
		FROM snapshots
		WHERE watch = $1
		  AND observed_at = (SELECT MAX(observed_at) FROM snapshots WHERE watch = $1)
		ORDER BY score DESC
	`
	rows, err := s.pool.Query(ctx, query, watch)
	if err != nil {
		return nil, fmt.Errorf("getting latest scores: %w", err)
	}
	return collectSnapshots(rows)
}

// History returns a subject's snapshots across all watches, newest first
func (s *SnapshotStore) History(ctx context.Context, subjectID string, limit int) ([]domain.Snapshot, error) {
	query := `
		SELECT id, watch, kind, subject_id, name, score, payload, observed_at
		FROM snapshots
		WHERE subject_id = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	return collectSnapshots(rows)
}

// WatchExists checks if a watch has been recorded
func (s *SnapshotStore) WatchExists(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM watches WHERE name = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking watch existence: %w", err)
	}
	return exists, nil
}

func collectSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	snapshots, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}
	return snapshots, nil
}

func scanSnapshot(row pgx.CollectableRow) (domain.Snapshot, error) {
	var (
		snap    domain.Snapshot
		kind    string
		payload []byte
	)
	err := row.Scan(
		&snap.ID,
		&snap.Watch,
		&kind,
		&snap.SubjectID,
		&snap.Name,
		&snap.Score,
		&payload,
		&snap.ObservedAt,
	)
	if err != nil {
		return snap, err
	}
	snap.Kind = domain.WatchKind(kind)
	if len(payload) > 0 {
		snap.Payload = payload
	}
	return snap, nil
}
