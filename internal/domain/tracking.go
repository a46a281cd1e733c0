package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WatchKind is the entity a watch searches for
type WatchKind string

const (
	WatchKindPlayers WatchKind = "players"
	WatchKindLevels  WatchKind = "levels"
)

// ParseWatchKind validates a configured watch kind
func ParseWatchKind(s string) (WatchKind, error) {
	switch k := WatchKind(s); k {
	case WatchKindPlayers, WatchKindLevels:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown watch kind %q", ErrInvalidRequest, s)
}

// Watch is a named search that is polled periodically and ranked by one stat
type Watch struct {
	Name   string            `json:"name"`
	Kind   WatchKind         `json:"kind"`
	RankBy string            `json:"rank_by"`
	Params map[string]string `json:"params,omitempty"`
	// Query is the encoded search, filled in once the params are compiled
	Query string `json:"query"`
}

// Snapshot is one subject's stat as observed by one poll
type Snapshot struct {
	ID         uuid.UUID       `json:"id"`
	Watch      string          `json:"watch"`
	Kind       WatchKind       `json:"kind"`
	SubjectID  string          `json:"subject_id"`
	Name       string          `json:"name"`
	Score      float64         `json:"score"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
}

// RankingEntry represents a single entry in a watch ranking
type RankingEntry struct {
	Rank      int64   `json:"rank"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
	Name      string  `json:"name,omitempty"`
}

// PollEvent is published after every successful poll
type PollEvent struct {
	Watch      string         `json:"watch"`
	Kind       WatchKind      `json:"kind"`
	Query      string         `json:"query"`
	Subjects   int            `json:"subjects"`
	Top        []RankingEntry `json:"top,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}

// PollRequest asks the tracker to poll a watch out of schedule
type PollRequest struct {
	Watch       string    `json:"watch"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PollResult summarizes a completed poll
type PollResult struct {
	Watch      string    `json:"watch"`
	Subjects   int       `json:"subjects"`
	Duration   string    `json:"duration"`
	ObservedAt time.Time `json:"observed_at"`
}

// WatchStats contains statistics about a watch ranking
type WatchStats struct {
	Watch         string  `json:"watch"`
	TotalSubjects int64   `json:"total_subjects"`
	TopScore      float64 `json:"top_score,omitempty"`
}
