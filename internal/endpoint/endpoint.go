// Package endpoint pairs each API path with the decoder for its response.
package endpoint

import (
	"github.com/rumpus-tracker/internal/domain"
	"github.com/rumpus-tracker/internal/query"
)

// Endpoint is a resolved API request: a path relative to the API base URL
// and the decoder for the response body.
type Endpoint[D any] struct {
	// Name labels the endpoint in logs and metrics
	Name   string
	Path   string
	Decode func(body []byte) (*domain.Envelope[D], error)
}

// DelegationKey describes the key the request is made with.
func DelegationKey() Endpoint[domain.DelegationKeyInfo] {
	return Endpoint[domain.DelegationKeyInfo]{
		Name:   "delegation_key",
		Path:   "delegation/keys/@this",
		Decode: domain.DecodeDelegationKey,
	}
}

// Players searches players. The path keeps its "?" even for an empty search.
func Players(q query.PlayerSearch) Endpoint[[]domain.Player] {
	return Endpoint[[]domain.Player]{
		Name:   "players",
		Path:   "levelhead/players?" + q.Encode(),
		Decode: domain.DecodePlayers,
	}
}

// Levels searches levels.
func Levels(q query.LevelSearch) Endpoint[[]domain.Level] {
	return Endpoint[[]domain.Level]{
		Name:   "levels",
		Path:   "levelhead/levels?" + q.Encode(),
		Decode: domain.DecodeLevels,
	}
}
