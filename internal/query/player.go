package query

import (
	"github.com/rumpus-tracker/internal/domain"
)

// PlayerSearch builds a player search. It is an immutable value: every
// setter returns a new search and leaves the receiver untouched. The zero
// value is an empty search.
type PlayerSearch struct {
	values params
}

// NewPlayerSearch returns an empty player search.
func NewPlayerSearch() PlayerSearch {
	return PlayerSearch{}
}

func (s PlayerSearch) with(wire, value string) PlayerSearch {
	return PlayerSearch{values: s.values.with(wire, value)}
}

// UserIDs restricts results to these users, replacing any earlier list. At
// most MaxIDs ids are accepted. An empty list removes the filter.
func (s PlayerSearch) UserIDs(ids ...domain.Identifier) (PlayerSearch, error) {
	values, err := setIDs(s.values, "userIds", ids)
	if err != nil {
		return s, err
	}
	return PlayerSearch{values: values}, nil
}

// Sort sets the result order.
func (s PlayerSearch) Sort(sort Sort[PlayerSortProperty]) PlayerSearch {
	return s.with("sort", sort.String())
}

// Limit caps the number of results. The API refuses more than MaxLimit;
// callers page with TiebreakerItemID for more.
func (s PlayerSearch) Limit(n uint) (PlayerSearch, error) {
	values, err := setLimit(s.values, uint64(n))
	if err != nil {
		return s, err
	}
	return PlayerSearch{values: values}, nil
}

func (s PlayerSearch) MaxSubscribers(v domain.Stat) PlayerSearch {
	return s.with("maxSubscribers", encodeStat(v))
}

func (s PlayerSearch) MinSubscribers(v domain.Stat) PlayerSearch {
	return s.with("minSubscribers", encodeStat(v))
}

// MaxPlayTime limits results to players with at most v seconds of playtime.
func (s PlayerSearch) MaxPlayTime(v domain.Stat) PlayerSearch {
	return s.with("maxPlayTime", encodeStat(v))
}

// MinPlayTime limits results to players with at least v seconds of playtime.
func (s PlayerSearch) MinPlayTime(v domain.Stat) PlayerSearch {
	return s.with("minPlayTime", encodeStat(v))
}

func (s PlayerSearch) MinCreatedAt(d domain.DateString) PlayerSearch {
	return s.with("minCreatedAt", encodeText(d))
}

func (s PlayerSearch) MaxCreatedAt(d domain.DateString) PlayerSearch {
	return s.with("maxCreatedAt", encodeText(d))
}

func (s PlayerSearch) MinUpdatedAt(d domain.DateString) PlayerSearch {
	return s.with("minUpdatedAt", encodeText(d))
}

func (s PlayerSearch) MaxUpdatedAt(d domain.DateString) PlayerSearch {
	return s.with("maxUpdatedAt", encodeText(d))
}

// IncludeAliases adds each player's alias to the results.
func (s PlayerSearch) IncludeAliases(v bool) PlayerSearch {
	return s.with("includeAliases", encodeBool(v))
}

// IncludeMyInteractions adds the key owner's interactions with each player.
func (s PlayerSearch) IncludeMyInteractions(v bool) PlayerSearch {
	return s.with("includeMyInteractions", encodeBool(v))
}

// TiebreakerItemID resumes a sorted search after the result with this _id.
func (s PlayerSearch) TiebreakerItemID(id domain.Identifier) PlayerSearch {
	return s.with("tiebreakerItemId", encodeText(id))
}

// Set applies a parameter by wire name, parsing value as that parameter's
// type. It fails with *ParamError or *domain.LimitError and then returns the
// receiver unchanged.
func (s PlayerSearch) Set(wire, value string) (PlayerSearch, error) {
	values, err := playerFields.apply(s.values, wire, value)
	if err != nil {
		return s, err
	}
	return PlayerSearch{values: values}, nil
}

// Get returns the encoded value of a parameter, if set.
func (s PlayerSearch) Get(wire string) (string, bool) {
	return s.values.get(wire)
}

// Encode returns the query string, without a leading "?".
func (s PlayerSearch) Encode() string {
	return playerFields.encode(s.values)
}

func (s PlayerSearch) String() string {
	return s.Encode()
}
