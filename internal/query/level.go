package query

import (
	"github.com/rumpus-tracker/internal/domain"
)

// LevelSearch builds a level search. Like PlayerSearch it is an immutable
// value and its zero value is an empty search.
type LevelSearch struct {
	values params
}

// NewLevelSearch returns an empty level search.
func NewLevelSearch() LevelSearch {
	return LevelSearch{}
}

func (s LevelSearch) with(wire, value string) LevelSearch {
	return LevelSearch{values: s.values.with(wire, value)}
}

func (s LevelSearch) ids(wire string, ids []domain.Identifier) (LevelSearch, error) {
	values, err := setIDs(s.values, wire, ids)
	if err != nil {
		return s, err
	}
	return LevelSearch{values: values}, nil
}

// UserIDs restricts results to levels created by these users.
func (s LevelSearch) UserIDs(ids ...domain.Identifier) (LevelSearch, error) {
	return s.ids("userIds", ids)
}

// LevelIDs restricts results to these levels.
func (s LevelSearch) LevelIDs(ids ...domain.Identifier) (LevelSearch, error) {
	return s.ids("levelIds", ids)
}

func (s LevelSearch) Sort(sort Sort[LevelSortProperty]) LevelSearch {
	return s.with("sort", sort.String())
}

// Limit caps the number of results at most MaxLimit.
func (s LevelSearch) Limit(n uint) (LevelSearch, error) {
	values, err := setLimit(s.values, uint64(n))
	if err != nil {
		return s, err
	}
	return LevelSearch{values: values}, nil
}

// Tags restricts results to levels with these comma-separated tag ids.
func (s LevelSearch) Tags(tags string) LevelSearch {
	return s.with("tags", encodeText(tags))
}

func (s LevelSearch) Tower(v bool) LevelSearch {
	return s.with("tower", encodeBool(v))
}

func (s LevelSearch) Marketing(v bool) LevelSearch {
	return s.with("marketing", encodeBool(v))
}

func (s LevelSearch) DailyBuild(v bool) LevelSearch {
	return s.with("dailyBuild", encodeBool(v))
}

func (s LevelSearch) MinCreatedAt(d domain.DateString) LevelSearch {
	return s.with("minCreatedAt", encodeText(d))
}

func (s LevelSearch) MaxCreatedAt(d domain.DateString) LevelSearch {
	return s.with("maxCreatedAt", encodeText(d))
}

func (s LevelSearch) MinPlayTime(v domain.Stat) LevelSearch {
	return s.with("minPlayTime", encodeStat(v))
}

func (s LevelSearch) MaxPlayTime(v domain.Stat) LevelSearch {
	return s.with("maxPlayTime", encodeStat(v))
}

func (s LevelSearch) MinExposureBucks(v domain.Stat) LevelSearch {
	return s.with("minExposureBucks", encodeStat(v))
}

func (s LevelSearch) MaxExposureBucks(v domain.Stat) LevelSearch {
	return s.with("maxExposureBucks", encodeStat(v))
}

func (s LevelSearch) MinReplayValue(v domain.Stat) LevelSearch {
	return s.with("minReplayValue", encodeStat(v))
}

func (s LevelSearch) MaxReplayValue(v domain.Stat) LevelSearch {
	return s.with("maxReplayValue", encodeStat(v))
}

func (s LevelSearch) MinHiddenGem(v domain.Stat) LevelSearch {
	return s.with("minHiddenGem", encodeStat(v))
}

func (s LevelSearch) MaxHiddenGem(v domain.Stat) LevelSearch {
	return s.with("maxHiddenGem", encodeStat(v))
}

// Diamonds restricts results to levels that do (or do not) award diamonds.
func (s LevelSearch) Diamonds(v bool) LevelSearch {
	return s.with("diamonds", encodeBool(v))
}

// MinDiamonds is passed through unchecked; the API expects 0..6.
func (s LevelSearch) MinDiamonds(v domain.Stat) LevelSearch {
	return s.with("minDiamonds", encodeStat(v))
}

func (s LevelSearch) MaxDiamonds(v domain.Stat) LevelSearch {
	return s.with("maxDiamonds", encodeStat(v))
}

// MinSecondsAgo limits results to levels published at least v seconds ago.
func (s LevelSearch) MinSecondsAgo(v domain.Stat) LevelSearch {
	return s.with("minSecondsAgo", encodeStat(v))
}

func (s LevelSearch) MaxSecondsAgo(v domain.Stat) LevelSearch {
	return s.with("maxSecondsAgo", encodeStat(v))
}

func (s LevelSearch) IncludeAliases(v bool) LevelSearch {
	return s.with("includeAliases", encodeBool(v))
}

func (s LevelSearch) IncludeMyInteractions(v bool) LevelSearch {
	return s.with("includeMyInteractions", encodeBool(v))
}

func (s LevelSearch) IncludeStats(v bool) LevelSearch {
	return s.with("includeStats", encodeBool(v))
}

func (s LevelSearch) IncludeRecords(v bool) LevelSearch {
	return s.with("includeRecords", encodeBool(v))
}

// IncludeBeta adds levels only published to the beta build.
func (s LevelSearch) IncludeBeta(v bool) LevelSearch {
	return s.with("includeBeta", encodeBool(v))
}

func (s LevelSearch) TiebreakerItemID(id domain.Identifier) LevelSearch {
	return s.with("tiebreakerItemId", encodeText(id))
}

// Set applies a parameter by wire name. See PlayerSearch.Set.
func (s LevelSearch) Set(wire, value string) (LevelSearch, error) {
	values, err := levelFields.apply(s.values, wire, value)
	if err != nil {
		return s, err
	}
	return LevelSearch{values: values}, nil
}

// Get returns the encoded value of a parameter, if set.
func (s LevelSearch) Get(wire string) (string, bool) {
	return s.values.get(wire)
}

// Encode returns the query string, without a leading "?".
func (s LevelSearch) Encode() string {
	return levelFields.encode(s.values)
}

func (s LevelSearch) String() string {
	return s.Encode()
}
