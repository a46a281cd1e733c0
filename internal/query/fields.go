package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/rumpus-tracker/internal/domain"
)

// Hard limits enforced by the API.
const (
	MaxLimit = 64
	MaxIDs   = 16
)

type kind int

const (
	kindSort kind = iota
	kindLimit
	kindStat
	kindBool
	kindDate
	kindText
	kindIDList
)

// field describes one search parameter.
type field struct {
	wire  string
	kind  kind
	max   uint64
	last  bool
	sorts []string
}

// table lists an entity's parameters in encoding order.
type table []field

func (t table) lookup(wire string) (field, bool) {
	for _, f := range t {
		if f.wire == wire {
			return f, true
		}
	}
	return field{}, false
}

// names returns the wire names of the table's parameters.
func (t table) names() []string {
	out := make([]string, len(t))
	for i, f := range t {
		out[i] = f.wire
	}
	return out
}

var playerFields = table{
	{wire: "userIds", kind: kindIDList, max: MaxIDs},
	{wire: "sort", kind: kindSort, sorts: playerSortProperties},
	{wire: "limit", kind: kindLimit, max: MaxLimit},
	{wire: "maxSubscribers", kind: kindStat},
	{wire: "minSubscribers", kind: kindStat},
	{wire: "maxPlayTime", kind: kindStat},
	{wire: "minPlayTime", kind: kindStat},
	{wire: "minCreatedAt", kind: kindDate},
	{wire: "maxCreatedAt", kind: kindDate},
	{wire: "minUpdatedAt", kind: kindDate},
	{wire: "maxUpdatedAt", kind: kindDate},
	{wire: "includeAliases", kind: kindBool},
	{wire: "includeMyInteractions", kind: kindBool},
	{wire: "tiebreakerItemId", kind: kindText, last: true},
}

var levelFields = table{
	{wire: "userIds", kind: kindIDList, max: MaxIDs},
	{wire: "levelIds", kind: kindIDList, max: MaxIDs},
	{wire: "sort", kind: kindSort, sorts: levelSortProperties},
	{wire: "limit", kind: kindLimit, max: MaxLimit},
	{wire: "tags", kind: kindText},
	{wire: "tower", kind: kindBool},
	{wire: "marketing", kind: kindBool},
	{wire: "dailyBuild", kind: kindBool},
	{wire: "minCreatedAt", kind: kindDate},
	{wire: "maxCreatedAt", kind: kindDate},
	{wire: "minPlayTime", kind: kindStat},
	{wire: "maxPlayTime", kind: kindStat},
	{wire: "minExposureBucks", kind: kindStat},
	{wire: "maxExposureBucks", kind: kindStat},
	{wire: "minReplayValue", kind: kindStat},
	{wire: "maxReplayValue", kind: kindStat},
	{wire: "minHiddenGem", kind: kindStat},
	{wire: "maxHiddenGem", kind: kindStat},
	{wire: "diamonds", kind: kindBool},
	{wire: "minDiamonds", kind: kindStat},
	{wire: "maxDiamonds", kind: kindStat},
	{wire: "minSecondsAgo", kind: kindStat},
	{wire: "maxSecondsAgo", kind: kindStat},
	{wire: "includeAliases", kind: kindBool},
	{wire: "includeMyInteractions", kind: kindBool},
	{wire: "includeStats", kind: kindBool},
	{wire: "includeRecords", kind: kindBool},
	{wire: "includeBeta", kind: kindBool},
	{wire: "tiebreakerItemId", kind: kindText, last: true},
}

// PlayerParams returns the wire names accepted by PlayerSearch.Set.
func PlayerParams() []string { return playerFields.names() }

// LevelParams returns the wire names accepted by LevelSearch.Set.
func LevelParams() []string { return levelFields.names() }

type param struct {
	wire  string
	value string
}

// params holds encoded values in the order they were set. It is never
// mutated in place, so builders sharing one are unaffected by each other.
type params []param

func (p params) get(wire string) (string, bool) {
	for _, x := range p {
		if x.wire == wire {
			return x.value, true
		}
	}
	return "", false
}

func (p params) with(wire, value string) params {
	out := make(params, 0, len(p)+1)
	for _, x := range p {
		if x.wire != wire {
			out = append(out, x)
		}
	}
	return append(out, param{wire: wire, value: value})
}

func (p params) without(wire string) params {
	out := make(params, 0, len(p))
	for _, x := range p {
		if x.wire != wire {
			out = append(out, x)
		}
	}
	return out
}

func encodeStat(v domain.Stat) string {
	return strconv.FormatInt(int64(v), 10)
}

func encodeBool(v bool) string {
	return strconv.FormatBool(v)
}

func encodeText(v string) string {
	return url.QueryEscape(v)
}

func checkLimit(wire string, n, maximum uint64) error {
	if n > maximum {
		return &domain.LimitError{Param: wire, Value: n, Maximum: maximum}
	}
	return nil
}

// setIDs replaces an id list. An empty list clears the parameter.
func setIDs(p params, wire string, ids []domain.Identifier) (params, error) {
	if err := checkLimit(wire, uint64(len(ids)), MaxIDs); err != nil {
		return p, err
	}
	if len(ids) == 0 {
		return p.without(wire), nil
	}
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = encodeText(id)
	}
	return p.with(wire, strings.Join(escaped, ",")), nil
}

func setLimit(p params, n uint64) (params, error) {
	if err := checkLimit("limit", n, MaxLimit); err != nil {
		return p, err
	}
	return p.with("limit", strconv.FormatUint(n, 10)), nil
}

// apply parses value according to the field named wire and stores it.
func (t table) apply(p params, wire, value string) (params, error) {
	f, ok := t.lookup(wire)
	if !ok {
		return p, &ParamError{Param: wire, Value: value, Reason: "unknown parameter"}
	}

	switch f.kind {
	case kindIDList:
		var ids []string
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return setIDs(p, wire, ids)
	case kindLimit:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return p, &ParamError{Param: wire, Value: value, Reason: "not a non-negative integer"}
		}
		return setLimit(p, n)
	case kindStat:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return p, &ParamError{Param: wire, Value: value, Reason: "not an integer"}
		}
		return p.with(wire, encodeStat(domain.Stat(n))), nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return p, &ParamError{Param: wire, Value: value, Reason: "not a boolean"}
		}
		return p.with(wire, encodeBool(b)), nil
	case kindSort:
		if !slices.Contains(f.sorts, strings.TrimPrefix(value, "-")) {
			return p, &ParamError{Param: wire, Value: value, Reason: "unknown sort property"}
		}
		return p.with(wire, value), nil
	default:
		return p.with(wire, encodeText(value)), nil
	}
}

// encode renders p in table order: id lists first, then the other
// parameters, then those flagged last.
func (t table) encode(p params) string {
	var b strings.Builder
	emit := func(match func(field) bool) {
		for _, f := range t {
			if !match(f) {
				continue
			}
			v, ok := p.get(f.wire)
			if !ok {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(f.wire)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}

	emit(func(f field) bool { return f.kind == kindIDList })
	emit(func(f field) bool { return f.kind != kindIDList && !f.last })
	emit(func(f field) bool { return f.last })
	return b.String()
}
