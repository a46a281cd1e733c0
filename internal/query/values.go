package query

import (
	"net/url"
	"slices"
	"strings"
)

// ParsePlayerSearch builds a player search from URL query values using the
// generic setter. Repeated keys are joined with ",".
func ParsePlayerSearch(v url.Values) (PlayerSearch, error) {
	s := NewPlayerSearch()
	for _, key := range sortedKeys(v) {
		var err error
		if s, err = s.Set(key, strings.Join(v[key], ",")); err != nil {
			return PlayerSearch{}, err
		}
	}
	return s, nil
}

// ParseLevelSearch builds a level search from URL query values.
func ParseLevelSearch(v url.Values) (LevelSearch, error) {
	s := NewLevelSearch()
	for _, key := range sortedKeys(v) {
		var err error
		if s, err = s.Set(key, strings.Join(v[key], ",")); err != nil {
			return LevelSearch{}, err
		}
	}
	return s, nil
}

// ParsePlayerParams is ParsePlayerSearch for a plain name/value map.
func ParsePlayerParams(m map[string]string) (PlayerSearch, error) {
	return ParsePlayerSearch(toValues(m))
}

// ParseLevelParams is ParseLevelSearch for a plain name/value map.
func ParseLevelParams(m map[string]string) (LevelSearch, error) {
	return ParseLevelSearch(toValues(m))
}

func toValues(m map[string]string) url.Values {
	v := make(url.Values, len(m))
	for key, value := range m {
		v.Set(key, value)
	}
	return v
}

// sortedKeys makes the first reported error deterministic.
func sortedKeys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
