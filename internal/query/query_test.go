package query

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/rumpus-tracker/internal/domain"
)

func TestPlayerSearchEncode(t *testing.T) {
	s, err := NewPlayerSearch().UserIDs("test", "someone", "m7n6j8")
	if err != nil {
		t.Fatalf("UserIDs: %v", err)
	}
	// set out of table order on purpose
	s = s.IncludeAliases(false).Sort(Ascending(PlayerSortCreatedAt))
	if s, err = s.Limit(13); err != nil {
		t.Fatalf("Limit: %v", err)
	}

	want := "userIds=test,someone,m7n6j8&sort=-createdAt&limit=13&includeAliases=false"
	if got := s.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestLevelSearchEncode(t *testing.T) {
	s := NewLevelSearch().IncludeRecords(true).Sort(Descending(LevelSortPlayTime))
	s, err := s.LevelIDs("best", "epic")
	if err != nil {
		t.Fatalf("LevelIDs: %v", err)
	}
	if s, err = s.Limit(14); err != nil {
		t.Fatalf("Limit: %v", err)
	}
	if s, err = s.UserIDs("test", "someone", "m7n6j8"); err != nil {
		t.Fatalf("UserIDs: %v", err)
	}

	want := "userIds=test,someone,m7n6j8&levelIds=best,epic&sort=PlayTime&limit=14&includeRecords=true"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEncodeOrdering(t *testing.T) {
	tests := []struct {
		name   string
		search PlayerSearch
		want   string
	}{
		{
			name:   "empty",
			search: NewPlayerSearch(),
			want:   "",
		},
		{
			name:   "zero value",
			search: PlayerSearch{},
			want:   "",
		},
		{
			name:   "tiebreaker last",
			search: NewPlayerSearch().TiebreakerItemID("abc").IncludeMyInteractions(true).MinSubscribers(5),
			want:   "minSubscribers=5&includeMyInteractions=true&tiebreakerItemId=abc",
		},
		{
			name:   "only tiebreaker",
			search: NewPlayerSearch().TiebreakerItemID("abc"),
			want:   "tiebreakerItemId=abc",
		},
		{
			name:   "overwrite",
			search: NewPlayerSearch().MaxPlayTime(10).MaxPlayTime(-3),
			want:   "maxPlayTime=-3",
		},
		{
			name:   "date escaped",
			search: NewPlayerSearch().MinCreatedAt("2020-01-01T00:00:00Z"),
			want:   "minCreatedAt=2020-01-01T00%3A00%3A00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.search.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	base := NewPlayerSearch().Limit
	if _, err := base(MaxLimit); err != nil {
		t.Errorf("Limit(%d): %v", MaxLimit, err)
	}

	s := NewPlayerSearch().IncludeAliases(true)
	got, err := s.Limit(MaxLimit + 1)
	var le *domain.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected *domain.LimitError, got %v", err)
	}
	if le.Value != 65 || le.Maximum != 64 {
		t.Errorf("unexpected limit error %+v", le)
	}
	if got.Encode() != s.Encode() {
		t.Errorf("failed setter changed the search: %q", got.Encode())
	}

	ids := make([]domain.Identifier, MaxIDs+1)
	for i := range ids {
		ids[i] = "u"
	}
	if _, err := NewLevelSearch().LevelIDs(ids...); !errors.As(err, &le) || le.Value != 17 || le.Maximum != 16 {
		t.Errorf("LevelIDs(17 ids) error = %v", err)
	}
	if _, err := NewPlayerSearch().UserIDs(ids[:MaxIDs]...); err != nil {
		t.Errorf("UserIDs(16 ids): %v", err)
	}
}

func TestLimitRange(t *testing.T) {
	s := NewLevelSearch()
	for n := uint(0); n <= MaxLimit; n++ {
		var err error
		if s, err = s.Limit(n); err != nil {
			t.Fatalf("Limit(%d): %v", n, err)
		}
		if got, _ := s.Get("limit"); got != strconv.Itoa(int(n)) {
			t.Fatalf("Get(limit) = %q, want %d", got, n)
		}
	}

	s, err := s.Limit(MaxLimit + 1)
	if err == nil {
		t.Fatal("Limit(65) succeeded")
	}
	if got, _ := s.Get("limit"); got != "64" {
		t.Errorf("Get(limit) after failed Limit(65) = %q, want 64", got)
	}
}

func TestLimitErrorReportsValue(t *testing.T) {
	var le *domain.LimitError

	_, err := NewPlayerSearch().Limit(math.MaxUint)
	if !errors.As(err, &le) {
		t.Fatalf("expected *domain.LimitError, got %v", err)
	}
	if le.Value != math.MaxUint || le.Maximum != MaxLimit {
		t.Errorf("unexpected limit error %+v", le)
	}

	_, err = NewPlayerSearch().Set("limit", "5000000000")
	if !errors.As(err, &le) {
		t.Fatalf("Set(limit, 5000000000) error = %v, want *domain.LimitError", err)
	}
	if le.Value != 5000000000 {
		t.Errorf("Value = %d, want 5000000000", le.Value)
	}
	if got, want := le.Error(), "limit: 5000000000 exceeds the maximum of 64"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIDListReplaced(t *testing.T) {
	s, _ := NewPlayerSearch().UserIDs("a", "b")
	s, _ = s.UserIDs("c")
	if got := s.Encode(); got != "userIds=c" {
		t.Errorf("Encode() = %q, want userIds=c", got)
	}
	s, _ = s.UserIDs()
	if got := s.Encode(); got != "" {
		t.Errorf("empty list should clear, got %q", got)
	}
}

func TestImmutability(t *testing.T) {
	base := NewPlayerSearch().MinSubscribers(1)
	a := base.MaxSubscribers(10)
	b := base.MaxSubscribers(20)

	if got := base.Encode(); got != "minSubscribers=1" {
		t.Errorf("base changed: %q", got)
	}
	if got := a.Encode(); got != "maxSubscribers=10&minSubscribers=1" {
		t.Errorf("a = %q", got)
	}
	if got := b.Encode(); got != "maxSubscribers=20&minSubscribers=1" {
		t.Errorf("b = %q", got)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		value   string
		want    string
		wantErr any
	}{
		{name: "stat", wire: "minPlayTime", value: "30", want: "minPlayTime=30"},
		{name: "bool", wire: "tower", value: "true", want: "tower=true"},
		{name: "ids", wire: "levelIds", value: "a, b ,c", want: "levelIds=a,b,c"},
		{name: "sort descending", wire: "sort", value: "HiddenGem", want: "sort=HiddenGem"},
		{name: "sort ascending", wire: "sort", value: "-Likes", want: "sort=-Likes"},
		{name: "text", wire: "tags", value: "a b", want: "tags=a+b"},
		{name: "unknown param", wire: "maxSubscribers", value: "1", wantErr: &ParamError{}},
		{name: "bad stat", wire: "minDiamonds", value: "lots", wantErr: &ParamError{}},
		{name: "bad bool", wire: "includeStats", value: "maybe", wantErr: &ParamError{}},
		{name: "bad sort", wire: "sort", value: "Subscribers", wantErr: &ParamError{}},
		{name: "limit too big", wire: "limit", value: "100", wantErr: &domain.LimitError{}},
		{name: "negative limit", wire: "limit", value: "-1", wantErr: &ParamError{}},
		{name: "limit beyond 32 bits", wire: "limit", value: "5000000000", wantErr: &domain.LimitError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewLevelSearch().Set(tt.wire, tt.value)
			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Set: %v", err)
				}
				if got := s.Encode(); got != tt.want {
					t.Errorf("Encode() = %q, want %q", got, tt.want)
				}
			case *ParamError:
				if !errors.As(err, &want) {
					t.Errorf("expected *ParamError, got %v", err)
				}
			case *domain.LimitError:
				if !errors.As(err, &want) {
					t.Errorf("expected *domain.LimitError, got %v", err)
				}
			}
		})
	}
}

func TestGet(t *testing.T) {
	s := NewLevelSearch().Tower(true)
	if v, ok := s.Get("tower"); !ok || v != "true" {
		t.Errorf("Get(tower) = %q, %v", v, ok)
	}
	if _, ok := s.Get("limit"); ok {
		t.Errorf("Get(limit) should be unset")
	}
}

func TestParsePlayerSearch(t *testing.T) {
	v := url.Values{}
	v.Add("userIds", "a")
	v.Add("userIds", "b")
	v.Set("sort", "-Subscribers")
	v.Set("limit", "5")

	s, err := ParsePlayerSearch(v)
	if err != nil {
		t.Fatalf("ParsePlayerSearch: %v", err)
	}
	if got, want := s.Encode(), "userIds=a,b&sort=-Subscribers&limit=5"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	if _, err := ParsePlayerParams(map[string]string{"nope": "1"}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
