package endpoint

import (
	"testing"

	"github.com/rumpus-tracker/internal/query"
)

func TestPaths(t *testing.T) {
	players, _ := query.NewPlayerSearch().Limit(13)
	levels := query.NewLevelSearch().IncludeStats(true)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"delegation key", DelegationKey().Path, "delegation/keys/@this"},
		{"players", Players(players).Path, "levelhead/players?limit=13"},
		{"empty players", Players(query.NewPlayerSearch()).Path, "levelhead/players?"},
		{"levels", Levels(levels).Path, "levelhead/levels?includeStats=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Path = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDecodeWired(t *testing.T) {
	env, err := Levels(query.NewLevelSearch()).Decode([]byte(`{"data":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Data == nil || len(*env.Data) != 0 {
		t.Errorf("expected empty level list, got %v", env.Data)
	}

	key, err := DelegationKey().Decode([]byte(`{"data":{"userId":"u","passId":"p","permissions":[]}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if key.Data.UserID != "u" {
		t.Errorf("UserID = %q", key.Data.UserID)
	}
}
