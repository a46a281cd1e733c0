package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const playersFixture = `{
  "data": [
    {
      "_id": "5f9d1c",
      "userId": "0ihetl",
      "createdAt": "2020-10-31T12:00:00.000Z",
      "updatedAt": "2021-01-04T08:30:00.000Z",
      "alias": {"userId": "0ihetl", "context": "levelhead", "alias": "Shoeless"},
      "stats": {"Subscribers": 12, "PlayTime": 3600, "Crowns": 4, "Shoes": -1, "NumFollowing": 3, "Wins": 9}
    },
    {
      "_id": "5f9d1d",
      "userId": "8mbjmz",
      "createdAt": "2020-11-01T00:00:00.000Z",
      "updatedAt": "2020-11-02T00:00:00.000Z",
      "interactions": {"following": true},
      "stats": {"Subscribers": 0, "PlayTime": 0, "Crowns": -1, "Shoes": -1, "NumFollowing": 0, "DBComp": 3, "ChalWins": 2, "CampaignProg": 45}
    },
    {
      "_id": "5f9d1e",
      "userId": "pg11x1",
      "createdAt": "2020-11-01T00:00:00.000Z",
      "updatedAt": "2020-11-02T00:00:00.000Z",
      "alias": {"userId": "pg11x1", "anonymous": true, "alias": null},
      "stats": {"Subscribers": 1, "PlayTime": 2, "Crowns": 0, "Shoes": 0, "NumFollowing": 0}
    }
  ]
}`

func TestDecodePlayers(t *testing.T) {
	env, err := DecodePlayers([]byte(playersFixture))
	if err != nil {
		t.Fatalf("DecodePlayers: %v", err)
	}
	if env.Data == nil || len(*env.Data) != 3 {
		t.Fatalf("expected 3 players, got %+v", env.Data)
	}
	players := *env.Data

	t.Run("negative shoes", func(t *testing.T) {
		p := players[0]
		if p.Stats.Shoes != -1 {
			t.Errorf("Shoes = %d, want -1", p.Stats.Shoes)
		}
		if p.Stats.Published != 0 || p.Stats.Wins != 9 {
			t.Errorf("unexpected defaults: %+v", p.Stats)
		}
		if p.Stats.DBComp != nil || p.Stats.AchPoints != nil {
			t.Errorf("optional counters should be absent: %+v", p.Stats)
		}
		if p.Alias == nil || p.Alias.AliasType == nil || *p.Alias.AliasType != AliasLevelhead {
			t.Errorf("unexpected alias: %+v", p.Alias)
		}
		if p.DisplayName() != "Shoeless" {
			t.Errorf("DisplayName = %q", p.DisplayName())
		}
		if p.Interactions != nil {
			t.Errorf("interactions should be absent")
		}
	})

	t.Run("negative crowns and optional counter", func(t *testing.T) {
		s := players[1].Stats
		if s.Crowns != -1 || s.Shoes != -1 {
			t.Errorf("Crowns/Shoes = %d/%d, want -1/-1", s.Crowns, s.Shoes)
		}
		if s.DBComp == nil || *s.DBComp != 3 {
			t.Errorf("DBComp = %v, want 3", s.DBComp)
		}
		if s.TowerTrials != 2 {
			t.Errorf("TowerTrials = %d, want 2", s.TowerTrials)
		}
		if s.CampaignProgress != 45 {
			t.Errorf("CampaignProgress = %d, want 45", s.CampaignProgress)
		}
		if players[1].Interactions == nil || !players[1].Interactions.Following {
			t.Errorf("expected following interaction")
		}
	})

	t.Run("anonymous alias", func(t *testing.T) {
		a := players[2].Alias
		if a == nil {
			t.Fatal("expected alias")
		}
		if a.AliasType != nil || a.Alias != nil {
			t.Errorf("expected no context and no alias, got %+v", a)
		}
		if a.Anonymous == nil || !*a.Anonymous {
			t.Errorf("expected anonymous=true")
		}
		if players[2].DisplayName() != "pg11x1" {
			t.Errorf("DisplayName = %q", players[2].DisplayName())
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{
			name: "missing required stat",
			body: `{"data":[{"_id":"a","userId":"b","createdAt":"c","updatedAt":"d","stats":{"Subscribers":1,"PlayTime":1,"Crowns":1,"NumFollowing":1}}]}`,
			path: "data[0].stats.Shoes",
		},
		{
			name: "null required field",
			body: `{"data":[{"_id":null,"userId":"b","createdAt":"c","updatedAt":"d","stats":{}}]}`,
			path: "data[0]._id",
		},
		{
			name: "fractional counter",
			body: `{"data":[{"_id":"a","userId":"b","createdAt":"c","updatedAt":"d","stats":{"Subscribers":1.5,"PlayTime":1,"Crowns":1,"Shoes":1,"NumFollowing":1}}]}`,
			path: "data[0].stats.Subscribers",
		},
		{
			name: "wrong type",
			body: `{"data":[{"_id":"a","userId":7,"createdAt":"c","updatedAt":"d","stats":{}}]}`,
			path: "data[0].userId",
		},
		{
			name: "unknown alias context",
			body: `{"data":[{"_id":"a","userId":"b","createdAt":"c","updatedAt":"d","alias":{"userId":"b","context":"bscotch"},"stats":{"Subscribers":1,"PlayTime":1,"Crowns":1,"Shoes":1,"NumFollowing":1}}]}`,
			path: "data[0].alias.context",
		},
		{
			name: "percent out of range",
			body: `{"data":[{"_id":"a","userId":"b","createdAt":"c","updatedAt":"d","stats":{"Subscribers":1,"PlayTime":1,"Crowns":1,"Shoes":1,"NumFollowing":1,"CampaignProg":140}}]}`,
			path: "data[0].stats.CampaignProg",
		},
		{
			name: "data not an array",
			body: `{"data":{}}`,
			path: "data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePlayers([]byte(tt.body))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if de.Path != tt.path {
				t.Errorf("Path = %q, want %q (%v)", de.Path, tt.path, err)
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := DecodeLevels([]byte(`{"data": [}`))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Offset == 0 {
		t.Errorf("expected a byte offset, got %+v", de)
	}
	if de.Cause == nil {
		t.Errorf("expected the syntax error as cause")
	}
}

func TestDecodeErrorEnvelope(t *testing.T) {
	env, err := DecodePlayers([]byte(`{"message":"Invalid delegation key","location":"/api/levelhead/players"}`))
	if err != nil {
		t.Fatalf("DecodePlayers: %v", err)
	}
	if env.Data != nil {
		t.Errorf("expected no data")
	}
	if env.Message == nil || *env.Message != "Invalid delegation key" {
		t.Errorf("unexpected message %v", env.Message)
	}
}

func TestDecodeLevels(t *testing.T) {
	body := `{"data":[{
		"_id":"x","levelId":"lvl01","userId":"u1","title":"Jump","locale":"en","localeId":1,
		"createdAt":"2021-01-01","updatedAt":"2021-01-02","tower":true,"dailyBuild":false,
		"requiredPlayers":1,"creatorTime":12.5,"tags":["t1"],"tagNames":["Hard"],
		"content":{"World":3},
		"stats":{"Attempts":10,"ClearRate":0.25},
		"records":{"HighScore":[{"userId":"u2","value":900,"createdAt":"2021-01-03"}]},
		"interactions":{"liked":true}
	}]}`

	env, err := DecodeLevels([]byte(body))
	if err != nil {
		t.Fatalf("DecodeLevels: %v", err)
	}
	l := (*env.Data)[0]
	if l.Content.World != 3 || l.Content.Secrets != 0 {
		t.Errorf("unexpected content %+v", l.Content)
	}
	if l.Stats == nil || l.Stats.Attempts != 10 || l.Stats.Likes != 0 || l.Stats.ClearRate != 0.25 {
		t.Errorf("unexpected stats %+v", l.Stats)
	}
	if l.Records == nil || len(l.Records.HighScore) != 1 || l.Records.FastestTime == nil || len(l.Records.FastestTime) != 0 {
		t.Errorf("unexpected records %+v", l.Records)
	}
	if !l.Interactions.Liked || l.Interactions.Bookmarked {
		t.Errorf("unexpected interactions %+v", l.Interactions)
	}
	if v, ok := l.Stats.Metric("ClearRate"); !ok || v != 0.25 {
		t.Errorf("Metric(ClearRate) = %v, %v", v, ok)
	}
	if v, ok := l.Stats.Counter("Attempts"); !ok || v != 10 {
		t.Errorf("Counter(Attempts) = %v, %v", v, ok)
	}
}

func TestLevelInteractionsDefault(t *testing.T) {
	body := `{"data":[{
		"_id":"x","levelId":"lvl01","userId":"u1","title":"Jump","locale":"en","localeId":1,
		"createdAt":"2021-01-01","updatedAt":"2021-01-02","tower":false,"dailyBuild":false,
		"requiredPlayers":1,"creatorTime":1,"tags":[],"tagNames":[],"content":{}
	}]}`

	env, err := DecodeLevels([]byte(body))
	if err != nil {
		t.Fatalf("DecodeLevels: %v", err)
	}
	l := (*env.Data)[0]
	if l.Interactions != (LevelInteractions{}) {
		t.Errorf("expected all-false interactions, got %+v", l.Interactions)
	}
	if l.Stats != nil || l.Records != nil {
		t.Errorf("expected stats and records to be absent")
	}
}

func TestDecodeDelegationKey(t *testing.T) {
	env, err := DecodeDelegationKey([]byte(`{"data":{"userId":"abc123","passId":"p1","permissions":["read:levels"]}}`))
	if err != nil {
		t.Fatalf("DecodeDelegationKey: %v", err)
	}
	want := DelegationKeyInfo{UserID: "abc123", PassID: "p1", Permissions: []string{"read:levels"}}
	if !reflect.DeepEqual(*env.Data, want) {
		t.Errorf("got %+v, want %+v", *env.Data, want)
	}
}

func TestPlayerRoundTrip(t *testing.T) {
	env, err := DecodePlayers([]byte(playersFixture))
	if err != nil {
		t.Fatalf("DecodePlayers: %v", err)
	}

	for _, p := range *env.Data {
		t.Run(p.UserID, func(t *testing.T) {
			b, err := json.Marshal(p)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got Player
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, p) {
				t.Errorf("round trip changed player:\n got %+v\nwant %+v", got, p)
			}
		})
	}
}

func TestPlayerStatsCounter(t *testing.T) {
	s := PlayerStats{Shoes: -2, TowerTrials: 5, CampaignProgress: 80}

	tests := []struct {
		wire string
		want Stat
		ok   bool
	}{
		{"Shoes", -2, true},
		{"ChalWins", 5, true},
		{"CampaignProg", 80, true},
		{"DBComp", 0, false},
		{"Nope", 0, false},
	}
	for _, tt := range tests {
		got, ok := s.Counter(tt.wire)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Counter(%q) = %d, %v; want %d, %v", tt.wire, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlayerStatsDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PlayerStats
	}{
		{
			name: "required only",
			body: `{"Subscribers":4,"NumFollowing":2,"Crowns":1,"Shoes":3,"PlayTime":600}`,
			want: PlayerStats{Subscribers: 4, NumFollowing: 2, Crowns: 1, Shoes: 3, PlayTime: 600},
		},
		{
			name: "negative published",
			body: `{"Subscribers":0,"NumFollowing":0,"Crowns":0,"Shoes":0,"PlayTime":0,"Published":-1}`,
			want: PlayerStats{Published: -1},
		},
		{
			name: "every counter present",
			body: `{"Subscribers":1,"NumFollowing":2,"Crowns":-2,"Shoes":-1,"PlayTime":5,"Published":6,"Plays":7,` +
				`"LevelsPlayed":8,"Wins":9,"Fails":10,"ChalWins":11,"TimeTrophies":12,"FaveGen":13,"LikeGen":14,` +
				`"BucksTipped":15,"TipsGotten":16,"CampaignProg":100}`,
			want: PlayerStats{
				Subscribers: 1, NumFollowing: 2, Crowns: -2, Shoes: -1, PlayTime: 5, Published: 6, Plays: 7,
				LevelsPlayed: 8, Wins: 9, Fails: 10, TowerTrials: 11, TimeTrophies: 12, FaveGen: 13, LikeGen: 14,
				BucksTipped: 15, TipsGotten: 16, CampaignProgress: 100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PlayerStats
			if err := json.Unmarshal([]byte(tt.body), &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decoded %+v, want %+v", got, tt.want)
			}
		})
	}
}
