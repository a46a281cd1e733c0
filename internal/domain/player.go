package domain

import (
	"fmt"
)

// AliasType says which naming context an alias belongs to.
type AliasType string

const (
	// AliasLevelhead is the alias shown in game.
	AliasLevelhead AliasType = "levelhead"
	// AliasLevelheadSafe is the alias shown to players with restricted chat.
	AliasLevelheadSafe AliasType = "levelhead-safe"
)

// ParseAliasType maps a wire value onto a known AliasType.
func ParseAliasType(s string) (AliasType, error) {
	switch t := AliasType(s); t {
	case AliasLevelhead, AliasLevelheadSafe:
		return t, nil
	}
	return "", fmt.Errorf("unknown alias context %q", s)
}

// Alias is a user's public display name.
type Alias struct {
	UserID    Identifier `json:"userId"`
	AliasType *AliasType `json:"context,omitempty"`
	Alias     *string    `json:"alias,omitempty"`
	// Anonymous is set on deleted or anonymized accounts, which carry no alias
	Anonymous *bool `json:"anonymous,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Alias) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodeAlias, a)
}

func decodeAlias(o object) (Alias, error) {
	var a Alias
	if err := o.str("userId", &a.UserID); err != nil {
		return a, err
	}
	if n := o.get("context"); n.present() {
		s, err := n.str()
		if err != nil {
			return a, err
		}
		t, err := ParseAliasType(s)
		if err != nil {
			return a, n.fail("%v", err)
		}
		a.AliasType = &t
	}
	if err := o.optStr("alias", &a.Alias); err != nil {
		return a, err
	}
	if err := o.optBool("anonymous", &a.Anonymous); err != nil {
		return a, err
	}
	return a, nil
}

// PlayerInteractions describes the requesting user's relationship to a player.
type PlayerInteractions struct {
	Following bool `json:"following"`
}

func decodePlayerInteractions(o object) (PlayerInteractions, error) {
	var pi PlayerInteractions
	err := o.boolean("following", required, &pi.Following)
	return pi, err
}

// PlayerStats holds a player's counters, named as the API names them.
type PlayerStats struct {
	Subscribers  Stat `json:"Subscribers"`
	NumFollowing Stat `json:"NumFollowing"`
	Crowns       Stat `json:"Crowns"`
	Shoes        Stat `json:"Shoes"`
	PlayTime     Stat `json:"PlayTime"`
	Published    Stat `json:"Published"`
	Plays        Stat `json:"Plays"`
	LevelsPlayed Stat `json:"LevelsPlayed"`
	Wins         Stat `json:"Wins"`
	Fails        Stat `json:"Fails"`
	TowerTrials  Stat `json:"ChalWins"`
	TimeTrophies Stat `json:"TimeTrophies"`
	FaveGen      Stat `json:"FaveGen"`
	LikeGen      Stat `json:"LikeGen"`
	BucksTipped  Stat `json:"BucksTipped"`
	TipsGotten   Stat `json:"TipsGotten"`

	// Documented but not currently returned by the API
	DBComp    *Stat `json:"DBComp,omitempty"`
	AchPoints *Stat `json:"AchPoints,omitempty"`

	CampaignProgress Percent `json:"CampaignProg"`
}

var playerStatCounters = []counter[PlayerStats]{
	{"Subscribers", required, func(s *PlayerStats) *Stat { return &s.Subscribers }},
	{"NumFollowing", required, func(s *PlayerStats) *Stat { return &s.NumFollowing }},
	{"Crowns", required, func(s *PlayerStats) *Stat { return &s.Crowns }},
	{"Shoes", required, func(s *PlayerStats) *Stat { return &s.Shoes }},
	{"PlayTime", required, func(s *PlayerStats) *Stat { return &s.PlayTime }},
	{"Published", zeroDefault, func(s *PlayerStats) *Stat { return &s.Published }},
	{"Plays", zeroDefault, func(s *PlayerStats) *Stat { return &s.Plays }},
	{"LevelsPlayed", zeroDefault, func(s *PlayerStats) *Stat { return &s.LevelsPlayed }},
	{"Wins", zeroDefault, func(s *PlayerStats) *Stat { return &s.Wins }},
	{"Fails", zeroDefault, func(s *PlayerStats) *Stat { return &s.Fails }},
	{"ChalWins", zeroDefault, func(s *PlayerStats) *Stat { return &s.TowerTrials }},
	{"TimeTrophies", zeroDefault, func(s *PlayerStats) *Stat { return &s.TimeTrophies }},
	{"FaveGen", zeroDefault, func(s *PlayerStats) *Stat { return &s.FaveGen }},
	{"LikeGen", zeroDefault, func(s *PlayerStats) *Stat { return &s.LikeGen }},
	{"BucksTipped", zeroDefault, func(s *PlayerStats) *Stat { return &s.BucksTipped }},
	{"TipsGotten", zeroDefault, func(s *PlayerStats) *Stat { return &s.TipsGotten }},
}

// Counter returns the counter with the given wire name. CampaignProg is
// reported as a counter too; the optional counters report false when unset.
func (s PlayerStats) Counter(wire string) (Stat, bool) {
	switch wire {
	case "CampaignProg":
		return Stat(s.CampaignProgress), true
	case "DBComp":
		return optionalCounter(s.DBComp)
	case "AchPoints":
		return optionalCounter(s.AchPoints)
	}
	return lookupCounter(playerStatCounters, &s, wire)
}

func optionalCounter(v *Stat) (Stat, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *PlayerStats) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodePlayerStats, s)
}

func decodePlayerStats(o object) (PlayerStats, error) {
	var s PlayerStats
	if err := decodeCounters(o, playerStatCounters, &s); err != nil {
		return s, err
	}
	if err := o.optStat("DBComp", &s.DBComp); err != nil {
		return s, err
	}
	if err := o.optStat("AchPoints", &s.AchPoints); err != nil {
		return s, err
	}

	var progress Stat
	if err := o.stat("CampaignProg", zeroDefault, &progress); err != nil {
		return s, err
	}
	if progress < 0 || progress > 100 {
		return s, o.get("CampaignProg").fail("percent %d out of range 0..100", progress)
	}
	s.CampaignProgress = Percent(progress)
	return s, nil
}

// Player is a Levelhead player record.
type Player struct {
	ID           string              `json:"_id"`
	UserID       Identifier          `json:"userId"`
	Alias        *Alias              `json:"alias,omitempty"`
	CreatedAt    DateString          `json:"createdAt"`
	UpdatedAt    DateString          `json:"updatedAt"`
	Interactions *PlayerInteractions `json:"interactions,omitempty"`
	Stats        PlayerStats         `json:"stats"`
}

// DisplayName returns the player's alias, falling back to the user id.
func (p Player) DisplayName() string {
	if p.Alias != nil && p.Alias.Alias != nil {
		return *p.Alias.Alias
	}
	return p.UserID
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Player) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodePlayer, p)
}

func decodePlayer(o object) (Player, error) {
	var p Player
	if err := o.str("_id", &p.ID); err != nil {
		return p, err
	}
	if err := o.str("userId", &p.UserID); err != nil {
		return p, err
	}
	if err := o.str("createdAt", &p.CreatedAt); err != nil {
		return p, err
	}
	if err := o.str("updatedAt", &p.UpdatedAt); err != nil {
		return p, err
	}
	alias, err := optional(o, "alias", decodeAlias)
	if err != nil {
		return p, err
	}
	p.Alias = alias
	interactions, err := optional(o, "interactions", decodePlayerInteractions)
	if err != nil {
		return p, err
	}
	p.Interactions = interactions
	stats, err := nested(o, "stats", required, decodePlayerStats)
	if err != nil {
		return p, err
	}
	p.Stats = stats
	return p, nil
}

// IsPlayerCounter reports whether wire names a PlayerStats counter.
func IsPlayerCounter(wire string) bool {
	switch wire {
	case "CampaignProg", "DBComp", "AchPoints":
		return true
	}
	_, ok := lookupCounter(playerStatCounters, &PlayerStats{}, wire)
	return ok
}
