package domain

// LevelContents counts the level's content by category.
type LevelContents struct {
	World    Stat `json:"World"`
	Movement Stat `json:"Movement"`
	Puzzles  Stat `json:"Puzzles"`
	Enemies  Stat `json:"Enemies"`
	Hazards  Stat `json:"Hazards"`
	Secrets  Stat `json:"Secrets"`
}

var levelContentCounters = []counter[LevelContents]{
	{"World", zeroDefault, func(c *LevelContents) *Stat { return &c.World }},
	{"Movement", zeroDefault, func(c *LevelContents) *Stat { return &c.Movement }},
	{"Puzzles", zeroDefault, func(c *LevelContents) *Stat { return &c.Puzzles }},
	{"Enemies", zeroDefault, func(c *LevelContents) *Stat { return &c.Enemies }},
	{"Hazards", zeroDefault, func(c *LevelContents) *Stat { return &c.Hazards }},
	{"Secrets", zeroDefault, func(c *LevelContents) *Stat { return &c.Secrets }},
}

func decodeLevelContents(o object) (LevelContents, error) {
	var c LevelContents
	err := decodeCounters(o, levelContentCounters, &c)
	return c, err
}

// LevelStats holds a level's counters and derived ratios.
type LevelStats struct {
	Attempts      Stat `json:"Attempts"`
	Favorites     Stat `json:"Favorites"`
	Likes         Stat `json:"Likes"`
	PlayTime      Stat `json:"PlayTime"`
	Players       Stat `json:"Players"`
	Diamonds      Stat `json:"Diamonds"`
	Successes     Stat `json:"Successes"`
	ExposureBucks Stat `json:"ExposureBucks"`

	ReplayValue float64 `json:"ReplayValue"`
	ClearRate   float64 `json:"ClearRate"`
	TimePerWin  float64 `json:"TimePerWin"`
	FailureRate float64 `json:"FailureRate"`
	HiddenGem   float64 `json:"HiddenGem"`
}

var levelStatCounters = []counter[LevelStats]{
	{"Attempts", zeroDefault, func(s *LevelStats) *Stat { return &s.Attempts }},
	{"Favorites", zeroDefault, func(s *LevelStats) *Stat { return &s.Favorites }},
	{"Likes", zeroDefault, func(s *LevelStats) *Stat { return &s.Likes }},
	{"PlayTime", zeroDefault, func(s *LevelStats) *Stat { return &s.PlayTime }},
	{"Players", zeroDefault, func(s *LevelStats) *Stat { return &s.Players }},
	{"Diamonds", zeroDefault, func(s *LevelStats) *Stat { return &s.Diamonds }},
	{"Successes", zeroDefault, func(s *LevelStats) *Stat { return &s.Successes }},
	{"ExposureBucks", zeroDefault, func(s *LevelStats) *Stat { return &s.ExposureBucks }},
}

var levelStatRatios = []ratio[LevelStats]{
	{"ReplayValue", zeroDefault, func(s *LevelStats) *float64 { return &s.ReplayValue }},
	{"ClearRate", zeroDefault, func(s *LevelStats) *float64 { return &s.ClearRate }},
	{"TimePerWin", zeroDefault, func(s *LevelStats) *float64 { return &s.TimePerWin }},
	{"FailureRate", zeroDefault, func(s *LevelStats) *float64 { return &s.FailureRate }},
	{"HiddenGem", zeroDefault, func(s *LevelStats) *float64 { return &s.HiddenGem }},
}

// Counter returns the counter with the given wire name.
func (s LevelStats) Counter(wire string) (Stat, bool) {
	return lookupCounter(levelStatCounters, &s, wire)
}

// Metric returns any stat, counter or ratio, by wire name.
func (s LevelStats) Metric(wire string) (float64, bool) {
	if v, ok := s.Counter(wire); ok {
		return float64(v), true
	}
	for _, r := range levelStatRatios {
		if r.wire == wire {
			return *r.ref(&s), true
		}
	}
	return 0, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *LevelStats) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodeLevelStats, s)
}

func decodeLevelStats(o object) (LevelStats, error) {
	var s LevelStats
	if err := decodeCounters(o, levelStatCounters, &s); err != nil {
		return s, err
	}
	err := decodeRatios(o, levelStatRatios, &s)
	return s, err
}

// Record is a single entry on a level's leaderboard.
type Record struct {
	UserID    Identifier `json:"userId"`
	Value     float64    `json:"value"`
	CreatedAt DateString `json:"createdAt"`
	Alias     *Alias     `json:"alias,omitempty"`
}

func decodeRecord(o object) (Record, error) {
	var r Record
	if err := o.str("userId", &r.UserID); err != nil {
		return r, err
	}
	if err := o.float("value", required, &r.Value); err != nil {
		return r, err
	}
	if err := o.str("createdAt", &r.CreatedAt); err != nil {
		return r, err
	}
	alias, err := optional(o, "alias", decodeAlias)
	r.Alias = alias
	return r, err
}

// LevelRecords holds a level's record holders.
type LevelRecords struct {
	HighScore   []Record `json:"HighScore"`
	FastestTime []Record `json:"FastestTime"`
}

func decodeLevelRecords(o object) (LevelRecords, error) {
	var lr LevelRecords
	var err error
	if lr.HighScore, err = records(o, "HighScore"); err != nil {
		return lr, err
	}
	lr.FastestTime, err = records(o, "FastestTime")
	return lr, err
}

func records(o object, key string) ([]Record, error) {
	n := o.get(key)
	if !n.present() {
		return []Record{}, nil
	}
	return listOf(objectOf(decodeRecord))(n)
}

// LevelInteractions describes the requesting user's relationship to a level.
type LevelInteractions struct {
	Bookmarked bool `json:"bookmarked"`
	Liked      bool `json:"liked"`
	Favorited  bool `json:"favorited"`
}

func decodeLevelInteractions(o object) (LevelInteractions, error) {
	var li LevelInteractions
	if err := o.boolean("bookmarked", zeroDefault, &li.Bookmarked); err != nil {
		return li, err
	}
	if err := o.boolean("liked", zeroDefault, &li.Liked); err != nil {
		return li, err
	}
	err := o.boolean("favorited", zeroDefault, &li.Favorited)
	return li, err
}

// Level is a published Levelhead level.
type Level struct {
	ID              string            `json:"_id"`
	LevelID         Identifier        `json:"levelId"`
	UserID          Identifier        `json:"userId"`
	Alias           *Alias            `json:"alias,omitempty"`
	Title           string            `json:"title"`
	Locale          string            `json:"locale"`
	LocaleID        Stat              `json:"localeId"`
	CreatedAt       DateString        `json:"createdAt"`
	UpdatedAt       DateString        `json:"updatedAt"`
	Tower           bool              `json:"tower"`
	DailyBuild      bool              `json:"dailyBuild"`
	RequiredPlayers Stat              `json:"requiredPlayers"`
	CreatorTime     float64           `json:"creatorTime"`
	Tags            []string          `json:"tags"`
	TagNames        []string          `json:"tagNames"`
	Content         LevelContents     `json:"content"`
	Stats           *LevelStats       `json:"stats,omitempty"`
	Records         *LevelRecords     `json:"records,omitempty"`
	Interactions    LevelInteractions `json:"interactions"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodeLevel, l)
}

func decodeLevel(o object) (Level, error) {
	var l Level
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"_id", &l.ID},
		{"levelId", &l.LevelID},
		{"userId", &l.UserID},
		{"title", &l.Title},
		{"locale", &l.Locale},
		{"createdAt", &l.CreatedAt},
		{"updatedAt", &l.UpdatedAt},
	} {
		if err := o.str(f.key, f.dst); err != nil {
			return l, err
		}
	}
	if err := o.stat("localeId", required, &l.LocaleID); err != nil {
		return l, err
	}
	if err := o.boolean("tower", required, &l.Tower); err != nil {
		return l, err
	}
	if err := o.boolean("dailyBuild", required, &l.DailyBuild); err != nil {
		return l, err
	}
	if err := o.stat("requiredPlayers", required, &l.RequiredPlayers); err != nil {
		return l, err
	}
	if err := o.float("creatorTime", required, &l.CreatorTime); err != nil {
		return l, err
	}
	if err := o.strs("tags", required, &l.Tags); err != nil {
		return l, err
	}
	if err := o.strs("tagNames", required, &l.TagNames); err != nil {
		return l, err
	}

	var err error
	if l.Alias, err = optional(o, "alias", decodeAlias); err != nil {
		return l, err
	}
	if l.Content, err = nested(o, "content", required, decodeLevelContents); err != nil {
		return l, err
	}
	if l.Stats, err = optional(o, "stats", decodeLevelStats); err != nil {
		return l, err
	}
	if l.Records, err = optional(o, "records", decodeLevelRecords); err != nil {
		return l, err
	}
	l.Interactions, err = nested(o, "interactions", zeroDefault, decodeLevelInteractions)
	return l, err
}

// IsLevelMetric reports whether wire names a LevelStats counter or ratio.
func IsLevelMetric(wire string) bool {
	_, ok := LevelStats{}.Metric(wire)
	return ok
}
