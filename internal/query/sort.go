package query

// Sort orders search results by a single property. The API sorts
// descending unless the property is prefixed with "-".
type Sort[P ~string] struct {
	Property  P
	Ascending bool
}

// Descending sorts from largest to smallest, the API's default.
func Descending[P ~string](p P) Sort[P] {
	return Sort[P]{Property: p}
}

// Ascending sorts from smallest to largest.
func Ascending[P ~string](p P) Sort[P] {
	return Sort[P]{Property: p, Ascending: true}
}

// String returns the wire form of the sort.
func (s Sort[P]) String() string {
	if s.Ascending {
		return "-" + string(s.Property)
	}
	return string(s.Property)
}

// PlayerSortProperty is a property player searches can be sorted on
type PlayerSortProperty string

const (
	PlayerSortCreatedAt    PlayerSortProperty = "createdAt"
	PlayerSortUpdatedAt    PlayerSortProperty = "updatedAt"
	PlayerSortSubscribers  PlayerSortProperty = "Subscribers"
	PlayerSortNumFollowing PlayerSortProperty = "NumFollowing"
	PlayerSortPlayTime     PlayerSortProperty = "PlayTime"
	PlayerSortPlays        PlayerSortProperty = "Plays"
)

var playerSortProperties = []string{
	string(PlayerSortCreatedAt),
	string(PlayerSortUpdatedAt),
	string(PlayerSortSubscribers),
	string(PlayerSortNumFollowing),
	string(PlayerSortPlayTime),
	string(PlayerSortPlays),
}

// LevelSortProperty is a property level searches can be sorted on
type LevelSortProperty string

const (
	LevelSortCreatedAt     LevelSortProperty = "createdAt"
	LevelSortReplayValue   LevelSortProperty = "ReplayValue"
	LevelSortHiddenGem     LevelSortProperty = "HiddenGem"
	LevelSortExposureBucks LevelSortProperty = "ExposureBucks"
	LevelSortPlayTime      LevelSortProperty = "PlayTime"
	LevelSortPlays         LevelSortProperty = "Plays"
	LevelSortPlayers       LevelSortProperty = "Players"
	LevelSortAttempts      LevelSortProperty = "Attempts"
	LevelSortClearRate     LevelSortProperty = "ClearRate"
	LevelSortTimePerWin    LevelSortProperty = "TimePerWin"
	LevelSortFailureRate   LevelSortProperty = "FailureRate"
	LevelSortLikes         LevelSortProperty = "Likes"
	LevelSortFavorites     LevelSortProperty = "Favorites"
)

var levelSortProperties = []string{
	string(LevelSortCreatedAt),
	string(LevelSortReplayValue),
	string(LevelSortHiddenGem),
	string(LevelSortExposureBucks),
	string(LevelSortPlayTime),
	string(LevelSortPlays),
	string(LevelSortPlayers),
	string(LevelSortAttempts),
	string(LevelSortClearRate),
	string(LevelSortTimePerWin),
	string(LevelSortFailureRate),
	string(LevelSortLikes),
	string(LevelSortFavorites),
}
