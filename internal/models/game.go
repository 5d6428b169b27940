package models

import (
	"fmt"
	"math"
	"regexp"
	"sort"
)

// ScorePolicy is the comparison direction for a game key.
type ScorePolicy string

const (
	// HigherIsBetter is used by counters and point totals.
	HigherIsBetter ScorePolicy = "higher_is_better"
	// LowerIsBetter is used by elapsed-time milestones.
	LowerIsBetter ScorePolicy = "lower_is_better"
)

// Valid reports whether p is a known policy.
func (p ScorePolicy) Valid() bool {
	return p == HigherIsBetter || p == LowerIsBetter
}

// Better reports whether candidate strictly beats current under p.
func (p ScorePolicy) Better(candidate, current int64) bool {
	if p == LowerIsBetter {
		return candidate < current
	}
	return candidate > current
}

// Baseline is the implicit stored value when nothing was submitted yet.
func (p ScorePolicy) Baseline() int64 {
	if p == LowerIsBetter {
		return math.MaxInt64
	}
	return 0
}

var gameKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateGameKey checks that key can be used as a ledger path segment.
func ValidateGameKey(key string) error {
	if !gameKeyPattern.MatchString(key) {
		return NewInvalidArgumentError("Invalid game key")
	}
	return nil
}

// ScoreRecord is the personal best stored at scores/{id}/{gameKey}.
type ScoreRecord struct {
	ProfileID uint64 `json:"profileId"`
	GameKey   string `json:"gameKey"`
	Value     int64  `json:"value"`
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	ProfileID uint64 `json:"profileId"`
	Nickname  string `json:"nickname"`
	Value     int64  `json:"value"`
	Rank      int    `json:"rank"`
}

// Game describes a key of the score ledger.
type Game struct {
	Key    string      `json:"key"`
	Title  string      `json:"title"`
	Policy ScorePolicy `json:"policy"`
	Unit   string      `json:"unit"`
}

// Milestones2048 are the tile values timed by the 2048 game.
var Milestones2048 = []int{128, 256, 512, 1024, 2048, 4096, 8192, 16384}

// MilestoneKey2048 returns the ledger key for reaching tile in 2048.
func MilestoneKey2048(tile int) string {
	return fmt.Sprintf("2048_reach_%d", tile)
}

// GameCatalog maps game keys to their ledger semantics.
type GameCatalog map[string]Game

// DefaultGameCatalog returns the games hosted by the site.
func DefaultGameCatalog() GameCatalog {
	catalog := GameCatalog{
		"click": {Key: "click", Title: "Click challenge", Policy: HigherIsBetter, Unit: "clicks"},
		"jump":  {Key: "jump", Title: "Jump", Policy: HigherIsBetter, Unit: "points"},
		"2048":  {Key: "2048", Title: "2048", Policy: HigherIsBetter, Unit: "points"},
	}
	for _, tile := range Milestones2048 {
		key := MilestoneKey2048(tile)
		catalog[key] = Game{
			Key:    key,
			Title:  fmt.Sprintf("2048: reach %d", tile),
			Policy: LowerIsBetter,
			Unit:   "ms",
		}
	}
	return catalog
}

// Lookup returns the game for key.
func (c GameCatalog) Lookup(key string) (Game, error) {
	g, ok := c[key]
	if !ok {
		return Game{}, NewNotFoundError("Game", key)
	}
	return g, nil
}

// List returns the games ordered by key.
func (c GameCatalog) List() []Game {
	games := make([]Game, 0, len(c))
	for _, g := range c {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Key < games[j].Key })
	return games
}
