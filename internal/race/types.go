package race

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type RaceType string

const (
	TypeSprint   RaceType = "sprint"
	TypeMarathon RaceType = "marathon"
	TypeBlitz    RaceType = "blitz"
	TypeCustom   RaceType = "custom"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Player status values carried in presence state and live views.
const (
	PlayerWaiting  = "waiting"
	PlayerPlaying  = "playing"
	PlayerFinished = "finished"
)

// Settings is the per-race settings bag (hints, chat, scoring modifiers).
type Settings struct {
	Hints     bool `json:"hints"`
	Chat      bool `json:"chat"`
	TimeBonus bool `json:"time_bonus"`
}

// RaceConfig carries the caller-supplied race parameters for Create.
// Zero values fall back to the defaults from DefaultConfig; races are
// public unless Private is set.
type RaceConfig struct {
	Name            string
	Type            RaceType
	Difficulty      Difficulty
	Duration        int // seconds
	MaxPlayers      int
	Rounds          int
	Private         bool
	WordLength      int // 0 means unconstrained
	ProbabilityMode bool
	MinRarity       int
	MaxRarity       int
	Settings        Settings
}

// DefaultConfig returns the settings a race is created with when the
// caller leaves them unset.
func DefaultConfig() RaceConfig {
	return RaceConfig{
		Name:       "Quick race",
		Type:       TypeSprint,
		Difficulty: DifficultyMedium,
		Duration:   180,
		MaxPlayers: 8,
		Rounds:     8,
		MaxRarity:  100,
		Settings: Settings{
			Chat:      true,
			TimeBonus: true,
		},
	}
}

// Race is the persisted race record. Status only ever moves
// waiting -> active -> finished.
type Race struct {
	ID              string
	Name            string
	Type            RaceType
	Difficulty      Difficulty
	Duration        int
	MaxPlayers      int
	CurrentPlayers  int
	Status          Status
	CreatorID       string
	Public          bool
	Rounds          int
	Alphagrams      []string
	WordLength      int
	ProbabilityMode bool
	MinRarity       int
	MaxRarity       int
	Settings        Settings
	CreatedAt       time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Participant is the persisted per-user race state, keyed by
// (RaceID, UserID).
type Participant struct {
	RaceID           string
	UserID           string
	Username         string
	Score            int
	WordsFound       int
	CurrentRound     int
	Streak           int
	RareWordsFound   int
	AverageWordScore float64
	Ready            bool
	JoinedAt         time.Time
	FinishedAt       time.Time
}

// WordSubmission records one accepted word with its full score
// breakdown. Immutable once created; keyed by
// (RaceID, UserID, Word, Round).
type WordSubmission struct {
	RaceID        string
	UserID        string
	Word          string
	Round         int
	Rarity        int
	TileScore     int
	BaseScore     int
	RarityBonus   int
	StreakBonus   int
	ScrabbleBonus int
	TimeBonus     int
	Total         int
	SubmittedAt   time.Time
}

// RaceResult is the final snapshot persisted when a participant
// finishes, keyed by (RaceID, UserID).
type RaceResult struct {
	RaceID           string
	UserID           string
	Username         string
	FinalScore       int
	WordsFound       int
	Streak           int
	RareWordsFound   int
	AverageWordScore float64
	Rank             int
	CompletedAt      time.Time
}

// LivePlayer is the presence-derived, best-effort view of one player.
// Never persisted; rebuilt on every presence or progress event.
type LivePlayer struct {
	UserID       string
	Username     string
	Score        int
	WordsFound   int
	Round        int
	Streak       int
	Position     int
	Active       bool
	Status       string
	LastActivity time.Time
}

// LiveSpectator is the presence-derived view of a spectator.
type LiveSpectator struct {
	UserID       string
	Username     string
	LastActivity time.Time
}

// WordEvent is one entry in the recent-words activity feed.
type WordEvent struct {
	UserID   string
	Username string
	Word     string
	Score    int
	Round    int
	At       time.Time
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
