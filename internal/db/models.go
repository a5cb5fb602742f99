package db

import (
	"time"

	"gorm.io/datatypes"
)

type Race struct {
	ID              string         `gorm:"primaryKey;size:36"`
	Name            string         `gorm:"size:64;not null"`
	Type            string         `gorm:"size:16;not null"`
	Difficulty      string         `gorm:"size:16;not null"`
	Duration        int            `gorm:"not null"`
	MaxPlayers      int            `gorm:"not null"`
	CurrentPlayers  int            `gorm:"not null;default:0"`
	Status          string         `gorm:"size:16;not null;index"`
	CreatorID       string         `gorm:"size:64;not null;index"`
	Public          bool           `gorm:"not null;default:true"`
	Rounds          int            `gorm:"not null"`
	Alphagrams      datatypes.JSON `gorm:"type:jsonb;not null"`
	WordLength      int            `gorm:"not null;default:0"`
	ProbabilityMode bool           `gorm:"not null;default:false"`
	MinRarity       int            `gorm:"not null;default:0"`
	MaxRarity       int            `gorm:"not null;default:100"`
	Hints           bool           `gorm:"not null;default:false"`
	Chat            bool           `gorm:"not null;default:true"`
	TimeBonus       bool           `gorm:"not null;default:true"`
	StartedAt       *time.Time
	FinishedAt      *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	Participants    []Participant
	Submissions     []Submission
	Results         []Result
}

type Participant struct {
	ID               uint      `gorm:"primaryKey"`
	RaceID           string    `gorm:"size:36;index;not null;uniqueIndex:idx_participants_race_user"`
	UserID           string    `gorm:"size:64;not null;uniqueIndex:idx_participants_race_user"`
	Username         string    `gorm:"size:64;not null"`
	Score            int       `gorm:"not null;default:0"`
	WordsFound       int       `gorm:"not null;default:0"`
	CurrentRound     int       `gorm:"not null;default:0"`
	Streak           int       `gorm:"not null;default:0"`
	RareWordsFound   int       `gorm:"not null;default:0"`
	AverageWordScore float64   `gorm:"not null;default:0"`
	Ready            bool      `gorm:"not null;default:false"`
	JoinedAt         time.Time `gorm:"not null"`
	FinishedAt       *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type Submission struct {
	ID            uint      `gorm:"primaryKey"`
	RaceID        string    `gorm:"size:36;index;not null;uniqueIndex:idx_submissions_race_user_word_round"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex:idx_submissions_race_user_word_round"`
	Word          string    `gorm:"size:32;not null;uniqueIndex:idx_submissions_race_user_word_round"`
	Round         int       `gorm:"not null;uniqueIndex:idx_submissions_race_user_word_round"`
	Rarity        int       `gorm:"not null;default:0"`
	TileScore     int       `gorm:"not null;default:0"`
	BaseScore     int       `gorm:"not null;default:0"`
	RarityBonus   int       `gorm:"not null;default:0"`
	StreakBonus   int       `gorm:"not null;default:0"`
	ScrabbleBonus int       `gorm:"not null;default:0"`
	TimeBonus     int       `gorm:"not null;default:0"`
	Total         int       `gorm:"not null;default:0"`
	SubmittedAt   time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

type Result struct {
	ID               uint      `gorm:"primaryKey"`
	RaceID           string    `gorm:"size:36;index;not null;uniqueIndex:idx_results_race_user"`
	UserID           string    `gorm:"size:64;not null;uniqueIndex:idx_results_race_user"`
	Username         string    `gorm:"size:64;not null"`
	FinalScore       int       `gorm:"not null;default:0"`
	WordsFound       int       `gorm:"not null;default:0"`
	Streak           int       `gorm:"not null;default:0"`
	RareWordsFound   int       `gorm:"not null;default:0"`
	AverageWordScore float64   `gorm:"not null;default:0"`
	Rank             int       `gorm:"not null;default:0"`
	CompletedAt      time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	Topic     string         `gorm:"size:64;index;not null"`
	SenderID  string         `gorm:"size:64;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
