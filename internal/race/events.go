package race

import "time"

// Broadcast event types carried over the bus for a race topic.
const (
	EventRaceStarted    = "race_started"
	EventRaceFinished   = "race_finished"
	EventRoundCompleted = "round_completed"
	EventWordSubmitted  = "word_submitted"
	EventPlayerProgress = "player_progress"
)

// Topic returns the bus topic name for a race.
func Topic(raceID string) string {
	return "race:" + raceID
}

type RaceStartedPayload struct {
	RaceID    string    `json:"race_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

type RaceFinishedPayload struct {
	RaceID     string `json:"race_id"`
	UserID     string `json:"user_id"`
	FinalScore int    `json:"final_score"`
	WordsFound int    `json:"words_found"`
	Rank       int    `json:"rank"`
}

type RoundCompletedPayload struct {
	UserID string `json:"user_id"`
	Round  int    `json:"round"`
}

type WordSubmittedPayload struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Word     string    `json:"word"`
	Score    int       `json:"score"`
	Round    int       `json:"round"`
	At       time.Time `json:"at"`
}

type PlayerProgressPayload struct {
	UserID     string `json:"user_id"`
	Score      int    `json:"score"`
	WordsFound int    `json:"words_found"`
	Round      int    `json:"round"`
	Streak     int    `json:"streak"`
}
