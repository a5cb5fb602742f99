package race

import "errors"

// Validation failures. Surfaced to the player as distinct rejections;
// never worth retrying as-is.
var (
	ErrInvalidWord    = errors.New("word not in dictionary")
	ErrInvalidAnagram = errors.New("word does not match the letter set")
	ErrDuplicateWord  = errors.New("word already submitted this round")
)

// Terminal failures for the attempted operation.
var (
	ErrRaceNotFound        = errors.New("race not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRaceFull            = errors.New("race is full")
	ErrRoundOutOfRange     = errors.New("round out of range")
)

// State-machine violations.
var (
	ErrAlreadyStarted = errors.New("race already started")
	ErrRaceNotStarted = errors.New("race not started")
	ErrNotJoined      = errors.New("no active race session")
)

// IsValidation reports whether err is a word-submission rejection that
// should be shown to the player rather than treated as a failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidWord) ||
		errors.Is(err, ErrInvalidAnagram) ||
		errors.Is(err, ErrDuplicateWord)
}
