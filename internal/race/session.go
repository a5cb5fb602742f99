package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wordrace/internal/bus"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxTimeBonus = 10

// Deps carries the collaborators a Session needs. Store, Dict and Bus
// are required; the rest default when nil.
type Deps struct {
	Store RecordStore
	Dict  Dictionary
	Bus   bus.Bus
	Gen   Generator
	Log   *logrus.Logger
	Now   func() time.Time
}

// Session is one client's handle on one race: it owns the canonical
// per-user race and participant state, runs the word-submission
// pipeline, and keeps the live view fed from the bus. Sessions are
// explicit objects, one per (client, race); a process may hold several
// at once.
//
// A session is driven by two interleaved input streams: direct calls
// from the client and bus callbacks arriving on transport goroutines.
// State fed by bus callbacks (the live view, the subscription handle)
// is mutex-guarded; the lifecycle operations themselves expect a
// single caller goroutine, the client's own event loop, and mutate the
// race and participant records under that assumption.
type Session struct {
	store RecordStore
	dict  Dictionary
	bus   bus.Bus
	gen   Generator
	log   *logrus.Logger
	now   func() time.Time

	userID   string
	username string

	mu          sync.Mutex
	race        *Race
	participant *Participant
	spectator   bool
	sub         bus.Subscription
	live        *LiveState
	roundWords  map[string]struct{}
	submissions []*WordSubmission
}

// NewSession builds a session for one user. The session is inert until
// Create, Join or Spectate attaches it to a race.
func NewSession(deps Deps, userID, username string) *Session {
	if deps.Gen == nil {
		deps.Gen = NewPoolGenerator(nil)
	}
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = timeNowUTC
	}
	return &Session{
		store:      deps.Store,
		dict:       deps.Dict,
		bus:        deps.Bus,
		gen:        deps.Gen,
		log:        deps.Log,
		now:        deps.Now,
		userID:     userID,
		username:   username,
		live:       NewLiveState(),
		roundWords: make(map[string]struct{}),
	}
}

// Create merges the caller's config over defaults, generates the
// round alphagrams, persists the race, then performs the creator's own
// join. A persistence failure leaves no race created.
func (s *Session) Create(ctx context.Context, cfg RaceConfig) (*Race, error) {
	cfg = mergeConfig(cfg)

	race := &Race{
		ID:              uuid.NewString(),
		Name:            cfg.Name,
		Type:            cfg.Type,
		Difficulty:      cfg.Difficulty,
		Duration:        cfg.Duration,
		MaxPlayers:      cfg.MaxPlayers,
		CurrentPlayers:  1,
		Status:          StatusWaiting,
		CreatorID:       s.userID,
		Public:          !cfg.Private,
		Rounds:          cfg.Rounds,
		Alphagrams:      s.gen.Generate(cfg.Rounds, cfg.Difficulty, cfg.WordLength),
		WordLength:      cfg.WordLength,
		ProbabilityMode: cfg.ProbabilityMode,
		MinRarity:       cfg.MinRarity,
		MaxRarity:       cfg.MaxRarity,
		Settings:        cfg.Settings,
		CreatedAt:       s.now(),
	}
	if err := s.store.CreateRace(ctx, race); err != nil {
		return nil, fmt.Errorf("persist race: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"race_id":    race.ID,
		"type":       race.Type,
		"difficulty": race.Difficulty,
		"rounds":     race.Rounds,
	}).Info("race created")

	if err := s.Join(ctx, race.ID); err != nil {
		s.log.WithError(err).WithField("race_id", race.ID).
			Warn("creator join failed; race row left waiting with no participants")
		return nil, err
	}
	return s.Race(), nil
}

// Join attaches the session to an existing race. Re-joining a race the
// user is already in succeeds without creating a duplicate row. A race
// at capacity rejects with ErrRaceFull and mutates nothing.
func (s *Session) Join(ctx context.Context, raceID string) error {
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return err
	}

	participant, err := s.store.GetParticipant(ctx, raceID, s.userID)
	switch {
	case err == nil:
		// Already joined; idempotent success.
	case errors.Is(err, ErrParticipantNotFound):
		others, listErr := s.store.ListParticipants(ctx, raceID)
		if listErr != nil {
			return fmt.Errorf("list participants: %w", listErr)
		}
		if len(others) >= race.MaxPlayers {
			return ErrRaceFull
		}
		participant = &Participant{
			RaceID:   raceID,
			UserID:   s.userID,
			Username: s.username,
			JoinedAt: s.now(),
		}
		if createErr := s.store.CreateParticipant(ctx, participant); createErr != nil {
			return fmt.Errorf("persist participant: %w", createErr)
		}
		race.CurrentPlayers = len(others) + 1
		if updateErr := s.store.UpdateRace(ctx, race); updateErr != nil {
			return fmt.Errorf("update player count: %w", updateErr)
		}
	default:
		return err
	}

	if err := s.attach(ctx, race, participant, false); err != nil {
		return err
	}
	if err := s.restoreSubmissions(ctx, participant); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"race_id": raceID, "user_id": s.userID}).Info("joined race")
	return nil
}

// restoreSubmissions reloads the persisted submission log after an
// attach, so a re-join keeps the local per-round duplicate check and
// the Submissions view consistent with the store.
func (s *Session) restoreSubmissions(ctx context.Context, p *Participant) error {
	subs, err := s.store.ListSubmissions(ctx, p.RaceID, p.UserID, -1)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	round := make(map[string]struct{})
	for _, sub := range subs {
		if sub.Round == p.CurrentRound {
			round[sub.Word] = struct{}{}
		}
	}
	s.mu.Lock()
	s.submissions = subs
	s.roundWords = round
	s.mu.Unlock()
	return nil
}

// Spectate subscribes to a race's topic without creating a participant
// row. Spectators appear in presence and receive every broadcast, but
// cannot submit words.
func (s *Session) Spectate(ctx context.Context, raceID string) error {
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return err
	}
	if err := s.attach(ctx, race, nil, true); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"race_id": raceID, "user_id": s.userID}).Info("spectating race")
	return nil
}

// attach subscribes to the race topic and tracks initial presence.
// Track only runs after Subscribe confirms the subscription is active.
func (s *Session) attach(ctx context.Context, race *Race, participant *Participant, spectator bool) error {
	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		if err := s.detach(ctx); err != nil {
			return err
		}
		s.mu.Lock()
	}
	s.race = race
	s.participant = participant
	s.spectator = spectator
	s.live = NewLiveState()
	s.roundWords = make(map[string]struct{})
	s.submissions = nil
	live := s.live
	s.mu.Unlock()

	sub, err := s.bus.Subscribe(ctx, Topic(race.ID), live.Callbacks())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic(race.ID), err)
	}
	s.mu.Lock()
	s.sub = sub
	state := s.presenceLocked()
	s.mu.Unlock()

	if err := sub.Track(ctx, state); err != nil {
		return fmt.Errorf("track presence: %w", err)
	}
	return nil
}

// Leave removes the participant row, floors the player count at zero,
// clears all local state and unsubscribes. Safe to call repeatedly.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	race := s.race
	participant := s.participant
	s.mu.Unlock()
	if race == nil {
		return nil
	}

	if participant != nil {
		if err := s.store.DeleteParticipant(ctx, race.ID, s.userID); err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		remaining, err := s.store.ListParticipants(ctx, race.ID)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}
		race.CurrentPlayers = len(remaining)
		if race.CurrentPlayers < 0 {
			race.CurrentPlayers = 0
		}
		if err := s.store.UpdateRace(ctx, race); err != nil {
			return fmt.Errorf("update player count: %w", err)
		}
	}
	if err := s.detach(ctx); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"race_id": race.ID, "user_id": s.userID}).Info("left race")
	return nil
}

// detach clears local state and unsubscribes. Idempotent teardown.
func (s *Session) detach(_ context.Context) error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.race = nil
	s.participant = nil
	s.spectator = false
	s.live = NewLiveState()
	s.roundWords = make(map[string]struct{})
	s.submissions = nil
	s.mu.Unlock()

	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

// Start moves the race from waiting to active, stamps the start time
// and broadcasts race_started.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	race := s.race
	sub := s.sub
	s.mu.Unlock()
	if race == nil || sub == nil {
		return ErrNotJoined
	}
	if race.Status != StatusWaiting {
		return ErrAlreadyStarted
	}

	race.Status = StatusActive
	race.StartedAt = s.now()
	if err := s.store.UpdateRace(ctx, race); err != nil {
		race.Status = StatusWaiting
		race.StartedAt = time.Time{}
		return fmt.Errorf("update race status: %w", err)
	}
	if err := sub.Send(ctx, EventRaceStarted, RaceStartedPayload{
		RaceID:    race.ID,
		UserID:    s.userID,
		StartedAt: race.StartedAt,
	}); err != nil {
		return fmt.Errorf("broadcast race_started: %w", err)
	}
	s.trackPresence(ctx)
	s.log.WithFields(logrus.Fields{"race_id": race.ID}).Info("race started")
	return nil
}

// refreshRace reconciles the local race copy with the persisted
// record. The local copy is captured at Join time; when another
// participant starts the race, only the broadcast mirror in the live
// view knows, so a waiting local status with a non-waiting live status
// means the copy is stale and the store has the start stamp.
func (s *Session) refreshRace(ctx context.Context) error {
	s.mu.Lock()
	race := s.race
	live := s.live
	s.mu.Unlock()
	if race == nil || race.Status != StatusWaiting {
		return nil
	}
	if live.Snapshot().Status == StatusWaiting {
		return nil
	}

	fresh, err := s.store.GetRace(ctx, race.ID)
	if err != nil {
		return fmt.Errorf("refresh race: %w", err)
	}
	s.mu.Lock()
	if s.race != nil && s.race.ID == fresh.ID {
		s.race.Status = fresh.Status
		s.race.StartedAt = fresh.StartedAt
		s.race.FinishedAt = fresh.FinishedAt
	}
	s.mu.Unlock()
	return nil
}

// SubmitWord runs the submission pipeline for the participant's
// current round: dictionary membership, exact anagram match against
// the round's letter set, per-round duplicate rejection, scoring,
// persistence, participant totals, then presence and broadcast
// updates. Validation failures come back as typed rejections the UI
// can present distinctly.
func (s *Session) SubmitWord(ctx context.Context, word string) (*WordSubmission, error) {
	if err := s.refreshRace(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	race := s.race
	participant := s.participant
	sub := s.sub
	s.mu.Unlock()
	if race == nil || sub == nil || participant == nil {
		return nil, ErrNotJoined
	}
	if race.Status != StatusActive {
		return nil, ErrRaceNotStarted
	}

	word = normalizeWord(word)
	if word == "" {
		return nil, ErrInvalidWord
	}
	round := participant.CurrentRound
	if round < 0 || round >= len(race.Alphagrams) {
		// The persisted race has no such round; the session is out of
		// sync and needs a full reload.
		return nil, ErrRoundOutOfRange
	}

	exists, err := s.dict.Exists(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("dictionary lookup: %w", err)
	}
	if !exists {
		return nil, ErrInvalidWord
	}
	if !ValidAnagram(word, race.Alphagrams[round]) {
		return nil, ErrInvalidAnagram
	}

	s.mu.Lock()
	if _, dup := s.roundWords[word]; dup {
		s.mu.Unlock()
		return nil, ErrDuplicateWord
	}
	s.mu.Unlock()

	info, err := s.dict.FrequencyOf(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("frequency lookup: %w", err)
	}

	submission := ScoreWord(word, s.timeBonus(race), participant.Streak, info.Rarity)
	submission.RaceID = race.ID
	submission.UserID = s.userID
	submission.Round = round
	submission.SubmittedAt = s.now()

	if err := s.store.CreateSubmission(ctx, &submission); err != nil {
		return nil, err
	}

	participant.Score += submission.Total
	participant.WordsFound++
	participant.Streak++
	if info.Rarity < 30 {
		participant.RareWordsFound++
	}
	participant.AverageWordScore = float64(participant.Score) / float64(participant.WordsFound)
	if err := s.store.UpdateParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}

	s.mu.Lock()
	s.roundWords[word] = struct{}{}
	s.submissions = append(s.submissions, &submission)
	s.mu.Unlock()

	s.trackPresence(ctx)
	if err := sub.Send(ctx, EventWordSubmitted, WordSubmittedPayload{
		UserID:   s.userID,
		Username: s.username,
		Word:     word,
		Score:    submission.Total,
		Round:    round,
		At:       submission.SubmittedAt,
	}); err != nil {
		s.log.WithError(err).Warn("broadcast word_submitted failed")
	}
	if err := sub.Send(ctx, EventPlayerProgress, PlayerProgressPayload{
		UserID:     s.userID,
		Score:      participant.Score,
		WordsFound: participant.WordsFound,
		Round:      participant.CurrentRound,
		Streak:     participant.Streak,
	}); err != nil {
		s.log.WithError(err).Warn("broadcast player_progress failed")
	}

	s.log.WithFields(logrus.Fields{
		"race_id": race.ID,
		"word":    word,
		"round":   round,
		"score":   submission.Total,
	}).Debug("word accepted")
	return &submission, nil
}

// NextRound advances the participant to the next round: the round
// index bumps by exactly one, the streak resets and the per-round
// submission log starts empty. Returns the new round index.
func (s *Session) NextRound(ctx context.Context) (int, error) {
	if err := s.refreshRace(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	race := s.race
	participant := s.participant
	sub := s.sub
	s.mu.Unlock()
	if race == nil || sub == nil || participant == nil {
		return 0, ErrNotJoined
	}
	if race.Status != StatusActive {
		return 0, ErrRaceNotStarted
	}
	if participant.CurrentRound+1 >= race.Rounds {
		return participant.CurrentRound, ErrRoundOutOfRange
	}

	participant.CurrentRound++
	participant.Streak = 0
	if err := s.store.UpdateParticipant(ctx, participant); err != nil {
		participant.CurrentRound--
		return participant.CurrentRound, fmt.Errorf("update participant: %w", err)
	}

	s.mu.Lock()
	s.roundWords = make(map[string]struct{})
	s.mu.Unlock()

	s.trackPresence(ctx)
	if err := sub.Send(ctx, EventRoundCompleted, RoundCompletedPayload{
		UserID: s.userID,
		Round:  participant.CurrentRound,
	}); err != nil {
		s.log.WithError(err).Warn("broadcast round_completed failed")
	}
	return participant.CurrentRound, nil
}

// Finish snapshots the participant's final state into a RaceResult,
// persists it and broadcasts race_finished. It does not flip the
// shared race record for other participants; each client observes
// completion through the broadcast.
func (s *Session) Finish(ctx context.Context) (*RaceResult, error) {
	if err := s.refreshRace(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	race := s.race
	participant := s.participant
	sub := s.sub
	rank := 0
	for _, player := range s.live.Snapshot().Players {
		if player.UserID == s.userID {
			rank = player.Position
			break
		}
	}
	s.mu.Unlock()
	if race == nil || sub == nil || participant == nil {
		return nil, ErrNotJoined
	}
	if race.Status == StatusWaiting {
		return nil, ErrRaceNotStarted
	}

	result := &RaceResult{
		RaceID:           race.ID,
		UserID:           s.userID,
		Username:         s.username,
		FinalScore:       participant.Score,
		WordsFound:       participant.WordsFound,
		Streak:           participant.Streak,
		RareWordsFound:   participant.RareWordsFound,
		AverageWordScore: participant.AverageWordScore,
		Rank:             rank,
		CompletedAt:      s.now(),
	}
	if err := s.store.CreateResult(ctx, result); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}

	participant.FinishedAt = result.CompletedAt
	if err := s.store.UpdateParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}

	s.trackPresence(ctx)
	if err := sub.Send(ctx, EventRaceFinished, RaceFinishedPayload{
		RaceID:     race.ID,
		UserID:     s.userID,
		FinalScore: result.FinalScore,
		WordsFound: result.WordsFound,
		Rank:       result.Rank,
	}); err != nil {
		s.log.WithError(err).Warn("broadcast race_finished failed")
	}
	s.log.WithFields(logrus.Fields{
		"race_id": race.ID,
		"score":   result.FinalScore,
		"rank":    result.Rank,
	}).Info("race finished")
	return result, nil
}

// Race returns a copy of the current race record, or nil.
func (s *Session) Race() *Race {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.race == nil {
		return nil
	}
	return cloneRace(s.race)
}

// Participant returns a copy of the caller's participant row, or nil.
func (s *Session) Participant() *Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil {
		return nil
	}
	return cloneParticipant(s.participant)
}

// Live returns the current live view snapshot.
func (s *Session) Live() LiveSnapshot {
	s.mu.Lock()
	live := s.live
	s.mu.Unlock()
	return live.Snapshot()
}

// Submissions returns the session's accepted-word log, oldest first.
func (s *Session) Submissions() []WordSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WordSubmission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		out = append(out, *sub)
	}
	return out
}

// timeBonus is proportional to the race time remaining, capped, and
// zero when time-bonus scoring is off or the race has no start stamp.
func (s *Session) timeBonus(race *Race) int {
	if !race.Settings.TimeBonus || race.StartedAt.IsZero() || race.Duration <= 0 {
		return 0
	}
	elapsed := s.now().Sub(race.StartedAt).Seconds()
	remaining := float64(race.Duration) - elapsed
	if remaining <= 0 {
		return 0
	}
	bonus := int(remaining / float64(race.Duration) * maxTimeBonus)
	if bonus > maxTimeBonus {
		bonus = maxTimeBonus
	}
	return bonus
}

func (s *Session) trackPresence(ctx context.Context) {
	s.mu.Lock()
	sub := s.sub
	state := s.presenceLocked()
	s.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.Track(ctx, state); err != nil {
		s.log.WithError(err).Warn("presence track failed")
	}
}

func (s *Session) presenceLocked() bus.PresenceState {
	state := bus.PresenceState{
		UserID:       s.userID,
		Username:     s.username,
		Spectator:    s.spectator,
		Status:       PlayerWaiting,
		LastActivity: s.now(),
	}
	if s.race != nil && s.race.Status == StatusActive {
		state.Status = PlayerPlaying
	}
	if s.participant != nil {
		state.Score = s.participant.Score
		state.WordsFound = s.participant.WordsFound
		state.Round = s.participant.CurrentRound
		state.Streak = s.participant.Streak
		if !s.participant.FinishedAt.IsZero() {
			state.Status = PlayerFinished
		}
	}
	return state
}

// mergeConfig fills unset caller fields from the defaults.
func mergeConfig(cfg RaceConfig) RaceConfig {
	defaults := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Type == "" {
		cfg.Type = defaults.Type
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = defaults.Difficulty
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaults.Duration
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = defaults.MaxPlayers
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = defaults.Rounds
	}
	if cfg.MaxRarity <= 0 {
		cfg.MaxRarity = defaults.MaxRarity
	}
	if cfg.Settings == (Settings{}) {
		cfg.Settings = defaults.Settings
	}
	return cfg
}
