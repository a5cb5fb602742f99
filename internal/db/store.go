package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wordrace/internal/race"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the gorm-backed RecordStore. It also satisfies the
// gateway's Archiver for the append-only broadcast event log.
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) CreateRace(ctx context.Context, r *race.Race) error {
	record, err := raceToModel(r)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) GetRace(ctx context.Context, id string) (*race.Race, error) {
	var record Race
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, race.ErrRaceNotFound
		}
		return nil, err
	}
	return modelToRace(&record)
}

func (s *Store) UpdateRace(ctx context.Context, r *race.Race) error {
	updates := map[string]any{
		"status":          string(r.Status),
		"current_players": r.CurrentPlayers,
		"updated_at":      time.Now().UTC(),
	}
	if !r.StartedAt.IsZero() {
		updates["started_at"] = r.StartedAt
	}
	if !r.FinishedAt.IsZero() {
		updates["finished_at"] = r.FinishedAt
	}
	result := s.db.WithContext(ctx).Model(&Race{}).Where("id = ?", r.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return race.ErrRaceNotFound
	}
	return nil
}

func (s *Store) CreateParticipant(ctx context.Context, p *race.Participant) error {
	record := participantToModel(p)
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) GetParticipant(ctx context.Context, raceID, userID string) (*race.Participant, error) {
	var record Participant
	err := s.db.WithContext(ctx).
		Where("race_id = ? AND user_id = ?", raceID, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, race.ErrParticipantNotFound
		}
		return nil, err
	}
	return modelToParticipant(&record), nil
}

func (s *Store) ListParticipants(ctx context.Context, raceID string) ([]*race.Participant, error) {
	var records []Participant
	err := s.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("joined_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	list := make([]*race.Participant, 0, len(records))
	for i := range records {
		list = append(list, modelToParticipant(&records[i]))
	}
	return list, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p *race.Participant) error {
	updates := map[string]any{
		"score":              p.Score,
		"words_found":        p.WordsFound,
		"current_round":      p.CurrentRound,
		"streak":             p.Streak,
		"rare_words_found":   p.RareWordsFound,
		"average_word_score": p.AverageWordScore,
		"ready":              p.Ready,
		"updated_at":         time.Now().UTC(),
	}
	if !p.FinishedAt.IsZero() {
		updates["finished_at"] = p.FinishedAt
	}
	result := s.db.WithContext(ctx).Model(&Participant{}).
		Where("race_id = ? AND user_id = ?", p.RaceID, p.UserID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return race.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) DeleteParticipant(ctx context.Context, raceID, userID string) error {
	return s.db.WithContext(ctx).
		Where("race_id = ? AND user_id = ?", raceID, userID).
		Delete(&Participant{}).Error
}

func (s *Store) CreateSubmission(ctx context.Context, sub *race.WordSubmission) error {
	record := Submission{
		RaceID:        sub.RaceID,
		UserID:        sub.UserID,
		Word:          sub.Word,
		Round:         sub.Round,
		Rarity:        sub.Rarity,
		TileScore:     sub.TileScore,
		BaseScore:     sub.BaseScore,
		RarityBonus:   sub.RarityBonus,
		StreakBonus:   sub.StreakBonus,
		ScrabbleBonus: sub.ScrabbleBonus,
		TimeBonus:     sub.TimeBonus,
		Total:         sub.Total,
		SubmittedAt:   sub.SubmittedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return race.ErrDuplicateWord
		}
		return err
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context, raceID, userID string, round int) ([]*race.WordSubmission, error) {
	query := s.db.WithContext(ctx).
		Where("race_id = ? AND user_id = ?", raceID, userID)
	if round >= 0 {
		query = query.Where("round = ?", round)
	}
	var records []Submission
	if err := query.Order("submitted_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*race.WordSubmission, 0, len(records))
	for _, record := range records {
		list = append(list, &race.WordSubmission{
			RaceID:        record.RaceID,
			UserID:        record.UserID,
			Word:          record.Word,
			Round:         record.Round,
			Rarity:        record.Rarity,
			TileScore:     record.TileScore,
			BaseScore:     record.BaseScore,
			RarityBonus:   record.RarityBonus,
			StreakBonus:   record.StreakBonus,
			ScrabbleBonus: record.ScrabbleBonus,
			TimeBonus:     record.TimeBonus,
			Total:         record.Total,
			SubmittedAt:   record.SubmittedAt,
		})
	}
	return list, nil
}

func (s *Store) CreateResult(ctx context.Context, r *race.RaceResult) error {
	record := Result{
		RaceID:           r.RaceID,
		UserID:           r.UserID,
		Username:         r.Username,
		FinalScore:       r.FinalScore,
		WordsFound:       r.WordsFound,
		Streak:           r.Streak,
		RareWordsFound:   r.RareWordsFound,
		AverageWordScore: r.AverageWordScore,
		Rank:             r.Rank,
		CompletedAt:      r.CompletedAt,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *Store) ListResults(ctx context.Context, raceID string) ([]*race.RaceResult, error) {
	var records []Result
	err := s.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("final_score DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	list := make([]*race.RaceResult, 0, len(records))
	for _, record := range records {
		list = append(list, &race.RaceResult{
			RaceID:           record.RaceID,
			UserID:           record.UserID,
			Username:         record.Username,
			FinalScore:       record.FinalScore,
			WordsFound:       record.WordsFound,
			Streak:           record.Streak,
			RareWordsFound:   record.RareWordsFound,
			AverageWordScore: record.AverageWordScore,
			Rank:             record.Rank,
			CompletedAt:      record.CompletedAt,
		})
	}
	return list, nil
}

// ArchiveEvent appends one relayed broadcast to the event log.
func (s *Store) ArchiveEvent(ctx context.Context, topic, senderID, eventType string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	record := Event{
		Topic:    topic,
		SenderID: senderID,
		Type:     eventType,
		Payload:  datatypes.JSON(payload),
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func raceToModel(r *race.Race) (*Race, error) {
	alphagrams, err := json.Marshal(r.Alphagrams)
	if err != nil {
		return nil, fmt.Errorf("marshal alphagrams: %w", err)
	}
	record := &Race{
		ID:              r.ID,
		Name:            r.Name,
		Type:            string(r.Type),
		Difficulty:      string(r.Difficulty),
		Duration:        r.Duration,
		MaxPlayers:      r.MaxPlayers,
		CurrentPlayers:  r.CurrentPlayers,
		Status:          string(r.Status),
		CreatorID:       r.CreatorID,
		Public:          r.Public,
		Rounds:          r.Rounds,
		Alphagrams:      datatypes.JSON(alphagrams),
		WordLength:      r.WordLength,
		ProbabilityMode: r.ProbabilityMode,
		MinRarity:       r.MinRarity,
		MaxRarity:       r.MaxRarity,
		Hints:           r.Settings.Hints,
		Chat:            r.Settings.Chat,
		TimeBonus:       r.Settings.TimeBonus,
		CreatedAt:       r.CreatedAt,
	}
	if !r.StartedAt.IsZero() {
		record.StartedAt = &r.StartedAt
	}
	if !r.FinishedAt.IsZero() {
		record.FinishedAt = &r.FinishedAt
	}
	return record, nil
}

func modelToRace(record *Race) (*race.Race, error) {
	var alphagrams []string
	if len(record.Alphagrams) > 0 {
		if err := json.Unmarshal(record.Alphagrams, &alphagrams); err != nil {
			return nil, fmt.Errorf("unmarshal alphagrams: %w", err)
		}
	}
	out := &race.Race{
		ID:              record.ID,
		Name:            record.Name,
		Type:            race.RaceType(record.Type),
		Difficulty:      race.Difficulty(record.Difficulty),
		Duration:        record.Duration,
		MaxPlayers:      record.MaxPlayers,
		CurrentPlayers:  record.CurrentPlayers,
		Status:          race.Status(record.Status),
		CreatorID:       record.CreatorID,
		Public:          record.Public,
		Rounds:          record.Rounds,
		Alphagrams:      alphagrams,
		WordLength:      record.WordLength,
		ProbabilityMode: record.ProbabilityMode,
		MinRarity:       record.MinRarity,
		MaxRarity:       record.MaxRarity,
		Settings: race.Settings{
			Hints:     record.Hints,
			Chat:      record.Chat,
			TimeBonus: record.TimeBonus,
		},
		CreatedAt: record.CreatedAt,
	}
	if record.StartedAt != nil {
		out.StartedAt = *record.StartedAt
	}
	if record.FinishedAt != nil {
		out.FinishedAt = *record.FinishedAt
	}
	return out, nil
}

func participantToModel(p *race.Participant) *Participant {
	record := &Participant{
		RaceID:           p.RaceID,
		UserID:           p.UserID,
		Username:         p.Username,
		Score:            p.Score,
		WordsFound:       p.WordsFound,
		CurrentRound:     p.CurrentRound,
		Streak:           p.Streak,
		RareWordsFound:   p.RareWordsFound,
		AverageWordScore: p.AverageWordScore,
		Ready:            p.Ready,
		JoinedAt:         p.JoinedAt,
	}
	if !p.FinishedAt.IsZero() {
		record.FinishedAt = &p.FinishedAt
	}
	return record
}

func modelToParticipant(record *Participant) *race.Participant {
	out := &race.Participant{
		RaceID:           record.RaceID,
		UserID:           record.UserID,
		Username:         record.Username,
		Score:            record.Score,
		WordsFound:       record.WordsFound,
		CurrentRound:     record.CurrentRound,
		Streak:           record.Streak,
		RareWordsFound:   record.RareWordsFound,
		AverageWordScore: record.AverageWordScore,
		Ready:            record.Ready,
		JoinedAt:         record.JoinedAt,
	}
	if record.FinishedAt != nil {
		out.FinishedAt = *record.FinishedAt
	}
	return out
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
