package race

import (
	"context"
	"sort"
	"sync"
)

// RecordStore is the durable record interface consumed by the engine.
// Implementations must return either a result or an error, never lose
// writes silently. The engine treats every call as asynchronous I/O.
type RecordStore interface {
	CreateRace(ctx context.Context, r *Race) error
	GetRace(ctx context.Context, id string) (*Race, error)
	UpdateRace(ctx context.Context, r *Race) error

	CreateParticipant(ctx context.Context, p *Participant) error
	GetParticipant(ctx context.Context, raceID, userID string) (*Participant, error)
	ListParticipants(ctx context.Context, raceID string) ([]*Participant, error)
	UpdateParticipant(ctx context.Context, p *Participant) error
	DeleteParticipant(ctx context.Context, raceID, userID string) error

	// CreateSubmission returns ErrDuplicateWord when the same
	// (race, user, word, round) row already exists.
	CreateSubmission(ctx context.Context, s *WordSubmission) error
	// ListSubmissions with round < 0 returns all rounds.
	ListSubmissions(ctx context.Context, raceID, userID string, round int) ([]*WordSubmission, error)

	CreateResult(ctx context.Context, r *RaceResult) error
	// ListResults returns results ordered by final score descending.
	ListResults(ctx context.Context, raceID string) ([]*RaceResult, error)
}

// MemoryStore is a mutex-guarded in-memory RecordStore. It hands out
// copies, never internal pointers, so concurrent sessions sharing a
// store cannot alias each other's state.
type MemoryStore struct {
	mu           sync.Mutex
	races        map[string]*Race
	participants map[string]map[string]*Participant
	submissions  map[string][]*WordSubmission
	results      map[string]map[string]*RaceResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		races:        make(map[string]*Race),
		participants: make(map[string]map[string]*Participant),
		submissions:  make(map[string][]*WordSubmission),
		results:      make(map[string]map[string]*RaceResult),
	}
}

func (s *MemoryStore) CreateRace(_ context.Context, r *Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.races[r.ID] = cloneRace(r)
	return nil
}

func (s *MemoryStore) GetRace(_ context.Context, id string) (*Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.races[id]
	if !ok {
		return nil, ErrRaceNotFound
	}
	return cloneRace(r), nil
}

func (s *MemoryStore) UpdateRace(_ context.Context, r *Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[r.ID]; !ok {
		return ErrRaceNotFound
	}
	s.races[r.ID] = cloneRace(r)
	return nil
}

func (s *MemoryStore) CreateParticipant(_ context.Context, p *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.participants[p.RaceID]
	if group == nil {
		group = make(map[string]*Participant)
		s.participants[p.RaceID] = group
	}
	group[p.UserID] = cloneParticipant(p)
	return nil
}

func (s *MemoryStore) GetParticipant(_ context.Context, raceID, userID string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[raceID][userID]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return cloneParticipant(p), nil
}

func (s *MemoryStore) ListParticipants(_ context.Context, raceID string) ([]*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.participants[raceID]
	list := make([]*Participant, 0, len(group))
	for _, p := range group {
		list = append(list, cloneParticipant(p))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list, nil
}

func (s *MemoryStore) UpdateParticipant(_ context.Context, p *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.RaceID][p.UserID]; !ok {
		return ErrParticipantNotFound
	}
	s.participants[p.RaceID][p.UserID] = cloneParticipant(p)
	return nil
}

func (s *MemoryStore) DeleteParticipant(_ context.Context, raceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants[raceID], userID)
	return nil
}

func (s *MemoryStore) CreateSubmission(_ context.Context, sub *WordSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.submissions[sub.RaceID] {
		if existing.UserID == sub.UserID && existing.Word == sub.Word && existing.Round == sub.Round {
			return ErrDuplicateWord
		}
	}
	s.submissions[sub.RaceID] = append(s.submissions[sub.RaceID], cloneSubmission(sub))
	return nil
}

func (s *MemoryStore) ListSubmissions(_ context.Context, raceID, userID string, round int) ([]*WordSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*WordSubmission, 0)
	for _, sub := range s.submissions[raceID] {
		if sub.UserID != userID {
			continue
		}
		if round >= 0 && sub.Round != round {
			continue
		}
		list = append(list, cloneSubmission(sub))
	}
	return list, nil
}

func (s *MemoryStore) CreateResult(_ context.Context, r *RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.results[r.RaceID]
	if group == nil {
		group = make(map[string]*RaceResult)
		s.results[r.RaceID] = group
	}
	group[r.UserID] = cloneResult(r)
	return nil
}

func (s *MemoryStore) ListResults(_ context.Context, raceID string) ([]*RaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.results[raceID]
	list := make([]*RaceResult, 0, len(group))
	for _, r := range group {
		list = append(list, cloneResult(r))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].FinalScore > list[j].FinalScore
	})
	return list, nil
}

func cloneRace(r *Race) *Race {
	out := *r
	out.Alphagrams = append([]string(nil), r.Alphagrams...)
	return &out
}

func cloneParticipant(p *Participant) *Participant {
	out := *p
	return &out
}

func cloneSubmission(s *WordSubmission) *WordSubmission {
	out := *s
	return &out
}

func cloneResult(r *RaceResult) *RaceResult {
	out := *r
	return &out
}
