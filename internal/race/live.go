package race

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"wordrace/internal/bus"
)

const (
	// liveRecentWords bounds the recent-activity feed.
	liveRecentWords = 10
	// liveStaleAfter is how long a player may go without presence
	// activity before the live view marks them inactive.
	liveStaleAfter = 90 * time.Second
)

// LiveSnapshot is a read-only copy of the live view handed to the UI.
type LiveSnapshot struct {
	Players      []LivePlayer
	Spectators   []LiveSpectator
	RecentWords  []WordEvent
	CurrentRound int
	Status       Status
}

// LiveState reconstructs a merged view of players, spectators,
// rankings and recent activity from presence snapshots and broadcast
// events. It is a per-client, derived projection: never authoritative,
// never persisted, and safe to rebuild from scratch on every update.
type LiveState struct {
	mu         sync.Mutex
	now        func() time.Time
	members    []bus.PresenceState
	players    []LivePlayer
	spectators []LiveSpectator
	recent     []WordEvent
	round      int
	status     Status
}

func NewLiveState() *LiveState {
	return &LiveState{
		now:    timeNowUTC,
		status: StatusWaiting,
	}
}

// Callbacks returns the bus callbacks that drive this view.
func (l *LiveState) Callbacks() bus.Callbacks {
	return bus.Callbacks{
		OnSync:      l.ApplySync,
		OnJoin:      l.ApplyJoin,
		OnLeave:     l.ApplyLeave,
		OnBroadcast: l.ApplyBroadcast,
	}
}

// ApplySync replaces the membership table with the transport's full
// snapshot and re-ranks. A reconnecting client re-derives its entire
// view from this call alone.
func (l *LiveState) ApplySync(states []bus.PresenceState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = append([]bus.PresenceState(nil), states...)
	l.rebuild()
}

// ApplyJoin upserts a single member reported by a join delta.
func (l *LiveState) ApplyJoin(state bus.PresenceState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.upsert(state)
	l.rebuild()
}

// ApplyLeave drops a member reported by a leave delta.
func (l *LiveState) ApplyLeave(state bus.PresenceState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, member := range l.members {
		if member.UserID == state.UserID {
			l.members = append(l.members[:i], l.members[i+1:]...)
			break
		}
	}
	l.rebuild()
}

// ApplyBroadcast folds one broadcast event into the view.
func (l *LiveState) ApplyBroadcast(event bus.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch event.Type {
	case EventRaceStarted:
		l.status = StatusActive
	case EventRaceFinished:
		l.status = StatusFinished
	case EventRoundCompleted:
		var payload RoundCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		if payload.Round > l.round {
			l.round = payload.Round
		}
	case EventWordSubmitted:
		var payload WordSubmittedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		entry := WordEvent{
			UserID:   payload.UserID,
			Username: payload.Username,
			Word:     payload.Word,
			Score:    payload.Score,
			Round:    payload.Round,
			At:       payload.At,
		}
		l.recent = append([]WordEvent{entry}, l.recent...)
		if len(l.recent) > liveRecentWords {
			l.recent = l.recent[:liveRecentWords]
		}
	case EventPlayerProgress:
		var payload PlayerProgressPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		for i := range l.members {
			if l.members[i].UserID != payload.UserID {
				continue
			}
			l.members[i].Score = payload.Score
			l.members[i].WordsFound = payload.WordsFound
			l.members[i].Round = payload.Round
			l.members[i].Streak = payload.Streak
			l.members[i].LastActivity = event.SentAt
			break
		}
		l.rebuild()
	}
}

// Snapshot returns a copy of the current view.
func (l *LiveState) Snapshot() LiveSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LiveSnapshot{
		Players:      append([]LivePlayer(nil), l.players...),
		Spectators:   append([]LiveSpectator(nil), l.spectators...),
		RecentWords:  append([]WordEvent(nil), l.recent...),
		CurrentRound: l.round,
		Status:       l.status,
	}
}

func (l *LiveState) upsert(state bus.PresenceState) {
	for i := range l.members {
		if l.members[i].UserID == state.UserID {
			l.members[i] = state
			return
		}
	}
	l.members = append(l.members, state)
}

// rebuild recomputes players, spectators and rankings from the latest
// membership table. Players are sorted by score descending; the sort
// is stable over the previous ranking order, so equal scores keep
// their prior relative positions. Caller holds the lock.
func (l *LiveState) rebuild() {
	prev := make(map[string]int, len(l.players))
	for i, p := range l.players {
		prev[p.UserID] = i
	}

	now := l.now()
	players := make([]LivePlayer, 0, len(l.members))
	spectators := make([]LiveSpectator, 0)
	for _, member := range l.members {
		if member.Spectator {
			spectators = append(spectators, LiveSpectator{
				UserID:       member.UserID,
				Username:     member.Username,
				LastActivity: member.LastActivity,
			})
			continue
		}
		active := member.Status != PlayerFinished &&
			(member.LastActivity.IsZero() || now.Sub(member.LastActivity) <= liveStaleAfter)
		players = append(players, LivePlayer{
			UserID:       member.UserID,
			Username:     member.Username,
			Score:        member.Score,
			WordsFound:   member.WordsFound,
			Round:        member.Round,
			Streak:       member.Streak,
			Active:       active,
			Status:       member.Status,
			LastActivity: member.LastActivity,
		})
	}

	// Restore the previous ranking order before the stable re-sort;
	// newcomers go after everyone already ranked, in table order.
	sort.SliceStable(players, func(i, j int) bool {
		pi, iKnown := prev[players[i].UserID]
		pj, jKnown := prev[players[j].UserID]
		if iKnown && jKnown {
			return pi < pj
		}
		return iKnown && !jKnown
	})
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
	for i := range players {
		players[i].Position = i + 1
	}

	l.players = players
	l.spectators = spectators
}
