package race

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"wordrace/internal/bus"
)

func liveAt(t *testing.T, at time.Time) *LiveState {
	t.Helper()
	l := NewLiveState()
	l.now = func() time.Time { return at }
	return l
}

func progressEvent(t *testing.T, userID string, score int, at time.Time) bus.Event {
	t.Helper()
	data, err := json.Marshal(PlayerProgressPayload{UserID: userID, Score: score, WordsFound: 1})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return bus.Event{Type: EventPlayerProgress, SenderID: userID, Payload: data, SentAt: at}
}

func TestLiveStateRanksByScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	l.ApplySync([]bus.PresenceState{
		{UserID: "u1", Username: "alice", Score: 30, LastActivity: now},
		{UserID: "u2", Username: "bob", Score: 80, LastActivity: now},
		{UserID: "u3", Username: "cara", Score: 50, LastActivity: now},
	})

	snap := l.Snapshot()
	if len(snap.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(snap.Players))
	}
	for i, want := range []string{"u2", "u3", "u1"} {
		if snap.Players[i].UserID != want {
			t.Fatalf("position %d: expected %s, got %s", i+1, want, snap.Players[i].UserID)
		}
		if snap.Players[i].Position != i+1 {
			t.Fatalf("expected position %d, got %d", i+1, snap.Players[i].Position)
		}
	}
}

func TestLiveStateTiesKeepPriorOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	l.ApplySync([]bus.PresenceState{
		{UserID: "u1", Score: 40, LastActivity: now},
		{UserID: "u2", Score: 20, LastActivity: now},
	})

	// u2 catches up to a tie; u1 was ranked above and stays above.
	l.ApplyBroadcast(progressEvent(t, "u2", 40, now))
	snap := l.Snapshot()
	if snap.Players[0].UserID != "u1" || snap.Players[1].UserID != "u2" {
		t.Fatalf("tie broke prior order: %s, %s", snap.Players[0].UserID, snap.Players[1].UserID)
	}

	// Re-applying the identical snapshot must not reshuffle the tie.
	l.ApplySync([]bus.PresenceState{
		{UserID: "u2", Score: 40, LastActivity: now},
		{UserID: "u1", Score: 40, LastActivity: now},
	})
	snap = l.Snapshot()
	if snap.Players[0].UserID != "u1" || snap.Players[1].UserID != "u2" {
		t.Fatalf("resync reshuffled tie: %s, %s", snap.Players[0].UserID, snap.Players[1].UserID)
	}
}

func TestLiveStateSeparatesSpectators(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	l.ApplySync([]bus.PresenceState{
		{UserID: "u1", Username: "alice", Score: 10, LastActivity: now},
		{UserID: "s1", Username: "watcher", Spectator: true, LastActivity: now},
	})

	snap := l.Snapshot()
	if len(snap.Players) != 1 || snap.Players[0].UserID != "u1" {
		t.Fatalf("unexpected players: %v", snap.Players)
	}
	if len(snap.Spectators) != 1 || snap.Spectators[0].UserID != "s1" {
		t.Fatalf("unexpected spectators: %v", snap.Spectators)
	}
}

func TestLiveStateStalePlayersInactive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	l.ApplySync([]bus.PresenceState{
		{UserID: "fresh", LastActivity: now.Add(-30 * time.Second)},
		{UserID: "stale", LastActivity: now.Add(-2 * time.Minute)},
	})

	snap := l.Snapshot()
	for _, p := range snap.Players {
		switch p.UserID {
		case "fresh":
			if !p.Active {
				t.Fatalf("fresh player marked inactive")
			}
		case "stale":
			if p.Active {
				t.Fatalf("stale player marked active")
			}
		}
	}
}

func TestLiveStateRecentWordsBounded(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	for i := 0; i < liveRecentWords+5; i++ {
		data, err := json.Marshal(WordSubmittedPayload{
			UserID: "u1",
			Word:   fmt.Sprintf("WORD%d", i),
			Score:  i,
			At:     now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		l.ApplyBroadcast(bus.Event{Type: EventWordSubmitted, Payload: data, SentAt: now})
	}

	snap := l.Snapshot()
	if len(snap.RecentWords) != liveRecentWords {
		t.Fatalf("expected %d recent words, got %d", liveRecentWords, len(snap.RecentWords))
	}
	if snap.RecentWords[0].Word != fmt.Sprintf("WORD%d", liveRecentWords+4) {
		t.Fatalf("expected newest word first, got %s", snap.RecentWords[0].Word)
	}
}

func TestLiveStateMirrorsStatusAndRound(t *testing.T) {
	l := NewLiveState()
	if l.Snapshot().Status != StatusWaiting {
		t.Fatalf("expected waiting before any event")
	}

	startPayload, _ := json.Marshal(RaceStartedPayload{RaceID: "r1"})
	l.ApplyBroadcast(bus.Event{Type: EventRaceStarted, Payload: startPayload})
	if l.Snapshot().Status != StatusActive {
		t.Fatalf("expected active after race_started")
	}

	roundPayload, _ := json.Marshal(RoundCompletedPayload{UserID: "u1", Round: 3})
	l.ApplyBroadcast(bus.Event{Type: EventRoundCompleted, Payload: roundPayload})
	if l.Snapshot().CurrentRound != 3 {
		t.Fatalf("expected round 3, got %d", l.Snapshot().CurrentRound)
	}

	// A slower player's lower round never moves the shared round back.
	behindPayload, _ := json.Marshal(RoundCompletedPayload{UserID: "u2", Round: 1})
	l.ApplyBroadcast(bus.Event{Type: EventRoundCompleted, Payload: behindPayload})
	if l.Snapshot().CurrentRound != 3 {
		t.Fatalf("round regressed to %d", l.Snapshot().CurrentRound)
	}

	finishPayload, _ := json.Marshal(RaceFinishedPayload{RaceID: "r1"})
	l.ApplyBroadcast(bus.Event{Type: EventRaceFinished, Payload: finishPayload})
	if l.Snapshot().Status != StatusFinished {
		t.Fatalf("expected finished after race_finished")
	}
}

func TestLiveStateLeaveDropsMember(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := liveAt(t, now)
	l.ApplySync([]bus.PresenceState{
		{UserID: "u1", LastActivity: now},
		{UserID: "u2", LastActivity: now},
	})
	l.ApplyLeave(bus.PresenceState{UserID: "u1"})

	snap := l.Snapshot()
	if len(snap.Players) != 1 || snap.Players[0].UserID != "u2" {
		t.Fatalf("unexpected players after leave: %v", snap.Players)
	}
}
