package gateway

import (
	"context"
	"testing"
	"time"

	"wordrace/internal/bus"
	"wordrace/internal/race"
)

// Full stack: two sessions in separate "processes" sharing only the
// record store and the websocket gateway, mirroring each other's
// progress through relayed presence and broadcasts.
func TestSessionsOverGateway(t *testing.T) {
	_, wsURL := startGateway(t, nil)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := race.NewMemoryStore()

	deps := func(clientID string) race.Deps {
		return race.Deps{
			Store: store,
			Dict:  race.NewLexicon(),
			Bus:   bus.NewWSBus(wsURL, clientID),
			Gen:   race.FixedGenerator{Sets: []string{"ACT"}},
			Log:   testLogger(),
			Now:   func() time.Time { return now },
		}
	}

	alice := race.NewSession(deps("c1"), "u1", "alice")
	created, err := alice.Create(ctx, race.RaceConfig{})
	if err != nil {
		t.Skipf("websocket dial failed: %v", err)
	}

	bob := race.NewSession(deps("c2"), "u2", "bob")
	if err := bob.Join(ctx, created.ID); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(alice.Live().Players) == 2
	})

	if err := alice.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return bob.Live().Status == race.StatusActive
	})

	if _, err := alice.SubmitWord(ctx, "CAT"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap := bob.Live()
		return len(snap.RecentWords) == 1 && snap.RecentWords[0].Word == "CAT"
	})
	waitFor(t, 2*time.Second, func() bool {
		snap := bob.Live()
		return len(snap.Players) == 2 && snap.Players[0].UserID == "u1" && snap.Players[0].Score == 28
	})

	// Bob saw the start only through the relayed broadcast; he can
	// still play.
	if _, err := bob.SubmitWord(ctx, "ACT"); err != nil {
		t.Fatalf("submit after relayed start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(alice.Live().RecentWords) == 2
	})

	if err := bob.Leave(ctx); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap := alice.Live()
		return len(snap.Players) == 1 && snap.Players[0].UserID == "u1"
	})
}
