package race

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRaceNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetRace(context.Background(), "missing"); !errors.Is(err, ErrRaceNotFound) {
		t.Fatalf("expected ErrRaceNotFound, got %v", err)
	}
	if err := store.UpdateRace(context.Background(), &Race{ID: "missing"}); !errors.Is(err, ErrRaceNotFound) {
		t.Fatalf("expected ErrRaceNotFound, got %v", err)
	}
}

func TestMemoryStoreDuplicateSubmissionRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sub := &WordSubmission{RaceID: "r1", UserID: "u1", Word: "CAT", Round: 0, Total: 28}
	if err := store.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.CreateSubmission(ctx, sub); !errors.Is(err, ErrDuplicateWord) {
		t.Fatalf("expected ErrDuplicateWord, got %v", err)
	}
	// Same word in another round is a distinct row.
	other := &WordSubmission{RaceID: "r1", UserID: "u1", Word: "CAT", Round: 1}
	if err := store.CreateSubmission(ctx, other); err != nil {
		t.Fatalf("next-round insert failed: %v", err)
	}
	list, err := store.ListSubmissions(ctx, "r1", "u1", -1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(list))
	}
}

func TestMemoryStoreHandsOutCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	race := &Race{ID: "r1", Status: StatusWaiting, Alphagrams: []string{"ACT"}}
	if err := store.CreateRace(ctx, race); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	race.Status = StatusFinished
	race.Alphagrams[0] = "XYZ"

	stored, err := store.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != StatusWaiting || stored.Alphagrams[0] != "ACT" {
		t.Fatalf("store state aliased by caller mutation: %+v", stored)
	}
}

func TestMemoryStoreParticipantsOrderedByJoin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"u3", "u1", "u2"} {
		p := &Participant{RaceID: "r1", UserID: user, JoinedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.CreateParticipant(ctx, p); err != nil {
			t.Fatalf("create %s failed: %v", user, err)
		}
	}
	list, err := store.ListParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 || list[0].UserID != "u3" || list[2].UserID != "u2" {
		t.Fatalf("unexpected order: %v", list)
	}
}

func TestMemoryStoreResultsOrderedByScore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, r := range []*RaceResult{
		{RaceID: "r1", UserID: "u1", FinalScore: 50},
		{RaceID: "r1", UserID: "u2", FinalScore: 120},
		{RaceID: "r1", UserID: "u3", FinalScore: 80},
	} {
		if err := store.CreateResult(ctx, r); err != nil {
			t.Fatalf("create result failed: %v", err)
		}
	}
	list, err := store.ListResults(ctx, "r1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list[0].UserID != "u2" || list[1].UserID != "u3" || list[2].UserID != "u1" {
		t.Fatalf("unexpected order: %v", list)
	}
}
