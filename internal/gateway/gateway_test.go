package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wordrace/internal/bus"

	"github.com/sirupsen/logrus"
)

type recorder struct {
	mu     sync.Mutex
	syncs  [][]bus.PresenceState
	joins  []bus.PresenceState
	leaves []bus.PresenceState
	events []bus.Event
}

func (r *recorder) callbacks() bus.Callbacks {
	return bus.Callbacks{
		OnSync: func(states []bus.PresenceState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.syncs = append(r.syncs, states)
		},
		OnJoin: func(state bus.PresenceState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.joins = append(r.joins, state)
		},
		OnLeave: func(state bus.PresenceState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.leaves = append(r.leaves, state)
		},
		OnBroadcast: func(event bus.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, event)
		},
	}
}

func (r *recorder) counts() (syncs, joins, leaves, events int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.syncs), len(r.joins), len(r.leaves), len(r.events)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func startGateway(t *testing.T, archive Archiver) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(New(testLogger(), archive).Handler())
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func subscribe(t *testing.T, wsURL, clientID, topic string, cb bus.Callbacks) bus.Subscription {
	t.Helper()
	sub, err := bus.NewWSBus(wsURL, clientID).Subscribe(context.Background(), topic, cb)
	if err != nil {
		t.Skipf("websocket dial failed: %v", err)
	}
	return sub
}

func TestGatewayMissingTopicNotFound(t *testing.T) {
	srv, _ := startGateway(t, nil)
	resp, err := http.Get(srv.URL + "/realtime/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGatewayRelaysPresenceAndBroadcasts(t *testing.T) {
	_, wsURL := startGateway(t, nil)
	ctx := context.Background()

	a := &recorder{}
	b := &recorder{}
	subA := subscribe(t, wsURL, "c1", "race:1", a.callbacks())
	defer subA.Unsubscribe()
	subB := subscribe(t, wsURL, "c2", "race:1", b.callbacks())
	defer subB.Unsubscribe()

	if err := subA.Track(ctx, bus.PresenceState{UserID: "u1", Username: "alice"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, joins, _, _ := b.counts()
		return joins == 1
	})
	b.mu.Lock()
	joined := b.joins[0]
	b.mu.Unlock()
	if joined.UserID != "u1" || joined.Username != "alice" {
		t.Fatalf("unexpected join state: %+v", joined)
	}

	if err := subA.Send(ctx, "word_submitted", map[string]any{"word": "CAT", "score": 28}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	// Broadcasts reach the sender too.
	for _, r := range []*recorder{a, b} {
		waitFor(t, 2*time.Second, func() bool {
			_, _, _, events := r.counts()
			return events == 1
		})
	}
	b.mu.Lock()
	event := b.events[0]
	b.mu.Unlock()
	if event.Type != "word_submitted" || event.SenderID != "u1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	var payload map[string]any
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["word"] != "CAT" {
		t.Fatalf("payload lost in relay: %v", payload)
	}

	if err := subA.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, _, leaves, _ := b.counts()
		return leaves == 1
	})
	// The leave is followed by a sync snapshot without the departed
	// member.
	waitFor(t, 2*time.Second, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.syncs) > 0 && len(b.syncs[len(b.syncs)-1]) == 0
	})
}

func TestGatewayUntrackedSenderUsesClientID(t *testing.T) {
	_, wsURL := startGateway(t, nil)
	ctx := context.Background()

	r := &recorder{}
	watcher := subscribe(t, wsURL, "c-watch", "race:1", r.callbacks())
	defer watcher.Unsubscribe()
	sender := subscribe(t, wsURL, "c-anon", "race:1", bus.Callbacks{})
	defer sender.Unsubscribe()

	if err := sender.Send(ctx, "ping", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, _, _, events := r.counts()
		return events == 1
	})
	r.mu.Lock()
	event := r.events[0]
	r.mu.Unlock()
	if event.SenderID != "c-anon" {
		t.Fatalf("expected client id attribution, got %q", event.SenderID)
	}
}

type memArchiver struct {
	mu      sync.Mutex
	topics  []string
	senders []string
	types   []string
}

func (a *memArchiver) ArchiveEvent(_ context.Context, topic, senderID, eventType string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.topics = append(a.topics, topic)
	a.senders = append(a.senders, senderID)
	a.types = append(a.types, eventType)
	return nil
}

func TestGatewayArchivesBroadcasts(t *testing.T) {
	archive := &memArchiver{}
	_, wsURL := startGateway(t, archive)
	ctx := context.Background()

	sub := subscribe(t, wsURL, "c1", "race:9", bus.Callbacks{})
	defer sub.Unsubscribe()
	if err := sub.Track(ctx, bus.PresenceState{UserID: "u1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if err := sub.Send(ctx, "race_started", map[string]string{"race_id": "r9"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		archive.mu.Lock()
		defer archive.mu.Unlock()
		return len(archive.types) == 1
	})
	archive.mu.Lock()
	defer archive.mu.Unlock()
	if archive.topics[0] != "race:9" || archive.senders[0] != "u1" || archive.types[0] != "race_started" {
		t.Fatalf("unexpected archive row: %s %s %s", archive.topics[0], archive.senders[0], archive.types[0])
	}
}

func TestGatewayTopicsIsolated(t *testing.T) {
	_, wsURL := startGateway(t, nil)
	ctx := context.Background()

	r := &recorder{}
	other := subscribe(t, wsURL, "c1", "race:2", r.callbacks())
	defer other.Unsubscribe()
	sender := subscribe(t, wsURL, "c2", "race:1", bus.Callbacks{})
	defer sender.Unsubscribe()

	if err := sender.Send(ctx, "word_submitted", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, _, _, events := r.counts(); events != 0 {
		t.Fatalf("event crossed topics")
	}
}
