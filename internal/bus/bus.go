// Package bus defines the presence and broadcast channel abstraction
// used to keep race participants converged. Any compliant pub/sub
// transport can back it; implementations guarantee at-most-once
// delivery, in-order delivery of a single sender's successive sends,
// and no replay for late subscribers.
package bus

import (
	"context"
	"encoding/json"
	"time"
)

// PresenceState is the ephemeral per-connection state a subscriber
// publishes to its topic via Track.
type PresenceState struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Spectator    bool      `json:"spectator"`
	Score        int       `json:"score"`
	WordsFound   int       `json:"words_found"`
	Round        int       `json:"round"`
	Streak       int       `json:"streak"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
}

// Event is a fire-and-forget broadcast delivered to all current
// subscribers of a topic.
type Event struct {
	Type     string          `json:"type"`
	SenderID string          `json:"sender_id"`
	Payload  json.RawMessage `json:"payload"`
	SentAt   time.Time       `json:"sent_at"`
}

// Callbacks receives bus events for one subscription. Each callback
// may be nil. Within one subscription, callbacks are invoked
// sequentially in receipt order, from a dispatch goroutine owned by
// the transport.
type Callbacks struct {
	OnSync      func(states []PresenceState)
	OnJoin      func(state PresenceState)
	OnLeave     func(state PresenceState)
	OnBroadcast func(event Event)
}

// Bus hands out topic subscriptions. Subscribe returns only once the
// transport confirms the subscription is active; callers must not
// Track or Send before that.
type Bus interface {
	Subscribe(ctx context.Context, topic string, cb Callbacks) (Subscription, error)
}

// Subscription is one client's membership of a topic.
type Subscription interface {
	// Track publishes this subscriber's ephemeral presence state.
	Track(ctx context.Context, state PresenceState) error
	// Send broadcasts an event to all current topic subscribers.
	Send(ctx context.Context, eventType string, payload any) error
	// Unsubscribe tears down the subscription. Idempotent.
	Unsubscribe() error
}
