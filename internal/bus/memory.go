package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const memoryInboxSize = 256

// Memory is an in-process Bus. Every subscription gets its own
// dispatch goroutine, so callbacks for one subscriber arrive in
// receipt order while subscribers never block each other. Used by
// tests and single-process deployments.
type Memory struct {
	mu     sync.Mutex
	topics map[string][]*memSub
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string][]*memSub)}
}

type memSub struct {
	bus     *Memory
	topic   string
	cb      Callbacks
	inbox   chan func()
	done    chan struct{}
	once    sync.Once
	tracked bool
	state   PresenceState
}

func (m *Memory) Subscribe(ctx context.Context, topic string, cb Callbacks) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memSub{
		bus:   m,
		topic: topic,
		cb:    cb,
		inbox: make(chan func(), memoryInboxSize),
		done:  make(chan struct{}),
	}
	m.mu.Lock()
	m.topics[topic] = append(m.topics[topic], sub)
	m.mu.Unlock()
	go sub.dispatch()
	return sub, nil
}

func (s *memSub) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// deliver enqueues without blocking; a subscriber that cannot keep up
// loses events, which at-most-once delivery permits.
func (s *memSub) deliver(fn func()) {
	select {
	case s.inbox <- fn:
	default:
	}
}

func (s *memSub) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *memSub) Track(ctx context.Context, state PresenceState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return errors.New("subscription closed")
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	first := !s.tracked
	s.tracked = true
	s.state = state

	members := s.bus.topics[s.topic]
	snapshot := presenceSnapshot(members)
	for _, member := range members {
		member := member
		if first {
			joined := state
			member.deliver(func() {
				if member.cb.OnJoin != nil {
					member.cb.OnJoin(joined)
				}
			})
		}
		member.deliver(func() {
			if member.cb.OnSync != nil {
				member.cb.OnSync(snapshot)
			}
		})
	}
	return nil
}

func (s *memSub) Send(ctx context.Context, eventType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return errors.New("subscription closed")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	event := Event{
		Type:     eventType,
		SenderID: s.state.UserID,
		Payload:  data,
		SentAt:   time.Now().UTC(),
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for _, member := range s.bus.topics[s.topic] {
		member := member
		member.deliver(func() {
			if member.cb.OnBroadcast != nil {
				member.cb.OnBroadcast(event)
			}
		})
	}
	return nil
}

func (s *memSub) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		members := s.bus.topics[s.topic]
		for i, member := range members {
			if member == s {
				s.bus.topics[s.topic] = append(members[:i], members[i+1:]...)
				break
			}
		}
		remaining := s.bus.topics[s.topic]
		if len(remaining) == 0 {
			delete(s.bus.topics, s.topic)
		}
		if s.tracked {
			left := s.state
			snapshot := presenceSnapshot(remaining)
			for _, member := range remaining {
				member := member
				member.deliver(func() {
					if member.cb.OnLeave != nil {
						member.cb.OnLeave(left)
					}
				})
				member.deliver(func() {
					if member.cb.OnSync != nil {
						member.cb.OnSync(snapshot)
					}
				})
			}
		}
		s.bus.mu.Unlock()
		close(s.done)
	})
	return nil
}

func presenceSnapshot(members []*memSub) []PresenceState {
	states := make([]PresenceState, 0, len(members))
	for _, member := range members {
		if member.tracked {
			states = append(states, member.state)
		}
	}
	return states
}
