package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Wire protocol shared with the gateway. A subscription is one
// websocket connection to /realtime/<topic>; the gateway confirms it
// with an ack frame before anything else flows.

// ClientFrame is a client-to-gateway message.
type ClientFrame struct {
	Action  string          `json:"action"` // "track" or "send"
	State   *PresenceState  `json:"state,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is a gateway-to-client message.
type ServerFrame struct {
	Type   string          `json:"type"` // ack, sync, join, leave, broadcast
	Topic  string          `json:"topic,omitempty"`
	States []PresenceState `json:"states,omitempty"`
	State  *PresenceState  `json:"state,omitempty"`
	Event  *Event          `json:"event,omitempty"`
}

const (
	FrameAck       = "ack"
	FrameSync      = "sync"
	FrameJoin      = "join"
	FrameLeave     = "leave"
	FrameBroadcast = "broadcast"
)

const wsWriteTimeout = 10 * time.Second

// WSBus is a Bus over a websocket connection to the realtime gateway.
// Each subscription dials its own connection; reconnection after a
// drop is the caller's responsibility and means subscribing again from
// scratch.
type WSBus struct {
	baseURL  string
	clientID string
	dialer   *websocket.Dialer
}

// NewWSBus returns a bus dialing the gateway at baseURL, e.g.
// "ws://localhost:8080". clientID identifies this connection to the
// gateway for sender attribution.
func NewWSBus(baseURL, clientID string) *WSBus {
	return &WSBus{
		baseURL:  baseURL,
		clientID: clientID,
		dialer:   websocket.DefaultDialer,
	}
}

func (b *WSBus) Subscribe(ctx context.Context, topic string, cb Callbacks) (Subscription, error) {
	endpoint := b.baseURL + "/realtime/" + url.PathEscape(topic) + "?client=" + url.QueryEscape(b.clientID)
	conn, _, err := b.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	// The subscription is active only once the gateway acks it.
	var ack ServerFrame
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(wsWriteTimeout))
	}
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("await subscribe ack: %w", err)
	}
	if ack.Type != FrameAck {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected frame %q before ack", ack.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	sub := &wsSub{conn: conn, cb: cb}
	go sub.readLoop()
	return sub, nil
}

type wsSub struct {
	conn    *websocket.Conn
	cb      Callbacks
	writeMu sync.Mutex
	once    sync.Once
}

// readLoop dispatches incoming frames in receipt order.
func (s *wsSub) readLoop() {
	for {
		var frame ServerFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case FrameSync:
			if s.cb.OnSync != nil {
				s.cb.OnSync(frame.States)
			}
		case FrameJoin:
			if s.cb.OnJoin != nil && frame.State != nil {
				s.cb.OnJoin(*frame.State)
			}
		case FrameLeave:
			if s.cb.OnLeave != nil && frame.State != nil {
				s.cb.OnLeave(*frame.State)
			}
		case FrameBroadcast:
			if s.cb.OnBroadcast != nil && frame.Event != nil {
				s.cb.OnBroadcast(*frame.Event)
			}
		}
	}
}

func (s *wsSub) Track(ctx context.Context, state PresenceState) error {
	return s.writeFrame(ctx, ClientFrame{Action: "track", State: &state})
}

func (s *wsSub) Send(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return s.writeFrame(ctx, ClientFrame{Action: "send", Type: eventType, Payload: data})
}

func (s *wsSub) writeFrame(ctx context.Context, frame ClientFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteJSON(frame)
}

func (s *wsSub) Unsubscribe() error {
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	return nil
}
