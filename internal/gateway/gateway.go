// Package gateway implements the server side of the presence and
// broadcast bus: a websocket relay hub that tracks per-topic
// membership and fans broadcasts out to every subscriber. It keeps
// nothing beyond the current membership table; clients that join late
// never see earlier events.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"wordrace/internal/bus"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// Archiver persists relayed broadcasts for auditing. Optional; a nil
// archiver disables archival.
type Archiver interface {
	ArchiveEvent(ctx context.Context, topic, senderID, eventType string, payload []byte) error
}

// Gateway relays presence and broadcast frames between all websocket
// clients subscribed to a topic.
type Gateway struct {
	mu      sync.Mutex
	topics  map[string][]*client
	log     *logrus.Logger
	archive Archiver
}

func New(log *logrus.Logger, archive Archiver) *Gateway {
	if log == nil {
		log = logrus.New()
	}
	return &Gateway{
		topics:  make(map[string][]*client),
		log:     log,
		archive: archive,
	}
}

// Handler serves the realtime endpoint: GET /realtime/{topic}.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /realtime/", g.handleWebsocket)
	return mux
}

type client struct {
	conn    *websocket.Conn
	id      string
	topic   string
	writeMu sync.Mutex
	state   *bus.PresenceState
}

func (c *client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (g *Gateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimPrefix(r.URL.Path, "/realtime/")
	if topic == "" {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{
		conn:  conn,
		id:    r.URL.Query().Get("client"),
		topic: topic,
	}
	if err := c.write(bus.ServerFrame{Type: bus.FrameAck, Topic: topic}); err != nil {
		_ = conn.Close()
		return
	}

	g.mu.Lock()
	g.topics[topic] = append(g.topics[topic], c)
	g.mu.Unlock()
	g.log.WithFields(logrus.Fields{
		"topic":  topic,
		"client": c.id,
		"remote": r.RemoteAddr,
	}).Info("realtime client connected")

	go g.readLoop(c)
}

func (g *Gateway) readLoop(c *client) {
	defer g.remove(c)
	for {
		var frame bus.ClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			g.log.WithFields(logrus.Fields{
				"topic":  c.topic,
				"client": c.id,
			}).Debug("realtime client disconnected")
			return
		}
		switch frame.Action {
		case "track":
			if frame.State != nil {
				g.handleTrack(c, *frame.State)
			}
		case "send":
			g.handleSend(c, frame.Type, frame.Payload)
		}
	}
}

// handleTrack updates the client's presence and pushes a join delta
// (first track only) plus a fresh sync snapshot to the whole topic.
func (g *Gateway) handleTrack(c *client, state bus.PresenceState) {
	g.mu.Lock()
	first := c.state == nil
	c.state = &state
	members, snapshot := g.membersLocked(c.topic)
	g.mu.Unlock()

	if first {
		g.fanOut(members, bus.ServerFrame{Type: bus.FrameJoin, State: &state})
	}
	g.fanOut(members, bus.ServerFrame{Type: bus.FrameSync, States: snapshot})
}

// handleSend relays a broadcast to every subscriber of the topic,
// sender included, and archives it when an archiver is configured.
func (g *Gateway) handleSend(c *client, eventType string, payload []byte) {
	senderID := c.id
	g.mu.Lock()
	if c.state != nil {
		senderID = c.state.UserID
	}
	members, _ := g.membersLocked(c.topic)
	g.mu.Unlock()

	event := bus.Event{
		Type:     eventType,
		SenderID: senderID,
		Payload:  payload,
		SentAt:   time.Now().UTC(),
	}
	g.fanOut(members, bus.ServerFrame{Type: bus.FrameBroadcast, Event: &event})

	if g.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := g.archive.ArchiveEvent(ctx, c.topic, senderID, eventType, payload); err != nil {
			g.log.WithError(err).WithField("topic", c.topic).Warn("event archive failed")
		}
	}
}

// remove drops the client and, if it was tracked, announces the leave
// and a fresh sync to the remaining members.
func (g *Gateway) remove(c *client) {
	g.mu.Lock()
	members := g.topics[c.topic]
	found := false
	for i, member := range members {
		if member == c {
			g.topics[c.topic] = append(members[:i], members[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		g.mu.Unlock()
		return
	}
	if len(g.topics[c.topic]) == 0 {
		delete(g.topics, c.topic)
	}
	left := c.state
	remaining, snapshot := g.membersLocked(c.topic)
	g.mu.Unlock()

	_ = c.conn.Close()
	if left != nil {
		g.fanOut(remaining, bus.ServerFrame{Type: bus.FrameLeave, State: left})
		g.fanOut(remaining, bus.ServerFrame{Type: bus.FrameSync, States: snapshot})
	}
}

// membersLocked snapshots the topic's clients and their tracked
// presence. Caller holds the lock.
func (g *Gateway) membersLocked(topic string) ([]*client, []bus.PresenceState) {
	members := append([]*client(nil), g.topics[topic]...)
	states := make([]bus.PresenceState, 0, len(members))
	for _, member := range members {
		if member.state != nil {
			states = append(states, *member.state)
		}
	}
	return members, states
}

func (g *Gateway) fanOut(members []*client, frame bus.ServerFrame) {
	for _, member := range members {
		if err := member.write(frame); err != nil {
			g.remove(member)
		}
	}
}
