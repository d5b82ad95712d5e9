package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/comalice/roomforge/room"
)

// Timing and framing constants mirror the teacher pack's websocket client
// loop (wfunc/slot-game internal/websocket.Client): a read deadline pushed
// out by pong frames, and a ping cadence comfortably inside it.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// inboundMessage is one client->server frame. The first frame on a
// connection must be a "join"; every frame after that is forwarded to the
// room as an event named by Type, with Payload as its data.
type inboundMessage struct {
	Type         string         `json:"type"`
	RoomID       string         `json:"roomId,omitempty"`
	DefinitionID string         `json:"definitionId,omitempty"`
	Name         string         `json:"name,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// outboundMessage is one server->client frame: either a full state snapshot
// (Type "state") or a relayed room broadcast (Type is the broadcast's own
// event name).
type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// connection owns one websocket's lifecycle: join handshake, event
// forwarding, and broadcast relay. Grounded on the teacher pack's
// ReadPump/WritePump split (wfunc/slot-game internal/websocket.Client) —
// one goroutine blocked in Conn.ReadMessage, one goroutine draining a send
// channel and issuing periodic pings, joined only by connection state, not
// a shared lock.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	manager   *room.Manager
	defs      *definitionRegistry
	logger    *zap.Logger

	send chan outboundMessage
	room *room.Room
}

func newConnection(conn *websocket.Conn, manager *room.Manager, defs *definitionRegistry, logger *zap.Logger) *connection {
	return &connection{
		conn:      conn,
		sessionID: uuid.New().String(),
		manager:   manager,
		defs:      defs,
		logger:    logger,
		send:      make(chan outboundMessage, sendBuffer),
	}
}

func (c *connection) serve() {
	go c.writePump()
	c.readPump()
}

func (c *connection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("roomserver: connection read error", zap.String("session", c.sessionID), zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		if c.room == nil {
			if msg.Type != "join" {
				c.sendError("first message must be \"join\"")
				continue
			}
			if err := c.handleJoin(msg); err != nil {
				c.sendError(err.Error())
			}
			continue
		}

		if err := c.room.Dispatch(msg.Type, c.sessionID, msg.Payload); err != nil {
			c.logger.Warn("roomserver: dispatch failed", zap.String("session", c.sessionID),
				zap.String("event", msg.Type), zap.Error(err))
		}
	}
}

func (c *connection) handleJoin(msg inboundMessage) error {
	r, ok := c.manager.Get(msg.RoomID)
	if !ok {
		def, ok := c.defs.get(msg.DefinitionID)
		if !ok {
			return fmt.Errorf("unknown definition %q", msg.DefinitionID)
		}
		created, err := c.manager.Create(room.Options{
			ID:         msg.RoomID,
			Definition: def,
			Logger:     c.logger,
		})
		if err != nil {
			return err
		}
		r = created
	}

	if _, err := r.Join(c.sessionID, msg.Name); err != nil {
		return err
	}
	c.room = r

	broadcasts := r.Subscribe(c.sessionID)
	go c.relayBroadcasts(broadcasts)

	c.send <- outboundMessage{Type: "state", Data: r.State().ToJSON()}
	return nil
}

func (c *connection) relayBroadcasts(msgs <-chan room.Message) {
	for m := range msgs {
		select {
		case c.send <- outboundMessage{Type: m.Event, Data: m.Data}:
		default:
			c.logger.Warn("roomserver: dropped broadcast, slow client", zap.String("session", c.sessionID))
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) sendError(reason string) {
	select {
	case c.send <- outboundMessage{Type: "error", Data: reason}:
	default:
	}
}

// close runs on readPump's exit. It leaves the room (which unsubscribes
// and closes the broadcast channel relayBroadcasts is ranging over) and
// closes the socket; writePump returns when its next write (a queued
// message or the periodic ping) fails on the closed socket. The send channel itself is never closed: relayBroadcasts and
// readPump both only ever send to it, never both send and close, so there
// is no close-of-closed-channel or send-after-close race to guard against.
func (c *connection) close() {
	if c.room != nil {
		if err := c.room.Leave(c.sessionID); err != nil {
			c.logger.Warn("roomserver: leave failed", zap.String("session", c.sessionID), zap.Error(err))
		}
	}
	c.conn.Close()
}
