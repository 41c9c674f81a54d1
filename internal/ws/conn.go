// Package ws upgrades incoming requests at /ws into persistent
// bidirectional JSON-envelope channels, parses inbound messages, and
// dispatches them into the verb handler table. Its Conn and
// readPump/writePump split mirror the teacher's wsSignalConn and
// SignalWSController pumps, generalized from a single webrtc signaling
// channel into a room-broadcast registry.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrBackpressure is returned by TrySend when a connection's outbound
// buffer is full; the caller drops the frame rather than blocking.
var ErrBackpressure = errors.New("ws: send buffer full")

const (
	maxInboundMessageBytes = 2_000_000
	writeTimeout           = 5 * time.Second
	pongWait               = 60 * time.Second
	pingInterval           = (pongWait * 9) / 10
	sendBufferSize         = 64
)

// Conn wraps one upgraded connection: its remote address, its current
// room attachment, and a buffered outbound channel drained by
// writePump.
type Conn struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	send       chan []byte

	mu     sync.RWMutex
	closed bool
	roomID string
}

func newConn(id, remoteAddr string, wsConn *websocket.Conn) *Conn {
	return &Conn{
		id:         id,
		remoteAddr: remoteAddr,
		conn:       wsConn,
		send:       make(chan []byte, sendBufferSize),
	}
}

// RemoteAddr is the address used to key rate-limit buckets.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// RoomID returns the connection's current room attachment, or "" if
// none.
func (c *Conn) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// SetRoomID updates the connection's room attachment, used for
// scoping subsequent broadcasts.
func (c *Conn) SetRoomID(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// TrySend enqueues a pre-encoded frame without blocking.
func (c *Conn) TrySend(data []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrBackpressure
	}
	c.mu.RUnlock()

	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Send encodes v as the data field of an outbound envelope for verb t
// and enqueues it.
func (c *Conn) Send(t string, v any) error {
	data, err := encodeOutbound(t, v)
	if err != nil {
		return err
	}
	return c.TrySend(data)
}

// SendError encodes and enqueues an error frame.
func (c *Conn) SendError(message, code string, retryAfterMs int64) error {
	return c.Send("error", ErrorPayload{Code: code, Message: message, RetryAfterMs: retryAfterMs})
}

// Close closes the outbound channel and the underlying transport
// exactly once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
	_ = c.conn.Close()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump(dispatch func(c *Conn, env inboundEnvelope), onMalformed func(), onClose func(c *Conn)) {
	defer func() {
		onClose(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug().Str("module", "ws").Str("connId", c.id).Msg("dropping malformed inbound frame")
			onMalformed()
			continue
		}
		dispatch(c, env)
	}
}
