package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HandlerFunc processes one inbound verb for one connection. data is
// the raw `data` field of the inbound envelope.
type HandlerFunc func(c *Conn, data []byte)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns the connection registry and the verb dispatch table. It is
// the only component aware of the gorilla/websocket transport.
type Hub struct {
	Registry *Registry

	handlers       map[string]HandlerFunc
	onMalformed    func()
	onUnknownVerb  func(verb string)
	onDisconnected func(c *Conn)
}

func NewHub() *Hub {
	return &Hub{
		Registry:       newRegistry(),
		handlers:       make(map[string]HandlerFunc),
		onMalformed:    func() {},
		onUnknownVerb:  func(string) {},
		onDisconnected: func(*Conn) {},
	}
}

// Handle registers the handler for a verb. Call before serving traffic.
func (h *Hub) Handle(verb string, fn HandlerFunc) {
	h.handlers[verb] = fn
}

// OnMalformed is invoked once per inbound frame that fails to parse.
func (h *Hub) OnMalformed(fn func()) { h.onMalformed = fn }

// OnDisconnect is invoked once a connection's read loop exits.
func (h *Hub) OnDisconnect(fn func(c *Conn)) { h.onDisconnected = fn }

// ServeUpgrade upgrades the request to a persistent connection and
// starts its read/write pumps. Only GET /ws should ever route here.
func (h *Hub) ServeUpgrade(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	conn := newConn(uuid.NewString(), c.ClientIP(), wsConn)
	h.Registry.add(conn)

	go conn.writePump()
	go conn.readPump(h.dispatch, h.onMalformed, func(cc *Conn) {
		h.Registry.remove(cc)
		h.onDisconnected(cc)
	})
}

func (h *Hub) dispatch(c *Conn, env inboundEnvelope) {
	fn, ok := h.handlers[env.T]
	if !ok {
		_ = c.SendError("unknown message type: "+env.T, "", 0)
		return
	}
	fn(c, env.Data)
}
