package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/regen"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Viewers only ever send pongs and close frames
	maxMessageSize = 4096

	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SceneMessage is pushed to every viewer when a new scene becomes current
// and once on connect. Viewers refetch /api/scene and keep their session
// clock.
type SceneMessage struct {
	Type       string    `json:"type"`
	Generation int64     `json:"generation"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
	At         time.Time `json:"at"`
}

func sceneMessage(ev regen.Event) SceneMessage {
	return SceneMessage{Type: "scene", Generation: ev.Generation, Nodes: ev.Nodes, Edges: ev.Edges, At: ev.At}
}

// Hub fans scene announcements out to connected viewers.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]bool
	ping       time.Duration
	log        *zap.SugaredLogger

	// ctx is the lifetime of run; set before run starts.
	ctx context.Context
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func newHub(ping time.Duration) *Hub {
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		clients:    make(map[*client]bool),
		ping:       ping,
		log:        logger.ComponentLogger("hub"),
		ctx:        context.Background(),
	}
}

// run owns the client set until ctx is done.
func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			h.clients = map[*client]bool{}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.log.Debugw("Viewer connected", "client_id", c.id, "clients", len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.log.Debugw("Viewer disconnected", "client_id", c.id, "clients", len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Too slow to keep up; it reconnects and refetches.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// relay forwards regeneration events from svc until ctx is done.
func (h *Hub) relay(ctx context.Context, svc *regen.Service) {
	events, cancel := svc.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(sceneMessage(ev))
			if err != nil {
				h.log.Warnw("Encoding scene message failed", logger.FieldError, err)
				continue
			}
			select {
			case h.broadcast <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

// serve upgrades the request and runs the client's pumps. hello, if non-nil,
// is queued before any broadcast.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, hello []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), id: uuid.NewString()}
	if hello != nil {
		c.send <- hello
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump discards incoming messages and keeps the read deadline fresh on
// every pong.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	pongWait := c.hub.ping * 10 / 9
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.log.Warnw("WebSocket read error", "client_id", c.id, logger.FieldError, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.ping)
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debugw("Scene message write error", "client_id", c.id, logger.FieldError, err)
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
