// Package stream broadcasts walk updates to browser observers over websocket.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"walk-ca/internal/driver"
	"walk-ca/internal/logging"
	"walk-ca/internal/series"
	"walk-ca/internal/walk"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Per-client queue; a client that falls this far behind is dropped.
	sendBuffer = 256
)

// Event names carried by Message.
const (
	EventReset = "reset"
	EventStep  = "step"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON frame sent to observers. Reset frames carry the whole
// grid in State; step frames carry only the transition.
type Message struct {
	Event string           `json:"event"`
	State *walk.Snapshot   `json:"state,omitempty"`
	Step  *walk.StepResult `json:"step,omitempty"`
	Point *series.Point    `json:"point,omitempty"`
}

// Client is a single websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// frames up to this sequence number are already part of the greeting
	since uint64
}

// Hub tracks connected clients and broadcasts messages to all of them.
type Hub struct {
	clients map[*Client]bool

	// current grid, replayed to clients on connect as a reset frame
	mu      sync.Mutex
	current *walk.Snapshot
	point   series.Point
	seq     uint64

	broadcast  chan frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *slog.Logger
}

var _ driver.Observer = (*Hub)(nil)

// NewHub creates a hub. A nil logger discards output.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan frame, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case f := <-h.broadcast:
			h.broadcastFrame(f)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// OnReset replaces the current grid and queues a reset frame.
func (h *Hub) OnReset(snap walk.Snapshot, last series.Point) {
	current := snap
	current.Cells = append([]uint8(nil), snap.Cells...)
	h.mu.Lock()
	h.current = &current
	h.point = last
	h.seq++
	seq := h.seq
	h.mu.Unlock()
	h.publish(seq, &Message{Event: EventReset, State: &snap, Point: &last})
}

// OnStep applies the transition to the current grid and queues a step frame.
func (h *Hub) OnStep(res walk.StepResult, point series.Point) {
	h.mu.Lock()
	if cur := h.current; cur != nil && len(cur.Cells) == cur.Size*cur.Size {
		cur.Cells[res.From.Y*cur.Size+res.From.X] = uint8(walk.CellVisited)
		cur.Cells[res.To.Y*cur.Size+res.To.X] = uint8(walk.CellWalker)
		cur.Walker = res.To
		cur.Steps = res.Steps
		cur.Visited = res.Visited
	}
	h.point = point
	h.seq++
	seq := h.seq
	h.mu.Unlock()
	h.publish(seq, &Message{Event: EventStep, Step: &res, Point: &point})
}

// greeting encodes the current grid as a reset frame and reports the sequence
// number it reflects.
func (h *Hub) greeting() ([]byte, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, h.seq
	}
	point := h.point
	data, err := json.Marshal(&Message{Event: EventReset, State: h.current, Point: &point})
	if err != nil {
		h.log.Error("marshal websocket greeting", "err", err)
		return nil, h.seq
	}
	return data, h.seq
}

// publish never blocks the stepping goroutine; frames are dropped when the
// hub is saturated.
func (h *Hub) publish(seq uint64, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal websocket message", "event", msg.Event, "err", err)
		return
	}
	select {
	case h.broadcast <- frame{data: data, seq: seq}:
	default:
		h.log.Warn("websocket broadcast queue full, dropping frame", "event", msg.Event)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	greeting, seq := h.greeting()
	client.since = seq
	if greeting != nil {
		client.send <- greeting
	}
	h.log.Info("client registered", "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.log.Info("client unregistered", "clients", len(h.clients))
	}
}

func (h *Hub) broadcastFrame(f frame) {
	for client := range h.clients {
		if f.seq <= client.since {
			continue
		}
		select {
		case client.send <- f.data:
		default:
			h.unregisterClient(client)
		}
	}
}

type frame struct {
	data []byte
	seq  uint64
}

// readPump drains the connection so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "err", err)
			}
			return
		}
	}
}

// writePump sends queued frames, one JSON document per websocket message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
