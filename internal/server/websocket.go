package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/config"
	"github.com/elementalcave/cave-server-go/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSMessage is the JSON envelope of every WebSocket frame. Clients send
// start, attach, intent, undo, reset, state, save, load and end; the server
// answers with state, saved, ended and error.
type WSMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Owner     string `json:"owner,omitempty"`
	LevelID   string `json:"level_id,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Slot      string `json:"slot,omitempty"`
	ReplayID  string `json:"replay_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// client is one WebSocket connection. A client follows at most one session
// and receives every state change of it, whoever caused the change.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// following is read and written by readPump only, sessionID by Run only.
	following string
	sessionID string
}

type sessionBroadcast struct {
	sessionID string
	payload   []byte
}

type directMessage struct {
	client  *client
	payload []byte
}

type follow struct {
	client    *client
	sessionID string
}

// Hub connects WebSocket clients to play sessions.
type Hub struct {
	sessions *session.Manager
	logger   *zap.Logger

	register   chan *client
	unregister chan *client
	follow     chan follow
	broadcast  chan sessionBroadcast
	direct     chan directMessage
	done       chan struct{}

	// owned by Run
	clients map[*client]bool
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(sessions *session.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions:   sessions,
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		follow:     make(chan follow),
		broadcast:  make(chan sessionBroadcast),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run dispatches registrations and broadcasts until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("websocket client registered", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("websocket client unregistered",
					zap.String("session_id", c.sessionID),
					zap.Int("clients", len(h.clients)),
				)
			}

		case f := <-h.follow:
			if h.clients[f.client] {
				f.client.sessionID = f.sessionID
			}

		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.payload)
			}

		case b := <-h.broadcast:
			for c := range h.clients {
				if c.sessionID == b.sessionID {
					h.deliver(c, b.payload)
				}
			}
		}
	}
}

func (h *Hub) deliver(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("dropping slow websocket client", zap.String("session_id", c.sessionID))
		delete(h.clients, c)
		close(c.send)
	}
}

// enqueue hands a hub request to Run unless the hub has stopped.
func enqueue[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

// ServeHTTP upgrades the request and serves the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if !enqueue(h, h.register, c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		enqueue(c.hub, c.hub.unregister, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(WSMessage{Type: "error", Error: "malformed message"})
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends a message to this client only. Replies go through the hub so
// that send is never written after Run closed it.
func (c *client) reply(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.DPanic("failed to encode websocket message", zap.Error(err))
		return
	}
	enqueue(c.hub, c.hub.direct, directMessage{client: c, payload: payload})
}

func (h *Hub) handleMessage(c *client, msg WSMessage) {
	msg.Type = strings.ToLower(msg.Type)
	switch msg.Type {
	case "start":
		sess, err := h.sessions.Start(msg.Owner, msg.LevelID)
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		h.followSession(c, sess.ID)
		h.publish(sess.ID, sess.State(), nil)

	case "attach":
		sess, err := h.sessions.Get(msg.SessionID)
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		h.followSession(c, sess.ID)
		c.reply(stateMessage(sess.State(), nil))

	case "intent", "undo", "reset", "state", "save", "load", "end":
		h.handleSessionMessage(c, msg)

	default:
		c.reply(WSMessage{Type: "error", Error: "unknown message type " + msg.Type})
	}
}

func (h *Hub) handleSessionMessage(c *client, msg WSMessage) {
	id := msg.SessionID
	if id == "" {
		id = c.following
	}
	if msg.Type == "end" {
		replayID, err := h.sessions.End(id)
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		ended := WSMessage{Type: "ended", SessionID: id, ReplayID: replayID}
		h.send(id, ended)
		if c.following != id {
			c.reply(ended)
		}
		return
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		c.reply(WSMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case "intent":
		intent, err := board.ParseIntent(strings.ToLower(msg.Intent))
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		st, err := sess.Submit(intent)
		h.publish(sess.ID, st, err)
	case "undo":
		st, err := sess.Undo()
		h.publish(sess.ID, st, err)
	case "reset":
		h.publish(sess.ID, sess.Reset(), nil)
	case "state":
		c.reply(stateMessage(sess.State(), nil))
	case "save":
		save, err := sess.Save(ctx, msg.Slot)
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		c.reply(WSMessage{Type: "saved", SessionID: sess.ID, Slot: save.Slot, Data: map[string]any{
			"level_id":   save.LevelID,
			"move_clock": save.MoveClock,
			"checksum":   save.Checksum,
		}})
	case "load":
		st, err := sess.Load(ctx, msg.Slot)
		if err != nil {
			c.reply(WSMessage{Type: "error", Error: err.Error()})
			return
		}
		h.publish(sess.ID, st, nil)
	}
}

func (h *Hub) followSession(c *client, sessionID string) {
	c.following = sessionID
	enqueue(h, h.follow, follow{client: c, sessionID: sessionID})
}

// publish sends a state to every client following the session.
func (h *Hub) publish(sessionID string, st session.State, failure error) {
	h.send(sessionID, stateMessage(st, failure))
}

func (h *Hub) send(sessionID string, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.DPanic("failed to encode websocket message", zap.Error(err))
		return
	}
	enqueue(h, h.broadcast, sessionBroadcast{sessionID: sessionID, payload: payload})
}

func stateMessage(st session.State, failure error) WSMessage {
	msg := WSMessage{Type: "state", SessionID: st.SessionID, Data: st}
	if failure != nil {
		msg.Error = failure.Error()
	}
	return msg
}

// NewWebSocketServer serves the hub on cfg.Path at cfg.Address, next to a
// health endpoint.
func NewWebSocketServer(cfg config.WebSocketConfig, hub *Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: writeWait,
	}
}

// ServeWebSocket runs srv until it is shut down.
func ServeWebSocket(srv *http.Server, logger *zap.Logger) error {
	logger.Info("starting WebSocket server", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
