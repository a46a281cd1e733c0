package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rumpus-tracker/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// snapshotTimeout bounds the ranking lookup made on subscribe
	snapshotTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Rankings serves the current ranking of a watch to new subscribers
type Rankings interface {
	Watch(name string) (domain.Watch, error)
	Top(ctx context.Context, name string, n int) ([]domain.RankingEntry, error)
	Stats(ctx context.Context, name string) (*domain.WatchStats, error)
}

// ClientMessage is a request from a client. Limit caps the entries of the
// ranking sent on subscribe; zero means the tracker's default.
type ClientMessage struct {
	Type  string `json:"type"`
	Watch string `json:"watch,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Client is one WebSocket connection and the watches it follows
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	rankings Rankings
	send     chan []byte
	// watches is guarded by hub.mu
	watches map[string]struct{}
	logger  *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, rankings Rankings, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		rankings: rankings,
		send:     make(chan []byte, 256),
		watches:  make(map[string]struct{}),
		logger:   logger.With("client_id", id),
	}
}

// ServeWs upgrades the request and serves ranking subscriptions on it
func ServeWs(hub *Hub, rankings Rankings, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(hub, conn, rankings, logger)
	hub.join(c)
	go c.writePump()
	go c.readPump()

	c.logger.Debug("new websocket connection")
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.replyError("", "invalid message format")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribe(msg.Watch, msg.Limit)
	case MessageTypeUnsubscribe:
		if !c.hub.unsubscribe(c, msg.Watch) {
			c.replyError(msg.Watch, "not subscribed")
			return
		}
		c.reply(&Message{Type: MessageTypeUnsubscribed, Watch: msg.Watch})
	case MessageTypePing:
		c.reply(&Message{Type: MessageTypePong})
	default:
		c.replyError(msg.Watch, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// subscribe answers with the watch's current ranking and then follows it
func (c *Client) subscribe(watch string, limit int) {
	if watch == "" {
		c.replyError("", "watch required for subscribe")
		return
	}
	if _, err := c.rankings.Watch(watch); err != nil {
		c.replyError(watch, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	entries, err := c.rankings.Top(ctx, watch, limit)
	if err != nil {
		c.logger.Warn("failed to load ranking for subscriber", "watch", watch, "error", err)
		c.replyError(watch, "ranking unavailable")
		return
	}
	var total int64
	if stats, err := c.rankings.Stats(ctx, watch); err == nil {
		total = stats.TotalSubjects
	}

	first, err := json.Marshal(rankingMessage(watch, entries, total))
	if err != nil {
		c.logger.Error("failed to marshal ranking", "watch", watch, "error", err)
		return
	}
	c.hub.subscribe(c, watch, first)
	c.logger.Debug("client subscribed", "watch", watch, "entries", len(entries))
}

func (c *Client) reply(msg *Message) {
	msg.Timestamp = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal reply", "type", msg.Type, "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) replyError(watch, reason string) {
	c.reply(&Message{Type: MessageTypeError, Watch: watch, Data: map[string]string{"error": reason}})
}

// enqueue never blocks; a client that stopped reading loses frames
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("client queue full, dropping frame")
	}
}

// writePump writes one frame per message and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
