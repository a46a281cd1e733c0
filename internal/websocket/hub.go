package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rumpus-tracker/internal/domain"
)

// Message types
const (
	MessageTypeRankingUpdate = "ranking_update"
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypeUnsubscribed  = "unsubscribed"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Message is a frame sent to a client
type Message struct {
	Type      string      `json:"type"`
	Watch     string      `json:"watch,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RankingUpdate is the top of a watch's ranking. Subscribers receive one
// when they subscribe and another after every poll of the watch.
type RankingUpdate struct {
	Watch         string                `json:"watch"`
	Entries       []domain.RankingEntry `json:"entries"`
	TotalSubjects int64                 `json:"total_subjects"`
}

func rankingMessage(watch string, entries []domain.RankingEntry, total int64) *Message {
	return &Message{
		Type:  MessageTypeRankingUpdate,
		Watch: watch,
		Data: RankingUpdate{
			Watch:         watch,
			Entries:       entries,
			TotalSubjects: total,
		},
		Timestamp: time.Now().UTC(),
	}
}

// Hub tracks which clients follow which watch and fans ranking updates out
// to them. Subscriptions change synchronously; updates are delivered by Run.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	watchers map[string]map[*Client]struct{}

	updates chan *Message
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:  make(map[*Client]struct{}),
		watchers: make(map[string]map[*Client]struct{}),
		updates:  make(chan *Message, 256),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run delivers queued ranking updates until Stop is called
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return
		case msg := <-h.updates:
			h.deliver(msg)
		}
	}
}

// Stop stops delivering updates
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) join(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// leave drops c and all of its subscriptions and closes its send queue
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for watch := range c.watches {
		h.dropWatcher(watch, c)
	}
	close(c.send)
}

// subscribe queues first on c and adds c to the watch's subscribers in one
// step, so no update can reach c ahead of first.
func (h *Hub) subscribe(c *Client, watch string, first []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.enqueue(first)
	watchers, ok := h.watchers[watch]
	if !ok {
		watchers = make(map[*Client]struct{})
		h.watchers[watch] = watchers
	}
	watchers[c] = struct{}{}
	c.watches[watch] = struct{}{}
}

// unsubscribe reports whether c was subscribed to watch
func (h *Hub) unsubscribe(c *Client, watch string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.watches[watch]; !ok {
		return false
	}
	delete(c.watches, watch)
	h.dropWatcher(watch, c)
	return true
}

// dropWatcher must be called with mu held
func (h *Hub) dropWatcher(watch string, c *Client) {
	watchers := h.watchers[watch]
	delete(watchers, c)
	if len(watchers) == 0 {
		delete(h.watchers, watch)
	}
}

// deliver queues msg on every subscriber of its watch. Subscribers whose
// queue is full miss the update; the next poll supersedes it.
func (h *Hub) deliver(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "watch", msg.Watch, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for c := range h.watchers[msg.Watch] {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("ranking update skipped for slow clients", "watch", msg.Watch, "clients", dropped)
	}
}

// BroadcastRanking queues the top of a watch's ranking for its subscribers.
// The update is dropped when the hub is backed up.
func (h *Hub) BroadcastRanking(watch string, entries []domain.RankingEntry, total int64) {
	select {
	case h.updates <- rankingMessage(watch, entries, total):
	default:
		h.logger.Warn("broadcast channel full, dropping message", "watch", watch)
	}
}

// GetSubscriberCount returns the number of subscribers for a watch
func (h *Hub) GetSubscriberCount(watch string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[watch])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscriptions returns the subscriber count of every watch with subscribers
func (h *Hub) Subscriptions() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.watchers))
	for watch, watchers := range h.watchers {
		out[watch] = len(watchers)
	}
	return out
}
