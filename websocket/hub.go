package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"PinguinGuard/interfaces"

	"go.uber.org/zap"
)

// DefaultReplayTTL is how long the last event of a user stays replayable.
const DefaultReplayTTL = 10 * time.Minute

// Hub keeps the live connections of every user and fans events out to them.
// A user may hold several connections, one per device.
type Hub struct {
	// Registered clients by user id (firebase_uid)
	clients map[string]map[*Client]bool

	// Last event delivered to each user, replayed to new connections so a
	// device that reconnects learns it has to refresh. Entries older than
	// ReplayTTL are dropped.
	lastEvent map[string]replay
	ReplayTTL time.Duration
	now       func() time.Time

	register   chan *Client
	unregister chan *Client
	publish    chan delivery
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

type replay struct {
	data []byte
	at   time.Time
}

type delivery struct {
	userIDs []string
	data    []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		lastEvent:  make(map[string]replay),
		ReplayTTL:  DefaultReplayTTL,
		now:        time.Now,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan delivery, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	prune := time.NewTicker(h.ReplayTTL)
	defer prune.Stop()
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			if last, ok := h.lastEvent[client.UserID]; ok && h.now().Sub(last.at) < h.ReplayTTL {
				client.send <- last.data
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client registered",
				zap.String("user_id", client.UserID),
				zap.String("user_type", client.UserType))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case d := <-h.publish:
			h.mu.Lock()
			for _, userID := range d.userIDs {
				h.lastEvent[userID] = replay{data: d.data, at: h.now()}
				for client := range h.clients[userID] {
					select {
					case client.send <- d.data:
					default:
						h.logger.Warn("websocket client too slow, dropping", zap.String("user_id", userID))
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()

		case <-prune.C:
			h.pruneReplays()
		}
	}
}

// pruneReplays drops replay entries older than ReplayTTL.
func (h *Hub) pruneReplays() {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := h.now().Add(-h.ReplayTTL)
	for userID, last := range h.lastEvent {
		if !last.at.After(cutoff) {
			delete(h.lastEvent, userID)
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Publish sends msg to every connection of userIDs. It never blocks once the
// hub has stopped.
func (h *Hub) Publish(msg interfaces.WebSocketMessage, userIDs ...string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("websocket event not encodable", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case h.publish <- delivery{userIDs: dedupe(userIDs), data: data}:
	case <-h.done:
	}
}

// Connected returns the number of live connections of userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func dedupe(ids []string) []string {
	out := ids[:0:0]
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
