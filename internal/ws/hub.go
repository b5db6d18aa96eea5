package ws

import (
	"sync"

	"messaging-service/internal/models"
)

// Hub owns the live-session state: thread rooms and the presence registry
// mapping a user to their open connections. Both tables are ephemeral,
// rebuilt from nothing on restart, and only ever mutated under the hub
// lock — connect, disconnect, join and leave all go through here.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int64]map[*Client]bool
	presence map[int64]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int64]map[*Client]bool),
		presence: make(map[int64]map[*Client]bool),
	}
}

// Register adds a connection to its user's presence set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.presence[c.info.UserID]; !ok {
		h.presence[c.info.UserID] = make(map[*Client]bool)
	}
	h.presence[c.info.UserID][c] = true
}

// Unregister removes a connection from presence and every joined room. The
// user's presence key disappears when their last connection goes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.presence[c.info.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.presence, c.info.UserID)
		}
	}
	for threadID, conns := range h.rooms {
		if conns[c] {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.rooms, threadID)
			}
		}
	}
}

// JoinThread subscribes a connection to a thread's broadcast group. Idempotent.
func (h *Hub) JoinThread(threadID int64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[threadID]; !ok {
		h.rooms[threadID] = make(map[*Client]bool)
	}
	h.rooms[threadID][c] = true
}

// LeaveThread unsubscribes a connection from a thread's broadcast group.
func (h *Hub) LeaveThread(threadID int64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[threadID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, threadID)
		}
	}
}

// InRoom reports whether the connection has joined the thread's room.
func (h *Hub) InRoom(threadID int64, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[threadID][c]
}

// BroadcastToThread enqueues the event on every connection in the thread's
// room. Enqueueing never blocks: a slow consumer drops pushes instead of
// stalling the rest, and re-syncs over REST.
func (h *Hub) BroadcastToThread(threadID int64, event models.ServerEvent) {
	h.broadcast(threadID, nil, event)
}

// BroadcastToThreadExcept is BroadcastToThread minus one connection,
// used for typing indicators so the typist never hears their own echo.
func (h *Hub) BroadcastToThreadExcept(threadID int64, except *Client, event models.ServerEvent) {
	h.broadcast(threadID, except, event)
}

func (h *Hub) broadcast(threadID int64, except *Client, event models.ServerEvent) {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.rooms[threadID]))
	for c := range h.rooms[threadID] {
		if c != except {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Enqueue(event)
	}
}

// DeliverToUser enqueues the event on every live connection the user has,
// whether or not those connections joined any room. Returns the number of
// connections reached.
func (h *Hub) DeliverToUser(userID int64, event models.ServerEvent) int {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.presence[userID]))
	for c := range h.presence[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Enqueue(event)
	}
	return len(conns)
}

// UserOnline reports whether the user has at least one live connection.
func (h *Hub) UserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.presence[userID]) > 0
}
