package server

import (
	"sync"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/protocol"
)

// ClientRegistry indexes connected clients by connection, player and
// session so teardown and routing stay consistent.
type ClientRegistry struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	byPlayer  map[string]*Client
	bySession map[string]*Client
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients:   make(map[*Client]struct{}),
		byPlayer:  make(map[string]*Client),
		bySession: make(map[string]*Client),
	}
}

// Add registers a fresh connection.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

// Associate indexes a client under its player and session IDs once
// Connect succeeds.
func (r *ClientRegistry) Associate(c *Client, playerID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return errs.ConnectionLost()
	}

	// A player reconnecting displaces their old connection.
	if old, ok := r.byPlayer[playerID]; ok && old != c {
		delete(r.bySession, old.SessionID())
		delete(r.clients, old)
		old.Close()
	}

	r.byPlayer[playerID] = c
	r.bySession[sessionID] = c
	c.Associate(playerID, sessionID)
	return nil
}

// Disassociate drops a client's player and session indexes while
// keeping the connection registered.
func (r *ClientRegistry) Disassociate(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pid := c.PlayerID(); pid != "" && r.byPlayer[pid] == c {
		delete(r.byPlayer, pid)
	}
	if sid := c.SessionID(); sid != "" && r.bySession[sid] == c {
		delete(r.bySession, sid)
	}
	c.Disassociate()
}

// Remove drops a client from every index.
func (r *ClientRegistry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	if pid := c.PlayerID(); pid != "" && r.byPlayer[pid] == c {
		delete(r.byPlayer, pid)
	}
	if sid := c.SessionID(); sid != "" && r.bySession[sid] == c {
		delete(r.bySession, sid)
	}
}

// Count returns the number of registered connections.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ByPlayer returns the client owned by a player.
func (r *ClientRegistry) ByPlayer(playerID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPlayer[playerID]
	return c, ok
}

// snapshot copies the client set so sends happen outside the lock.
func (r *ClientRegistry) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast queues a message to every connected client and returns the
// number of successful sends.
func (r *ClientRegistry) Broadcast(msg *protocol.Message) int {
	sent := 0
	for _, c := range r.snapshot() {
		if c.Send(msg) == nil {
			sent++
		}
	}
	return sent
}

// BroadcastToAuthenticated queues a message to every authenticated
// client and returns the number of successful sends.
func (r *ClientRegistry) BroadcastToAuthenticated(msg *protocol.Message) int {
	sent := 0
	for _, c := range r.snapshot() {
		if c.State() != StateAuthenticated && c.State() != StateInGame {
			continue
		}
		if c.Send(msg) == nil {
			sent++
		}
	}
	return sent
}

// SendToPlayer queues a message for one player's connection.
func (r *ClientRegistry) SendToPlayer(playerID string, msg *protocol.Message) error {
	c, ok := r.ByPlayer(playerID)
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	return c.Send(msg)
}

// SendToPlayers queues a message for several players, skipping ones
// without a live connection. Returns the number of successful sends.
func (r *ClientRegistry) SendToPlayers(playerIDs []string, msg *protocol.Message) int {
	sent := 0
	for _, pid := range playerIDs {
		if pid == "" {
			continue
		}
		if r.SendToPlayer(pid, msg) == nil {
			sent++
		}
	}
	return sent
}

// CleanupDisconnected removes clients whose connections are gone and
// returns them for session teardown.
func (r *ClientRegistry) CleanupDisconnected() []*Client {
	var gone []*Client
	for _, c := range r.snapshot() {
		select {
		case <-c.Done():
			gone = append(gone, c)
		default:
		}
	}
	for _, c := range gone {
		r.Remove(c)
	}
	return gone
}

// StateCounts tallies clients per lifecycle state.
func (r *ClientRegistry) StateCounts() map[string]int {
	counts := make(map[string]int)
	for _, c := range r.snapshot() {
		counts[c.State().String()]++
	}
	return counts
}
