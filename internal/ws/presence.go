package ws

import (
	"sync"
)

// Conn is the outbound side of a live client connection. The concrete
// implementation is *Client; tests substitute fakes.
type Conn interface {
	Send(v interface{})
}

// Presence is the ephemeral connection-to-user binding. It is never
// persisted: the durable user record stays free of transport identifiers and
// this map is rebuilt from scratch on process restart.
type Presence struct {
	mu     sync.RWMutex
	byConn map[Conn]string
	byUser map[string]Conn
}

func NewPresence() *Presence {
	return &Presence{
		byConn: make(map[Conn]string),
		byUser: make(map[string]Conn),
	}
}

// Bind associates conn with userID. Rebinding a user to a new connection is
// last-writer-wins: the old connection keeps its own conn→user entry, but
// user→conn lookups resolve to the new connection from now on.
func (p *Presence) Bind(conn Conn, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.byConn[conn] = userID
	p.byUser[userID] = conn
}

// UserFor resolves the user bound to conn.
func (p *Presence) UserFor(conn Conn) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	userID, ok := p.byConn[conn]
	return userID, ok
}

// ConnFor resolves the live connection of a user, if any.
func (p *Presence) ConnFor(userID string) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conn, ok := p.byUser[userID]
	return conn, ok
}

// Unbind clears conn's binding on disconnect. The user→conn entry is removed
// only when it still points at this connection, so disconnecting a superseded
// connection never clears a fresher binding.
func (p *Presence) Unbind(conn Conn) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[conn]
	if !ok {
		return "", false
	}
	delete(p.byConn, conn)
	if p.byUser[userID] == conn {
		delete(p.byUser, userID)
	}
	return userID, true
}

// Online reports whether the user currently has a live connection.
func (p *Presence) Online(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.byUser[userID]
	return ok
}
