package ws

import (
	"sync"
)

// Groups maps room ids to the set of live connections currently receiving
// that room's broadcasts. It is a fan-out mirror of the membership ledger,
// never the source of truth; the dispatcher keeps the two in sync on every
// join, leave, kick and disconnect.
type Groups struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
}

func NewGroups() *Groups {
	return &Groups{
		rooms: make(map[string]map[Conn]struct{}),
	}
}

// Subscribe adds conn to the room's broadcast set.
func (g *Groups) Subscribe(conn Conn, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rooms[roomID] == nil {
		g.rooms[roomID] = make(map[Conn]struct{})
	}
	g.rooms[roomID][conn] = struct{}{}
}

// Unsubscribe removes conn from the room's broadcast set.
func (g *Groups) Unsubscribe(conn Conn, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conns, ok := g.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(g.rooms, roomID)
		}
	}
}

// UnsubscribeAll removes conn from every room on disconnect.
func (g *Groups) UnsubscribeAll(conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for roomID, conns := range g.rooms {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(g.rooms, roomID)
		}
	}
}

// Broadcast sends v to every connection currently subscribed to the room.
// Callers serialize per-room mutations, so delivery order matches the order
// in which mutations were committed.
func (g *Groups) Broadcast(roomID string, v interface{}) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for conn := range g.rooms[roomID] {
		conn.Send(v)
	}
}

// Subscribed reports whether conn is in the room's broadcast set.
func (g *Groups) Subscribed(conn Conn, roomID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.rooms[roomID][conn]
	return ok
}
