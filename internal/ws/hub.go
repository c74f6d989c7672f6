package ws

import (
	"log"

	"chatapp_backend/store"
)

// Hub owns the live connection state of the coordinating process: the
// presence registry, the subscription groups and the dispatcher. One hub
// serves all connections; each connection runs its own read pump and feeds
// events into the dispatcher.
type Hub struct {
	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	presence   *Presence
	groups     *Groups
	ledger     *Ledger
	dispatcher *Dispatcher
}

func NewHub(stores *store.Stores) *Hub {
	presence := NewPresence()
	groups := NewGroups()
	ledger := NewLedger(stores)

	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   presence,
		groups:     groups,
		ledger:     ledger,
		dispatcher: NewDispatcher(stores, ledger, presence, groups),
	}
}

// Ledger exposes membership operations to the HTTP layer (room creation).
func (h *Hub) Ledger() *Ledger {
	return h.ledger
}

// Dispatcher exposes event dispatch for transports and tests.
func (h *Hub) Dispatcher() *Dispatcher {
	return h.dispatcher
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			log.Printf("connection %s registered", client.RemoteAddr())
		case client := <-h.Unregister:
			h.disconnect(client)
		}
	}
}

// disconnect treats a dropped connection as implicit cancellation of its
// session: the binding and subscription entries go away, but the durable
// join list is left intact so the user can reconnect into their rooms.
func (h *Hub) disconnect(client *Client) {
	userID, wasBound := h.presence.Unbind(client)
	h.groups.UnsubscribeAll(client)
	client.closeSend()

	if wasBound {
		log.Printf("connection %s for user %s disconnected", client.RemoteAddr(), userID)
	} else {
		log.Printf("connection %s disconnected", client.RemoteAddr())
	}
}

// SendToUser delivers a payload to the user's live connection, if any.
func (h *Hub) SendToUser(userID string, v interface{}) {
	if conn, ok := h.presence.ConnFor(userID); ok {
		conn.Send(v)
	}
}

// Online reports whether the user currently has a live connection.
func (h *Hub) Online(userID string) bool {
	return h.presence.Online(userID)
}
