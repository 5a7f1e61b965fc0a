package registry

import (
	"sort"

	"github.com/mcoot/chessmatch/internal/model"
)

// ConnID identifies a transport connection
type ConnID string

// Conn is a client connection messages can be delivered to
type Conn interface {
	ID() ConnID
	// Send queues a message for delivery without blocking
	Send(msg model.Message) error
}

// Client is a registered connection and the identity attached to it, if any
type Client struct {
	Conn     Conn
	Identity *model.Identity

	seq uint64
}

// Registry maps connections to identities.
// It is not safe for concurrent use; the owner serializes access.
type Registry struct {
	clients    map[ConnID]*Client
	byUsername map[model.Username]ConnID
	nextSeq    uint64
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		clients:    make(map[ConnID]*Client),
		byUsername: make(map[model.Username]ConnID),
	}
}

// Add registers a bare connection. Adding a known connection is a no-op.
func (r *Registry) Add(conn Conn) *Client {
	if c, ok := r.clients[conn.ID()]; ok {
		return c
	}
	r.nextSeq++
	c := &Client{Conn: conn, seq: r.nextSeq}
	r.clients[conn.ID()] = c
	return c
}

// Attach sets the identity of a connection, registering it if needed.
// Any other connection holding the same username is demoted to a bare connection.
func (r *Registry) Attach(conn Conn, identity model.Identity) *Client {
	c := r.Add(conn)

	if c.Identity != nil && c.Identity.Username != identity.Username {
		delete(r.byUsername, c.Identity.Username)
	}
	if otherID, ok := r.byUsername[identity.Username]; ok && otherID != conn.ID() {
		if other, ok := r.clients[otherID]; ok {
			other.Identity = nil
		}
	}

	id := identity
	c.Identity = &id
	r.byUsername[identity.Username] = conn.ID()
	return c
}

// Detach removes a connection and returns the identity it held, if any
func (r *Registry) Detach(id ConnID) (*model.Identity, bool) {
	c, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	delete(r.clients, id)
	if c.Identity != nil && r.byUsername[c.Identity.Username] == id {
		delete(r.byUsername, c.Identity.Username)
	}
	return c.Identity, true
}

// Find returns the client for a connection
func (r *Registry) Find(id ConnID) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// FindByUsername returns the client identified as username
func (r *Registry) FindByUsername(username model.Username) (*Client, bool) {
	id, ok := r.byUsername[username]
	if !ok {
		return nil, false
	}
	return r.Find(id)
}

// Identities returns the identities of all identified connections in registration order
func (r *Registry) Identities() []model.Identity {
	clients := r.Clients()
	identities := make([]model.Identity, 0, len(clients))
	for _, c := range clients {
		identities = append(identities, *c.Identity)
	}
	return identities
}

// Clients returns all identified clients in registration order
func (r *Registry) Clients() []*Client {
	clients := make([]*Client, 0, len(r.byUsername))
	for _, id := range r.byUsername {
		clients = append(clients, r.clients[id])
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].seq < clients[j].seq
	})
	return clients
}

// Len returns the number of registered connections, identified or not
func (r *Registry) Len() int {
	return len(r.clients)
}
